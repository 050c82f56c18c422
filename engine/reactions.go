package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tethermesh/sync/events"
	"github.com/tethermesh/sync/model"
)

// react is the event router's single subscriber: the reaction table,
// executed on the publishing goroutine. It does not hold the engine mutex:
// the registry, push queue, and location-recipient set each guard their own
// state with their own lock, and only the timer-arming reactions
// (onAddedFriend, onPreferenceChanged) take e.mu.
func (e *Engine) react(evt events.Event) {
	switch ev := evt.(type) {
	case events.CircuitEstablished:
		e.onCircuitEstablished()
	case events.UpdatedSelf:
		e.Restart(context.Background())
	case events.AddedFriend:
		e.onAddedFriend()
	case events.RemovedFriend:
		e.Restart(context.Background())
	case events.UpdatedFriend:
		e.watchdog.Extend()
	case events.UpdatedSelfGroup:
		e.onUpdatedSelfGroup(ev.GroupID)
	case events.UpdatedSelfLocation:
		e.onUpdatedSelfLocation()
	case events.UpdatedSelfPost:
		e.onUpdatedSelfPost(ev.PostID)
	case events.AddedDownload:
		e.triggerDownloadFrom(ev.FriendID)
	case events.NewSelfLocationFix:
		e.onNewSelfLocationFix(ev.Location)
	case events.NewSelfGroupEdit:
		e.onNewSelfGroupEdit(ev.Group)
	case events.PreferenceChanged:
		e.onPreferenceChanged()
	default:
		log.Warn().Msgf("engine: unrecognized event type %T", evt)
	}
}

func (e *Engine) onCircuitEstablished() {
	friends, err := e.opts.Store.GetFriendsIterator()
	if err != nil {
		log.Error().Err(err).Msg("engine: list friends on circuit established")
		return
	}
	for _, fr := range friends {
		e.registry.Trigger(model.AskPull, fr.ID, e.factory.AskPull(fr.ID))
		e.registry.Trigger(model.PullFrom, fr.ID, e.factory.PullFrom(fr.ID))
	}
	e.retry.Start(model.DownloadRetryPeriod, e.retriggerAllDownloads)
}

// onAddedFriend delays the restart that picks up a newly added friend's
// certificate by FriendRequestDelay, giving the other side time to add us
// back before either party starts dialing a peer that doesn't trust it yet.
func (e *Engine) onAddedFriend() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.friendAddTimer != nil {
		e.friendAddTimer.Stop()
	}
	e.friendAddTimer = time.AfterFunc(model.FriendRequestDelay, func() {
		e.Restart(context.Background())
	})
}

func (e *Engine) onUpdatedSelfGroup(groupID string) {
	group, ok := e.opts.Store.GetGroupByID(groupID)
	if !ok {
		return
	}
	payload := model.NewGroupPayload(group)
	for _, member := range group.Members {
		if _, ok := e.opts.Store.GetFriendByID(member); !ok {
			continue
		}
		e.queue.Enqueue(member, payload)
		e.registry.Trigger(model.PushTo, member, e.factory.PushTo(member))
	}
}

func (e *Engine) onUpdatedSelfLocation() {
	loc, ok := e.opts.Store.GetSelfLocation()
	if !ok {
		return
	}
	payload := model.NewLocationPayload(loc)
	for _, friend := range e.locRecip.Drain() {
		e.queue.Enqueue(friend, payload)
		e.registry.Trigger(model.PushTo, friend, e.factory.PushTo(friend))
	}
}

func (e *Engine) onUpdatedSelfPost(postID string) {
	post, groupID, ok := e.opts.Store.GetPostByID(postID)
	if !ok {
		return
	}
	group, ok := e.opts.Store.GetGroupByID(groupID)
	if !ok {
		return
	}
	payload := model.NewPostPayload(post)
	for _, member := range group.Members {
		if _, ok := e.opts.Store.GetFriendByID(member); !ok {
			continue
		}
		e.queue.Enqueue(member, payload)
		e.registry.Trigger(model.PushTo, member, e.factory.PushTo(member))
	}
}

func (e *Engine) onNewSelfLocationFix(loc model.Location) {
	if err := e.opts.Store.PutSelfLocation(loc); err != nil {
		log.Error().Err(err).Msg("engine: persist self location fix")
		return
	}
	e.router.Publish(events.UpdatedSelfLocation{})
}

func (e *Engine) onNewSelfGroupEdit(g model.Group) {
	if err := e.opts.Store.PutGroup(g); err != nil {
		log.Error().Err(err).Str("group", g.ID).Msg("engine: persist self group edit")
		return
	}
	e.router.Publish(events.UpdatedSelfGroup{GroupID: g.ID})
}

func (e *Engine) onPreferenceChanged() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.restartTimer != nil {
		e.restartTimer.Stop()
	}
	delay := e.opts.RestartDelay
	if delay <= 0 {
		delay = model.PrefRestartDelay
	}
	e.restartTimer = time.AfterFunc(delay, func() {
		e.Restart(context.Background())
	})
}
