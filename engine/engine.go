// Package engine implements the background coordinator: lifecycle, the
// two fixed-size worker pools, preferences binding, watchdog timers, the
// download-retry ticker, and the event router reaction table. A single
// engine mutex guards lifecycle state and the restart timers; the task
// registry, push queue, and location-recipient set carry their own locks.
package engine

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tethermesh/sync/events"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/server"
	"github.com/tethermesh/sync/store"
	"github.com/tethermesh/sync/tasks"
	"github.com/tethermesh/sync/transport"
)

// Preferences is the read-only view the engine consults.
type Preferences interface {
	FilesOnWifiOnly() bool
	OnWifi() bool
	CurrentlySharingLocation() bool
}

// Options configures an Engine's collaborators: the store, the transport
// supervisor's circuit factory, and preferences.
type Options struct {
	Store      store.Store
	NewCircuit transport.CircuitFactory
	ServerAddr string
	SelfCert   tls.Certificate
	HiddenKey  []byte
	Prefs      Preferences
	// Fixer is the location-provider collaborator HandleAskLocation starts
	// once a request passes the policy gate.
	Fixer server.LocationFixer
	// RestartDelay overrides model.PrefRestartDelay; tests set this small.
	RestartDelay time.Duration
}

// Engine is the long-running background coordinator that drives push,
// pull, and download scheduling for every friend.
type Engine struct {
	opts Options

	registry  *tasks.Registry
	queue     *tasks.PushQueue
	locRecip  *tasks.LocationRecipients
	factory   *tasks.Factory
	router    *events.Router
	sup       *transport.Supervisor
	watchdog  *watchdog
	localPool *Pool
	peerPool  *Pool

	retry *retryTask

	mu             sync.Mutex
	running        bool
	unsubscribe    events.Unsubscribe
	restartTimer   *time.Timer
	friendAddTimer *time.Timer
}

// New constructs a stopped Engine wired to opts' collaborators.
func New(opts Options) *Engine {
	e := &Engine{
		opts:      opts,
		queue:     tasks.NewPushQueue(),
		locRecip:  tasks.NewLocationRecipients(),
		router:    events.NewRouter(),
		localPool: NewPool(model.ThreadPoolSize),
		peerPool:  NewPool(model.ThreadPoolSize),
		retry:     &retryTask{},
	}
	e.watchdog = newWatchdog(e.onWatchdogFire)
	e.registry = tasks.NewRegistry(e.localPool.Submit)
	e.sup = transport.NewSupervisor(transport.SupervisorOptions{
		ServerAddr:          opts.ServerAddr,
		NewCircuit:          opts.NewCircuit,
		Router:              e.router,
		Watchdog:            e.watchdog,
		SelfCertificate:     opts.SelfCert,
		HiddenServiceSecret: opts.HiddenKey,
	})
	e.factory = &tasks.Factory{
		St:       opts.Store,
		Registry: e.registry,
		Queue:    e.queue,
		Circuit:  e.sup,
		Clients:  supervisorClients{e.sup},
	}
	return e
}

// Start brings the Engine up: transport supervisor and event subscription.
// The download-retry ticker starts later, from the CircuitEstablished
// reaction. It assumes every task slot, queue, and timer
// starts empty — true on first Start and after a prior Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	handler := &server.Handler{
		St:       e.opts.Store,
		Triggers: e,
		Prefs:    e.opts.Prefs,
		Fixer:    e.opts.Fixer,
	}
	if err := e.sup.Start(ctx, e.opts.Store, e.peerPool.wrapHandler(handler)); err != nil {
		return err
	}

	e.unsubscribe = e.router.Subscribe(e.react)
	e.running = true
	return nil
}

// TriggerPullFrom, TriggerDownloadFrom, AddLocationRecipient, and
// PublishNewSelfLocationFix implement server.Triggers: the callback surface
// peer-request handlers use to schedule follow-up work without acquiring
// the engine mutex themselves.
func (e *Engine) TriggerPullFrom(friend model.FriendId) {
	e.registry.Trigger(model.PullFrom, friend, e.factory.PullFrom(friend))
}

func (e *Engine) TriggerDownloadFrom(friend model.FriendId) {
	e.triggerDownloadFrom(friend)
}

func (e *Engine) AddLocationRecipient(friend model.FriendId) {
	e.locRecip.Add(friend)
}

func (e *Engine) PublishNewSelfLocationFix(loc model.Location) {
	e.router.Publish(events.NewSelfLocationFix{Location: loc})
}

// PutSelfGroup persists a group the local user owns and schedules a push
// to its members, the reaction to a control-socket group edit.
func (e *Engine) PutSelfGroup(g model.Group) {
	e.router.Publish(events.NewSelfGroupEdit{Group: g})
}

// Stop tears the Engine down in the prescribed order (download-retry
// ticker first), and clears every slot/queue/timer so the next Start
// begins from an empty state.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}

	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}

	err := e.sup.Stop(ctx, e.retry.Stop)
	e.watchdog.Stop()
	if e.restartTimer != nil {
		e.restartTimer.Stop()
		e.restartTimer = nil
	}
	if e.friendAddTimer != nil {
		e.friendAddTimer.Stop()
		e.friendAddTimer = nil
	}
	e.registry.Clear()
	e.queue.Clear()
	e.running = false
	return err
}

// Restart performs a full stop/start cycle, the reaction to UpdatedSelf,
// AddedFriend, RemovedFriend, and watchdog expiry.
func (e *Engine) Restart(ctx context.Context) {
	if err := e.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("engine: stop during restart failed")
	}
	if err := e.Start(ctx); err != nil {
		log.Error().Err(err).Msg("engine: start during restart failed")
	}
}

func (e *Engine) onWatchdogFire() {
	log.Warn().Msg("engine: watchdog fired, restarting")
	e.Restart(context.Background())
}

func (e *Engine) retriggerAllDownloads() {
	friends, err := e.opts.Store.GetFriendsIterator()
	if err != nil {
		log.Error().Err(err).Msg("engine: list friends for download retry")
		return
	}
	for _, fr := range friends {
		e.triggerDownloadFrom(fr.ID)
	}
}

func (e *Engine) triggerDownloadFrom(friendID model.FriendId) {
	e.registry.Trigger(model.DownloadFrom, friendID, e.factory.DownloadFrom(friendID, e.opts.Prefs))
}

// supervisorClients adapts *transport.Supervisor to tasks.ClientPool,
// resolving through whatever pool is current at call time — the pool is
// replaced wholesale on every circuit (re-)establishment, so task bodies
// must never cache a *transport.Pool across calls.
type supervisorClients struct {
	sup *transport.Supervisor
}

func (c supervisorClients) ClientForCert(hostname string, certPEM []byte) transport.Client {
	pool := c.sup.Pool()
	if pool == nil {
		return nil
	}
	return pool.ClientForCert(hostname, certPEM)
}

// Status is a point-in-time diagnostic snapshot exposed on the control
// socket.
type Status struct {
	Running         bool
	LocalPoolActive int32
	PeerPoolActive  int32
	PendingPushes   int
	LocationWaiters int
}

// StatusSnapshot reports Status for the control socket.
func (e *Engine) StatusSnapshot() Status {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	return Status{
		Running:         running,
		LocalPoolActive: e.localPool.Active(),
		PeerPoolActive:  e.peerPool.Active(),
		PendingPushes:   e.queue.Len(),
		LocationWaiters: e.locRecip.Len(),
	}
}
