package tasks

import (
	"sync"

	"github.com/tethermesh/sync/model"
)

// PushQueue holds one FIFO outbound list per friend. Ordering is only
// guaranteed within a single friend's list; across friends there is none.
// One mutex guards every friend's list rather than a lock per friend.
type PushQueue struct {
	mu       sync.Mutex
	byFriend map[model.FriendId][]model.PushPayload
}

// NewPushQueue constructs an empty queue.
func NewPushQueue() *PushQueue {
	return &PushQueue{byFriend: map[model.FriendId][]model.PushPayload{}}
}

// Enqueue appends payload to friend's list, creating it lazily.
func (q *PushQueue) Enqueue(friend model.FriendId, payload model.PushPayload) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.byFriend[friend] = append(q.byFriend[friend], payload)
}

// Dequeue removes and returns the head of friend's list. ok is false if the
// list is empty or absent, in which case the empty list is also dropped from
// the map so HasPending never reports a stale friend.
func (q *PushQueue) Dequeue(friend model.FriendId) (payload model.PushPayload, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.byFriend[friend]
	if len(list) == 0 {
		delete(q.byFriend, friend)
		return model.PushPayload{}, false
	}
	payload, q.byFriend[friend] = list[0], list[1:]
	if len(q.byFriend[friend]) == 0 {
		delete(q.byFriend, friend)
	}
	return payload, true
}

// HasPending reports whether friend has any queued payload. PushTo's
// epilogue calls this from inside Registry.CompleteOrContinue's hasMore
// closure, so the check and the slot-clearing decision happen atomically
// under the registry's lock.
func (q *PushQueue) HasPending(friend model.FriendId) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byFriend[friend]) > 0
}

// Len reports the number of friends with at least one queued payload, for
// diagnostics.
func (q *PushQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byFriend)
}

// Clear drops every queued payload for every friend. Called when the
// engine stops, so the next start begins with every queue empty.
func (q *PushQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.byFriend = map[model.FriendId][]model.PushPayload{}
}
