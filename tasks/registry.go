// Package tasks implements the task registry, push queue, and task
// factory: per-(kind,friend) deduplicated scheduling, per-friend FIFO
// outbound queues, and the five task bodies themselves.
package tasks

import (
	"context"
	"sync"

	"github.com/tethermesh/sync/model"
)

type slotKey struct {
	Kind   model.FriendTaskKind
	Friend model.FriendId
}

// Registry tracks at most one in-flight execution per (kind, friend).
// Deduplication is expressed by slot occupancy, not a per-friend mutex, so
// fast back-to-back triggers coalesce while long-running tasks never
// block the caller. No task body is cached: Trigger is simply handed the
// body to run.
type Registry struct {
	submit func(func())

	mu    sync.Mutex
	slots map[slotKey]struct{}
}

// NewRegistry constructs an empty registry that hands dedup-approved
// bodies to submit — the engine's fixed-size local-work pool, so Trigger
// never spawns an unbounded goroutine itself.
func NewRegistry(submit func(func())) *Registry {
	return &Registry{submit: submit, slots: map[slotKey]struct{}{}}
}

// Trigger submits body to run for (kind, friend) if and only if no
// execution is already in flight for that slot; otherwise it returns
// without effect. body is responsible for calling Complete (or
// CompleteOrContinue) on every exit path itself — Trigger does not clear
// the slot on body's behalf, since PushTo's epilogue must make that
// decision itself to avoid dropping newly-queued work.
func (r *Registry) Trigger(kind model.FriendTaskKind, friend model.FriendId, body func(ctx context.Context)) {
	key := slotKey{kind, friend}

	r.mu.Lock()
	if _, occupied := r.slots[key]; occupied {
		r.mu.Unlock()
		return
	}
	r.slots[key] = struct{}{}
	r.mu.Unlock()

	r.submit(func() { body(context.Background()) })
}

// Complete clears the slot unconditionally. Every task body calls this on
// every exit path.
func (r *Registry) Complete(kind model.FriendTaskKind, friend model.FriendId) {
	r.mu.Lock()
	delete(r.slots, slotKey{kind, friend})
	r.mu.Unlock()
}

// CompleteOrContinue re-checks hasMore under the registry's own lock
// before deciding whether to clear the slot. If hasMore reports more
// work, the slot stays occupied and CompleteOrContinue returns true so
// the caller's drain loop goes around again instead of exiting; otherwise
// the slot clears and it returns false.
func (r *Registry) CompleteOrContinue(kind model.FriendTaskKind, friend model.FriendId, hasMore func() bool) bool {
	key := slotKey{kind, friend}
	r.mu.Lock()
	defer r.mu.Unlock()
	if hasMore() {
		return true
	}
	delete(r.slots, key)
	return false
}

// InFlight reports whether a slot currently holds an execution, for tests
// and for diagnostics exposed on the control socket.
func (r *Registry) InFlight(kind model.FriendTaskKind, friend model.FriendId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slots[slotKey{kind, friend}]
	return ok
}

// Clear empties every slot. Called when the engine stops, so the next
// start begins with no slots occupied.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.slots = map[slotKey]struct{}{}
	r.mu.Unlock()
}
