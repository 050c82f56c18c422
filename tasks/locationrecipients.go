package tasks

import (
	"sync"

	"github.com/tethermesh/sync/model"
)

// LocationRecipients is the set of friends waiting on an AskLocation
// response: a location fix delivered by the platform location service
// fans out to every friend currently in this set, and the set is drained
// as each delivery completes.
type LocationRecipients struct {
	mu   sync.Mutex
	want map[model.FriendId]struct{}
}

// NewLocationRecipients constructs an empty set.
func NewLocationRecipients() *LocationRecipients {
	return &LocationRecipients{want: map[model.FriendId]struct{}{}}
}

// Add marks friend as waiting for the next location fix.
func (l *LocationRecipients) Add(friend model.FriendId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.want[friend] = struct{}{}
}

// Drain empties the set and returns the friends that were waiting, so the
// caller can fan a single fresh fix out to each of them exactly once.
func (l *LocationRecipients) Drain() []model.FriendId {
	l.mu.Lock()
	defer l.mu.Unlock()
	friends := make([]model.FriendId, 0, len(l.want))
	for f := range l.want {
		friends = append(friends, f)
	}
	l.want = map[model.FriendId]struct{}{}
	return friends
}

// Len reports how many friends are currently waiting, for diagnostics.
func (l *LocationRecipients) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.want)
}
