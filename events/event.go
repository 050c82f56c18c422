// Package events implements a typed, tagged-variant event bus the engine
// subscribes to.
package events

import "github.com/tethermesh/sync/model"

// Event is the marker interface every event variant implements. Dispatch
// is a type switch over the concrete variant, not a string topic name.
type Event interface {
	eventMarker()
}

type base struct{}

func (base) eventMarker() {}

// CircuitEstablished fires once the onion-routing circuit comes up.
type CircuitEstablished struct{ base }

// UpdatedSelf fires when the local identity (and therefore transport
// credentials) changed.
type UpdatedSelf struct{ base }

// AddedFriend fires when a new friend was accepted locally.
type AddedFriend struct {
	base
	FriendID model.FriendId
}

// RemovedFriend fires when a friend was deleted locally.
type RemovedFriend struct {
	base
	FriendID model.FriendId
}

// UpdatedFriend fires on any observed communication with a friend.
type UpdatedFriend struct {
	base
	FriendID model.FriendId
}

// UpdatedSelfGroup fires when the local user changed a group they own.
type UpdatedSelfGroup struct {
	base
	GroupID string
}

// UpdatedSelfLocation fires when a new self-location fix was persisted.
type UpdatedSelfLocation struct{ base }

// UpdatedSelfPost fires when the local user authored or edited a post.
type UpdatedSelfPost struct {
	base
	PostID string
}

// AddedDownload fires when a new resource download was registered for a
// friend.
type AddedDownload struct {
	base
	FriendID model.FriendId
}

// NewSelfLocationFix fires when the location provider produced a new fix,
// before it has been persisted.
type NewSelfLocationFix struct {
	base
	Location model.Location
}

// NewSelfGroupEdit fires when the local user created or edited a group
// they own, before it has been persisted.
type NewSelfGroupEdit struct {
	base
	Group model.Group
}

// PreferenceChanged fires when any recognized preference key changed.
type PreferenceChanged struct{ base }
