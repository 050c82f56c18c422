package model

import (
	"encoding/json"
	"fmt"
)

// PayloadKind discriminates the tagged variants of PushPayload on the wire.
type PayloadKind string

const (
	KindGroup    PayloadKind = "group"
	KindPost     PayloadKind = "post"
	KindLocation PayloadKind = "location"
)

// Group is a self-contained snapshot of group membership as pushed or
// pulled between friends. The store owns the authoritative shape; the
// Engine treats it as an opaque, re-transmittable unit.
type Group struct {
	ID      string          `json:"id"`
	Members []FriendId      `json:"members"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Post is a single authored update belonging to a Group.
type Post struct {
	ID      string          `json:"id"`
	GroupID string          `json:"groupId"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Location is a self-location fix shared with recipients who asked for it.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// PushPayload is the tagged union {Group, Post, Location} carrying a single
// item to deliver. Exactly one of Group/Post/Location is non-nil, selected
// by Kind.
type PushPayload struct {
	Kind     PayloadKind `json:"type"`
	Group    *Group      `json:"group,omitempty"`
	Post     *Post       `json:"post,omitempty"`
	Location *Location   `json:"location,omitempty"`
}

// NewGroupPayload wraps a Group as a PushPayload.
func NewGroupPayload(g Group) PushPayload { return PushPayload{Kind: KindGroup, Group: &g} }

// NewPostPayload wraps a Post as a PushPayload.
func NewPostPayload(p Post) PushPayload { return PushPayload{Kind: KindPost, Post: &p} }

// NewLocationPayload wraps a Location as a PushPayload.
func NewLocationPayload(l Location) PushPayload {
	return PushPayload{Kind: KindLocation, Location: &l}
}

// Validate rejects malformed payloads before they are accepted into the
// store.
func (p PushPayload) Validate() error {
	switch p.Kind {
	case KindGroup:
		if p.Group == nil || p.Group.ID == "" {
			return fmt.Errorf("payload: group payload missing id")
		}
	case KindPost:
		if p.Post == nil || p.Post.ID == "" || p.Post.GroupID == "" {
			return fmt.Errorf("payload: post payload missing id or group")
		}
	case KindLocation:
		if p.Location == nil {
			return fmt.Errorf("payload: location payload missing body")
		}
	default:
		return fmt.Errorf("payload: unknown kind %q", p.Kind)
	}
	return nil
}

// PullRequest is a per-friend cursor describing what the local node has
// already received, sent to a peer so it can respond with only newer items
// and treat the cursor as an acknowledgment of prior receipt.
type PullRequest struct {
	FriendID    FriendId `json:"friendId"`
	GroupCursor int64    `json:"groupCursor"`
	PostCursor  int64    `json:"postCursor"`
	// Reciprocal, when true, asks the peer to also treat this request as
	// an ask-pull: the peer should initiate its own PullFrom toward us.
	Reciprocal bool `json:"reciprocal"`
}

// DownloadStateKind enumerates resource-download lifecycle states.
type DownloadStateKind string

const (
	DownloadInProgress DownloadStateKind = "in-progress"
	DownloadComplete   DownloadStateKind = "complete"
)

// DownloadState is a resumable transfer in progress with a friend.
type DownloadState struct {
	FriendID     FriendId
	ResourceID   string
	ExpectedSize int64
	State        DownloadStateKind
}
