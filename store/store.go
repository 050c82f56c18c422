// Package store declares the contract the engine consumes from the durable
// data store. The store itself — its schema, its persistence engine — is
// an external collaborator; this package exists only to give the engine
// something concrete to program against, and to let this module's own
// tests run without one.
package store

import (
	"errors"

	"github.com/tethermesh/sync/model"
)

// ErrNotFound is returned by the "OrThrow" accessor variants when the
// requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Self is the local user's own identity and state.
type Self struct {
	ID       model.FriendId
	Nickname string
}

// Store is the full contract the engine consumes.
type Store interface {
	GetSelfOrThrow() (Self, error)

	// GetFriendsIterator yields every known friend. Implementations may
	// stream from disk; callers must not retain the slice beyond the call.
	GetFriendsIterator() ([]model.Friend, error)
	// GetFriendByID returns (friend, true) or (zero, false) if unknown.
	GetFriendByID(id model.FriendId) (model.Friend, bool)
	// GetFriendByCertificate resolves a peer's X.509 certificate (as
	// presented on a mutually-authenticated connection) to a Friend.
	GetFriendByCertificate(cert []byte) (model.Friend, bool)

	PutSelfLocation(loc model.Location) error
	// GetSelfLocation returns the most recently persisted self-location
	// fix, so the UpdatedSelfLocation reaction can build a push payload
	// from whatever PutSelfLocation last stored.
	GetSelfLocation() (model.Location, bool)
	PutGroup(g model.Group) error
	// GetGroupByID resolves a group the local user owns, for the
	// UpdatedSelfGroup(id) reaction to build a push payload from.
	GetGroupByID(id string) (model.Group, bool)
	// GetPostByID resolves a post and the id of the group it belongs to,
	// for the UpdatedSelfPost(id) reaction.
	GetPostByID(id string) (model.Post, string, bool)
	PutPushedGroup(friend model.FriendId, g model.Group) error
	PutPushedLocation(friend model.FriendId, loc model.Location) error
	// PutPushedPost reports true iff the post was newly accepted (i.e. we
	// did not already have it).
	PutPushedPost(friend model.FriendId, p model.Post) (bool, error)

	GetPullRequest(friend model.FriendId) (model.PullRequest, error)
	// PutPullResponse commits a (possibly partial) batch of pulled items.
	// pullRequest is nil for every commit after the first within a single
	// PullFrom invocation, so that acknowledgment is applied exactly once.
	PutPullResponse(friend model.FriendId, pullRequest *model.PullRequest, groups []model.Group, posts []model.Post) error

	ConfirmSentToPayload(friend model.FriendId, payload model.PushPayload) error
	ConfirmSentToPullRequest(friend model.FriendId, req model.PullRequest) error

	GetNextInProgressDownload(friend model.FriendId) (model.DownloadState, bool, error)
	UpdateDownloadState(friend model.FriendId, resourceID string, state model.DownloadStateKind) error
	// GetLocalResourceForDownload enforces per-friend access control and
	// returns a readable handle plus its total size and MIME type.
	GetLocalResourceForDownload(friend model.FriendId, resourceID string) (Resource, error)

	UpdateFriendSentOrThrow(friend model.FriendId, when int64, bytes int64) error
	UpdateFriendReceivedOrThrow(friend model.FriendId, when int64, bytes int64) error

	// CurrentSizeOnDisk reports how many bytes of resourceID have already
	// been written for this friend's in-progress download, so DownloadFrom
	// can resume rather than restart.
	CurrentSizeOnDisk(friend model.FriendId, resourceID string) (int64, error)
	// OpenAppend opens (or creates) the resource file in append mode so a
	// resumed download can keep writing where the last attempt stopped.
	OpenAppend(friend model.FriendId, resourceID string) (AppendWriter, error)

	// PullResponseIterator streams every Group/Post this friend hasn't
	// acknowledged yet, for serving an incoming pull request.
	PullResponseIterator(friend model.FriendId, req model.PullRequest) (PayloadIterator, error)
}

// Resource describes a local file made available for a friend to download.
type Resource struct {
	MIMEType string
	Size     int64
	Reader   RangeReadCloser
}

// RangeReadCloser reads a byte range starting at Offset, to end of file.
type RangeReadCloser interface {
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// AppendWriter is an append-mode sink for resumed download bytes.
type AppendWriter interface {
	Write(p []byte) (int, error)
	Close() error
}

// PayloadIterator streams payload objects without materializing them all
// in memory.
type PayloadIterator interface {
	// Next returns the next payload, or (zero, false, nil) at end of
	// stream, or (zero, false, err) on error.
	Next() (model.PushPayload, bool, error)
}
