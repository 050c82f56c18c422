package tasks

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tethermesh/sync/model"
)

func TestPushQueueFIFOPerFriend(t *testing.T) {
	q := NewPushQueue()
	q.Enqueue("alice", model.NewPostPayload(model.Post{ID: "p1", GroupID: "g1"}))
	q.Enqueue("alice", model.NewPostPayload(model.Post{ID: "p2", GroupID: "g1"}))
	q.Enqueue("bob", model.NewPostPayload(model.Post{ID: "p3", GroupID: "g1"}))

	require.True(t, q.HasPending("alice"))
	require.Equal(t, 2, q.Len())

	p, ok := q.Dequeue("alice")
	require.True(t, ok)
	require.Equal(t, "p1", p.Post.ID)

	p, ok = q.Dequeue("alice")
	require.True(t, ok)
	require.Equal(t, "p2", p.Post.ID)

	_, ok = q.Dequeue("alice")
	require.False(t, ok)
	require.False(t, q.HasPending("alice"))
	require.Equal(t, 1, q.Len())
}

func TestPushQueueClear(t *testing.T) {
	q := NewPushQueue()
	q.Enqueue("alice", model.NewLocationPayload(model.Location{}))
	q.Clear()
	require.False(t, q.HasPending("alice"))
	require.Equal(t, 0, q.Len())
}
