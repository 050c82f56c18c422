package tasks

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tethermesh/sync/model"
)

func TestLocationRecipientsDrainEmptiesSet(t *testing.T) {
	l := NewLocationRecipients()
	l.Add("alice")
	l.Add("bob")
	l.Add("alice")

	require.Equal(t, 2, l.Len())

	drained := l.Drain()
	require.ElementsMatch(t, []model.FriendId{"alice", "bob"}, drained)
	require.Equal(t, 0, l.Len())
}
