package events

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tethermesh/sync/model"
)

func TestRouterPublishFansOutInOrder(t *testing.T) {
	r := NewRouter()

	var gotA, gotB []Event
	r.Subscribe(func(e Event) { gotA = append(gotA, e) })
	r.Subscribe(func(e Event) { gotB = append(gotB, e) })

	r.Publish(CircuitEstablished{})
	r.Publish(AddedFriend{FriendID: model.FriendId("f1")})

	want := []Event{CircuitEstablished{}, AddedFriend{FriendID: model.FriendId("f1")}}
	require.Equal(t, want, gotA)
	require.Equal(t, want, gotB)
}

func TestRouterUnsubscribeStopsDelivery(t *testing.T) {
	r := NewRouter()

	var got []Event
	unsub := r.Subscribe(func(e Event) { got = append(got, e) })
	r.Publish(UpdatedSelf{})
	unsub()
	r.Publish(UpdatedSelf{})

	require.Len(t, got, 1)
}

func TestDispatchRejectsNonEventValue(t *testing.T) {
	r := NewRouter()
	r.Subscribe(func(e Event) {})
	err := r.ps.Publish("not-an-event")
	require.Error(t, err)
}
