package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPayloadValidate(t *testing.T) {
	cases := []struct {
		name    string
		payload PushPayload
		wantErr bool
	}{
		{"valid group", NewGroupPayload(Group{ID: "g1", Members: []FriendId{"a"}}), false},
		{"group missing id", NewGroupPayload(Group{Members: []FriendId{"a"}}), true},
		{"valid post", NewPostPayload(Post{ID: "p1", GroupID: "g1"}), false},
		{"post missing group", NewPostPayload(Post{ID: "p1"}), true},
		{"valid location", NewLocationPayload(Location{Latitude: 1, Longitude: 2}), false},
		{"location missing body", PushPayload{Kind: KindLocation}, true},
		{"unknown kind", PushPayload{Kind: "bogus"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.payload.Validate()
			if c.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
