package memstore

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/store"
)

func TestFriendLookupByCertificate(t *testing.T) {
	s := New(store.Self{ID: "me"})
	f := model.Friend{ID: "alice", Certificate: []byte("alice-cert")}
	s.AddFriend(f)

	got, ok := s.GetFriendByCertificate([]byte("alice-cert"))
	require.True(t, ok)
	require.Equal(t, f.ID, got.ID)

	_, ok = s.GetFriendByCertificate([]byte("unknown-cert"))
	require.False(t, ok)

	s.RemoveFriend("alice")
	_, ok = s.GetFriendByID("alice")
	require.False(t, ok)
}

func TestPutPushedPostReportsNewness(t *testing.T) {
	s := New(store.Self{ID: "me"})
	s.AddFriend(model.Friend{ID: "alice"})

	isNew, err := s.PutPushedPost("alice", model.Post{ID: "p1", GroupID: "g1"})
	require.NoError(t, err)
	require.True(t, isNew)

	isNew, err = s.PutPushedPost("alice", model.Post{ID: "p1", GroupID: "g1"})
	require.NoError(t, err)
	require.False(t, isNew)
}

func TestPullResponseIteratorAndConfirm(t *testing.T) {
	s := New(store.Self{ID: "me"})
	s.AddFriend(model.Friend{ID: "alice"})

	_, err := s.PutPushedPost("alice", model.Post{ID: "p1", GroupID: "g1"})
	require.NoError(t, err)
	require.NoError(t, s.PutPushedGroup("alice", model.Group{ID: "g1"}))

	it, err := s.PullResponseIterator("alice", model.PullRequest{FriendID: "alice"})
	require.NoError(t, err)

	var kinds []model.PayloadKind
	for {
		p, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		kinds = append(kinds, p.Kind)
	}
	require.ElementsMatch(t, []model.PayloadKind{model.KindGroup, model.KindPost}, kinds)

	require.NoError(t, s.ConfirmSentToPullRequest("alice", model.PullRequest{GroupCursor: 5, PostCursor: 9}))
	req, err := s.GetPullRequest("alice")
	require.NoError(t, err)
	require.Equal(t, int64(5), req.GroupCursor)
	require.Equal(t, int64(9), req.PostCursor)
}

func TestShareLocalResourceDetectsMIMEType(t *testing.T) {
	s := New(store.Self{ID: "me"})
	s.AddFriend(model.Friend{ID: "alice"})

	png := []byte("\x89PNG\r\n\x1a\n" + "rest-of-file-does-not-matter-for-sniffing")
	require.NoError(t, s.ShareLocalResource("alice", "photo", png))

	res, err := s.GetLocalResourceForDownload("alice", "photo")
	require.NoError(t, err)
	require.Equal(t, "image/png", res.MIMEType)
	require.Equal(t, int64(len(png)), res.Size)

	require.ErrorIs(t, s.ShareLocalResource("bob", "photo", png), store.ErrNotFound)
}

func TestDownloadResumeBookkeeping(t *testing.T) {
	s := New(store.Self{ID: "me"})
	s.AddFriend(model.Friend{ID: "alice"})

	full := []byte("0123456789")
	s.SeedDownload("alice", "file1", int64(len(full)), full[:4], full, "application/octet-stream")

	n, err := s.CurrentSizeOnDisk("alice", "file1")
	require.NoError(t, err)
	require.Equal(t, int64(4), n)

	w, err := s.OpenAppend("alice", "file1")
	require.NoError(t, err)
	_, err = w.Write(full[4:])
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, full, s.DiskContents("alice", "file1"))

	require.NoError(t, s.UpdateDownloadState("alice", "file1", model.DownloadComplete))
	require.Equal(t, model.DownloadComplete, s.DownloadStateOf("alice", "file1"))
}
