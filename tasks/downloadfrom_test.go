package tasks

import (
	"bytes"
	"context"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/transport"
)

type wifiOnlyPrefs struct{ onWifi bool }

func (p wifiOnlyPrefs) FilesOnWifiOnly() bool { return true }
func (p wifiOnlyPrefs) OnWifi() bool          { return p.onWifi }

func TestDownloadFromResumesFromOnDiskOffset(t *testing.T) {
	full := []byte("0123456789")
	client := &fakeClient{response: func(req transport.ClientRequest) (*transport.ClientResponse, error) {
		require.NotNil(t, req.Range)
		return &transport.ClientResponse{StatusCode: 200, Body: ioutil.NopCloser(bytes.NewReader(full[req.Range.Offset:]))}, nil
	}}
	f, st := newTestFactory(t, client)
	st.AddFriend(model.Friend{ID: "alice", Hostname: "alice.onion"})
	st.SeedDownload("alice", "file1", int64(len(full)), full[:4], full, "application/octet-stream")

	f.DownloadFrom("alice", nil)(context.Background())

	require.Equal(t, full, st.DiskContents("alice", "file1"))
	require.Equal(t, model.DownloadComplete, st.DownloadStateOf("alice", "file1"))
	require.False(t, f.Registry.InFlight(model.DownloadFrom, "alice"))
}

func TestDownloadFromSkipsAlreadyCompleteSizedFile(t *testing.T) {
	full := []byte("abc")
	client := &fakeClient{}
	f, st := newTestFactory(t, client)
	st.AddFriend(model.Friend{ID: "alice", Hostname: "alice.onion"})
	st.SeedDownload("alice", "file1", int64(len(full)), full, full, "text/plain")

	f.DownloadFrom("alice", nil)(context.Background())

	require.Equal(t, 0, client.calls())
	require.Equal(t, model.DownloadComplete, st.DownloadStateOf("alice", "file1"))
}

func TestDownloadFromRespectsWifiOnlyGate(t *testing.T) {
	client := &fakeClient{}
	f, st := newTestFactory(t, client)
	st.AddFriend(model.Friend{ID: "alice", Hostname: "alice.onion"})
	st.SeedDownload("alice", "file1", 10, nil, []byte("0123456789"), "text/plain")

	f.DownloadFrom("alice", wifiOnlyPrefs{onWifi: false})(context.Background())

	require.Equal(t, 0, client.calls())
}
