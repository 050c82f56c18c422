package engine

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tethermesh/sync/events"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/store"
	"github.com/tethermesh/sync/store/memstore"
	"github.com/tethermesh/sync/transport"
)

func testSelfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 64))
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "engine test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyBytes, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	return cert
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st := memstore.New(store.Self{ID: "me"})
	return New(Options{
		Store:      st,
		NewCircuit: transport.NewLoopCircuit,
		ServerAddr: "127.0.0.1:0",
		SelfCert:   testSelfSignedCert(t),
	})
}

func TestEngineStartStopIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Start(ctx)) // second Start while running is a no-op
	require.True(t, e.StatusSnapshot().Running)

	require.NoError(t, e.Stop(ctx))
	require.NoError(t, e.Stop(ctx)) // second Stop while stopped is a no-op
	require.False(t, e.StatusSnapshot().Running)
}

func TestEngineClearsSlotsAndQueuesOnStop(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	e.queue.Enqueue("alice", model.NewLocationPayload(model.Location{}))
	e.registry.Trigger(model.PushTo, "alice", func(ctx context.Context) {})

	require.NoError(t, e.Stop(ctx))

	require.Equal(t, 0, e.queue.Len())
	require.False(t, e.registry.InFlight(model.PushTo, "alice"))
}

func TestUpdatedSelfGroupReactionEnqueuesPushForMembers(t *testing.T) {
	e := newTestEngine(t)
	st := e.opts.Store.(*memstore.Store)
	st.AddFriend(model.Friend{ID: "alice"})
	require.NoError(t, st.PutGroup(model.Group{ID: "g1", Members: []model.FriendId{"alice", "ghost"}}))

	e.react(events.UpdatedSelfGroup{GroupID: "g1"})

	require.True(t, e.queue.HasPending("alice"))
	require.False(t, e.queue.HasPending("ghost"))
}

func TestUpdatedSelfLocationReactionFansOutToWaiters(t *testing.T) {
	e := newTestEngine(t)
	st := e.opts.Store.(*memstore.Store)
	st.AddFriend(model.Friend{ID: "alice"})
	require.NoError(t, st.PutSelfLocation(model.Location{Latitude: 1, Longitude: 2}))
	e.locRecip.Add("alice")

	e.react(events.UpdatedSelfLocation{})

	require.True(t, e.queue.HasPending("alice"))
	require.Equal(t, 0, e.locRecip.Len())
}

func TestPreferenceChangedDebouncesRestart(t *testing.T) {
	e := newTestEngine(t)
	e.opts.RestartDelay = 20 * time.Millisecond
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	defer e.Stop(ctx)

	e.react(events.PreferenceChanged{})
	time.Sleep(5 * time.Millisecond)
	e.react(events.PreferenceChanged{}) // re-arms; the first timer must not fire

	time.Sleep(50 * time.Millisecond)
	require.True(t, e.StatusSnapshot().Running) // restart completed, engine ended up running again
}
