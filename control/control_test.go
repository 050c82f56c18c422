package control

import (
	"context"
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tethermesh/sync/engine"
	"github.com/tethermesh/sync/store"
	"github.com/tethermesh/sync/store/memstore"
	"github.com/tethermesh/sync/transport"
)

func newTestBackend() *Backend {
	st := memstore.New(store.Self{ID: "me"})
	e := engine.New(engine.Options{
		Store:      st,
		NewCircuit: transport.NewLoopCircuit,
		ServerAddr: "127.0.0.1:0",
		SelfCert:   tls.Certificate{},
	})
	return &Backend{Engine: e}
}

func TestBackendStatusReflectsEngineState(t *testing.T) {
	b := newTestBackend()

	status, err := b.Status(context.Background())
	require.NoError(t, err)
	require.False(t, status.Running)
}

func TestBackendRestartBringsEngineUp(t *testing.T) {
	b := newTestBackend()

	err := b.Restart(context.Background())
	require.NoError(t, err)

	status, err := b.Status(context.Background())
	require.NoError(t, err)
	require.True(t, status.Running)

	require.NoError(t, b.Engine.Stop(context.Background()))
}
