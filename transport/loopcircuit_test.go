package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoopCircuitEstablishesImmediately(t *testing.T) {
	c := NewLoopCircuit(CircuitOptions{})

	require.True(t, c.IsCircuitEstablished())
	require.Equal(t, 0, c.SocksProxyPort())

	require.NoError(t, c.Start(context.Background()))
	select {
	case <-c.Ready():
	default:
		t.Fatal("Ready channel should be closed after Start")
	}
	require.NoError(t, c.Stop(context.Background()))
}
