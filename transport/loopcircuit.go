package transport

import "context"

// LoopCircuit is a Circuit that never actually drives an onion-router
// subprocess: it reports itself established immediately and dials out
// over the plain loopback interface instead of a SOCKS proxy. Driving a
// real hidden service is out of scope; LoopCircuit is meshd's bundled
// default so the binary runs standalone during development rather than
// refusing to start without a working Tor install.
type LoopCircuit struct {
	ready chan struct{}
}

// NewLoopCircuit satisfies the CircuitFactory signature.
func NewLoopCircuit(CircuitOptions) Circuit {
	return &LoopCircuit{ready: make(chan struct{})}
}

func (c *LoopCircuit) Start(ctx context.Context) error {
	close(c.ready)
	return nil
}

func (c *LoopCircuit) Stop(ctx context.Context) error { return nil }

func (c *LoopCircuit) IsCircuitEstablished() bool { return true }

// SocksProxyPort returns 0: LoopCircuit has no SOCKS proxy, so the client
// pool built against it dials the loopback interface directly.
func (c *LoopCircuit) SocksProxyPort() int { return 0 }

func (c *LoopCircuit) Ready() <-chan struct{} { return c.ready }

var _ Circuit = (*LoopCircuit)(nil)
var _ CircuitFactory = NewLoopCircuit
