package transport

import "context"

// Circuit is the onion-routing process supervisor's contract: it brings
// up a hidden service pointing at our HTTPS server and establishes a
// SOCKS proxy for outbound connections to other hidden services. Driving
// the actual onion-routing subprocess is out of scope; this module only
// consumes the interface.
type Circuit interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsCircuitEstablished() bool
	SocksProxyPort() int
	// Ready is sent on exactly once per successful Start, when the circuit
	// first becomes established, triggering a CircuitEstablished event.
	Ready() <-chan struct{}
}

// CircuitOptions configures a Circuit's hidden-service identity.
type CircuitOptions struct {
	// HiddenServiceKey is the self-certifying hidden-service private key
	// material.
	HiddenServiceKey []byte
	// AcceptedAuthCookies lists the per-friend authorization cookies
	// allowed to address our hidden service.
	AcceptedAuthCookies [][]byte
	// UpstreamPort is the local port of our HTTPS server the hidden
	// service should forward to.
	UpstreamPort int
}
