package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tethermesh/sync/events"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/store"
	"golang.org/x/xerrors"
)

// Watchdog is the subset of the engine's watchdog timers the transport
// supervisor drives directly: arm the not-connected watchdog, or switch
// it to the no-communication timeout. Ownership of the timers themselves
// stays with the engine; the supervisor only triggers the two
// transitions it is responsible for observing.
type Watchdog interface {
	ArmNotConnected()
	SwitchToNoComm()
}

// CircuitFactory constructs a Circuit for a fresh Start/Stop cycle. It is
// supplied by the binary wiring the engine together, since the
// onion-router subprocess itself is out of scope.
type CircuitFactory func(CircuitOptions) Circuit

// Supervisor brings up the mutually-authenticated server, the hidden
// service, and — once a circuit is established — a client connection
// pool, and tears all three down in the prescribed order on Stop.
type Supervisor struct {
	serverAddr    string
	newCircuit    CircuitFactory
	router        *events.Router
	wd            Watchdog
	selfCert      tls.Certificate
	hiddenServKey []byte

	mu      sync.Mutex
	server  *Server
	circuit Circuit
	pool    *Pool
	stopRdy chan struct{}
	selfID  model.FriendId
}

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	ServerAddr          string
	NewCircuit          CircuitFactory
	Router              *events.Router
	Watchdog            Watchdog
	SelfCertificate     tls.Certificate
	HiddenServiceSecret []byte
}

// NewSupervisor constructs a stopped Supervisor.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	return &Supervisor{
		serverAddr:    opts.ServerAddr,
		newCircuit:    opts.NewCircuit,
		router:        opts.Router,
		wd:            opts.Watchdog,
		selfCert:      opts.SelfCertificate,
		hiddenServKey: opts.HiddenServiceSecret,
	}
}

// Start gathers self identity and friend certificates from st, brings up
// the server and hidden service, and arms the not-connected watchdog.
func (s *Supervisor) Start(ctx context.Context, st store.Store, handler RequestHandler) error {
	self, err := st.GetSelfOrThrow()
	if err != nil {
		return xerrors.Errorf("transport: gather self identity: %w", err)
	}

	friends, err := st.GetFriendsIterator()
	if err != nil {
		return xerrors.Errorf("transport: gather friends: %w", err)
	}

	certPool := x509.NewCertPool()
	var cookies [][]byte
	for _, f := range friends {
		if len(f.Certificate) > 0 {
			certPool.AppendCertsFromPEM(f.Certificate)
		}
		cookie := f.AuthCookie
		if len(cookie) == 0 && len(s.hiddenServKey) > 0 {
			cookie, err = DeriveAuthCookie(s.hiddenServKey, string(f.ID))
			if err != nil {
				return xerrors.Errorf("transport: derive auth cookie for %s: %w", f.ID, err)
			}
		}
		if len(cookie) > 0 {
			cookies = append(cookies, cookie)
		}
	}

	opts := ServerOptions{
		Addr:                s.serverAddr,
		Certificate:         s.selfCert,
		AcceptedClientCerts: certPool,
	}
	if t, ok := handler.(TransferObserver); ok {
		opts.Transfers = t
	}
	srv := NewServer(opts, handler)
	if err := srv.Start(ctx); err != nil {
		return xerrors.Errorf("transport: start server: %w", err)
	}

	circuit := s.newCircuit(CircuitOptions{
		HiddenServiceKey:    s.hiddenServKey,
		AcceptedAuthCookies: cookies,
		UpstreamPort:        srv.ListeningPort(),
	})
	if err := circuit.Start(ctx); err != nil {
		_ = srv.Stop(ctx)
		return xerrors.Errorf("transport: start circuit: %w", err)
	}

	s.mu.Lock()
	s.server = srv
	s.circuit = circuit
	s.stopRdy = make(chan struct{})
	s.selfID = self.ID
	stopRdy := s.stopRdy
	s.mu.Unlock()

	if s.wd != nil {
		s.wd.ArmNotConnected()
	}

	go s.watchCircuit(circuit, stopRdy)

	return nil
}

func (s *Supervisor) watchCircuit(circuit Circuit, stopRdy chan struct{}) {
	select {
	case <-circuit.Ready():
	case <-stopRdy:
		return
	}

	s.mu.Lock()
	if s.circuit != circuit {
		s.mu.Unlock()
		return
	}
	if s.wd != nil {
		s.wd.SwitchToNoComm()
	}
	pool := NewPool(ClientPoolOptions{
		SocksPort:   circuit.SocksProxyPort(),
		Certificate: s.selfCert,
	})
	s.pool = pool
	selfID := s.selfID
	s.mu.Unlock()

	log.Info().Str("self", string(selfID)).Msg("circuit established; client pool ready")
	if s.router != nil {
		s.router.Publish(events.CircuitEstablished{})
	}
}

// Pool returns the current client connection pool, or nil before the
// circuit has been established.
func (s *Supervisor) Pool() *Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

// IsCircuitEstablished reports the live circuit state task bodies consult
// in their preamble.
func (s *Supervisor) IsCircuitEstablished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.circuit != nil && s.circuit.IsCircuitEstablished()
}

// Stop tears down the pool, the circuit, and the server in that order.
// stopTicker runs first, to stop the download-retry ticker before
// anything it might still be touching goes away.
func (s *Supervisor) Stop(ctx context.Context, stopTicker func()) error {
	if stopTicker != nil {
		stopTicker()
	}

	s.mu.Lock()
	pool, circuit, srv, stopRdy := s.pool, s.circuit, s.server, s.stopRdy
	s.pool, s.circuit, s.server, s.stopRdy = nil, nil, nil, nil
	s.mu.Unlock()

	if stopRdy != nil {
		close(stopRdy)
	}
	if pool != nil {
		pool.Close()
	}
	var firstErr error
	if circuit != nil {
		if err := circuit.Stop(ctx); err != nil && firstErr == nil {
			firstErr = xerrors.Errorf("transport: stop circuit: %w", err)
		}
	}
	if srv != nil {
		if err := srv.Stop(ctx); err != nil && firstErr == nil {
			firstErr = xerrors.Errorf("transport: stop server: %w", err)
		}
	}
	return firstErr
}
