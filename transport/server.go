package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// ServerOptions configures the mutually-authenticated HTTPS server.
type ServerOptions struct {
	// Addr is the local bind address, e.g. "127.0.0.1:0" to pick a free
	// port (then read back via ListeningPort).
	Addr string
	// Certificate is self's X.509 key pair.
	Certificate tls.Certificate
	// AcceptedClientCerts is the pool of friend certificates allowed to
	// connect, assembled from the store at startup.
	AcceptedClientCerts *x509.CertPool
	// Transfers, if set, receives per-request byte-count bookkeeping once
	// a request/response body has been fully streamed.
	Transfers TransferObserver
}

// TransferObserver receives completed-transfer bookkeeping keyed by the raw
// DER client certificate bytes presented on the connection.
type TransferObserver interface {
	UpdateFriendSent(cert []byte, when int64, bytes int64)
	UpdateFriendReceived(cert []byte, when int64, bytes int64)
}

// Server is the mutually-authenticated HTTPS server wrapper, dispatching
// the five wire paths to a RequestHandler. net/http and crypto/tls are
// the stdlib: mutual-TLS HTTP serving has no suitable third-party
// substitute here, so this is a standard-library-justified piece — see
// DESIGN.md.
type Server struct {
	opts    ServerOptions
	handler RequestHandler

	httpSrv  *http.Server
	listener net.Listener
}

// NewServer wires handler to serve the five recognized paths.
func NewServer(opts ServerOptions, handler RequestHandler) *Server {
	return &Server{opts: opts, handler: handler}
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ask-pull", s.wrap(s.handler.HandleAskPull))
	mux.HandleFunc("/ask-location", s.wrap(s.handler.HandleAskLocation))
	mux.HandleFunc("/push", s.wrap(s.handler.HandlePush))
	mux.HandleFunc("/pull", s.wrap(s.handler.HandlePull))
	mux.HandleFunc("/download", s.wrap(s.handler.HandleDownload))

	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{s.opts.Certificate},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    s.opts.AcceptedClientCerts,
		MinVersion:   tls.VersionTLS12,
	}

	ln, err := tls.Listen("tcp", s.opts.Addr, tlsConf)
	if err != nil {
		return xerrors.Errorf("transport: listen: %w", err)
	}
	s.listener = ln

	s.httpSrv = &http.Server{Handler: mux}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("hidden-service http server exited")
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutCtx)
}

// ListeningPort reports the locally bound TCP port.
func (s *Server) ListeningPort() int {
	if s.listener == nil {
		return 0
	}
	_, portStr, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}

func (s *Server) wrap(handle func(context.Context, Request) Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var received countingReader
		if req.Body != nil {
			received.r = req.Body
			req.Body = &received
		}

		resp := handle(r.Context(), req)
		sent := writeResponse(w, resp)

		if s.opts.Transfers != nil {
			now := time.Now().Unix()
			if received.n > 0 {
				s.opts.Transfers.UpdateFriendReceived(req.PeerCertificate, now, received.n)
			}
			if sent > 0 {
				s.opts.Transfers.UpdateFriendSent(req.PeerCertificate, now, sent)
			}
		}
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func decodeRequest(r *http.Request) (Request, error) {
	if len(r.TLS.PeerCertificates) == 0 {
		return Request{}, xerrors.Errorf("transport: no client certificate presented")
	}
	req := Request{
		PeerCertificate: r.TLS.PeerCertificates[0].Raw,
		Body:            r.Body,
	}
	if q := r.URL.Query(); len(q) > 0 {
		req.Query = map[string]string{}
		for k := range q {
			req.Query[k] = q.Get(k)
		}
	}
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		off, err := parseRangeOffset(rangeHeader)
		if err != nil {
			return Request{}, err
		}
		req.Range = &ByteRange{Offset: off}
	}
	return req, nil
}

func writeResponse(w http.ResponseWriter, resp Response) int64 {
	if resp.MIMEType != "" {
		w.Header().Set("Content-Type", resp.MIMEType)
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body == nil {
		return 0
	}
	n, _ := copyBody(w, resp.Body)
	return n
}
