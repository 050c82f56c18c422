// Command meshd is the daemon binary: it wires the engine to concrete
// collaborators (the bundled store, a loopback stand-in circuit, loaded
// preferences) and serves the control socket meshctl talks to.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"io/ioutil"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	jsonrpc "github.com/filecoin-project/go-jsonrpc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tethermesh/sync/control"
	"github.com/tethermesh/sync/engine"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/prefs"
	"github.com/tethermesh/sync/store"
	"github.com/tethermesh/sync/store/memstore"
	"github.com/tethermesh/sync/transport"
)

func main() {
	instanceID := uuid.NewString()
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("instance", instanceID).Logger()

	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("meshd: fatal")
	}
}

func run(args []string) error {
	configFile := scanFlag(args, "config")

	cfg, err := loadDaemonConfig(args, configFile)
	if err != nil {
		return err
	}
	prefSnap, err := prefs.Load(args, configFile)
	if err != nil {
		return err
	}

	selfCert, err := loadOrCreateSelfCert(cfg.certFile, cfg.keyFile)
	if err != nil {
		return err
	}

	var hiddenKey []byte
	if cfg.hiddenKeyFile != "" {
		hiddenKey, err = ioutil.ReadFile(cfg.hiddenKeyFile)
		if err != nil {
			return err
		}
	}

	st := memstore.New(store.Self{ID: model.FriendId(instanceID), Nickname: cfg.nickname})

	eng := engine.New(engine.Options{
		Store:      st,
		NewCircuit: transport.NewLoopCircuit,
		ServerAddr: cfg.serverAddr,
		SelfCert:   selfCert,
		HiddenKey:  hiddenKey,
		Prefs:      prefSnap,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop(ctx)

	closeControl, err := serveControl(cfg.controlAddr, eng)
	if err != nil {
		return err
	}
	defer closeControl()

	log.Info().Str("control-addr", cfg.controlAddr).Msg("meshd: running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("meshd: shutting down")
	return nil
}

// serveControl registers the control backend under a JSON-RPC HTTP
// endpoint and starts serving it in the background.
func serveControl(addr string, eng *engine.Engine) (func(), error) {
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register(control.Namespace, &control.Backend{Engine: eng})

	mux := http.NewServeMux()
	mux.Handle("/rpc/v0", rpcServer)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("meshd: control socket serve")
		}
	}()
	return func() {
		_ = srv.Close()
	}, nil
}

// loadOrCreateSelfCert loads the configured key pair, or generates a
// throwaway self-signed one if neither file exists yet, so meshd can run
// standalone on a fresh checkout without a separate provisioning step.
func loadOrCreateSelfCert(certFile, keyFile string) (tls.Certificate, error) {
	if _, err := os.Stat(certFile); err == nil {
		if _, err := os.Stat(keyFile); err == nil {
			return tls.LoadX509KeyPair(certFile, keyFile)
		}
	}
	return generateSelfSignedCert(certFile, keyFile)
}

// scanFlag makes a throwaway pass over args to find a flag's value before
// the real flag sets (daemonConfig's and prefs.Load's) are parsed, since
// ff.WithConfigFile must be configured up front.
func scanFlag(args []string, name string) string {
	fs := flag.NewFlagSet("meshd-prescan", flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	fs.Bool("exchange-files-wifi-only", false, "")
	fs.Bool("automatic-location-sharing", false, "")
	fs.Bool("limit-location-sharing-time", false, "")
	fs.String("limit-location-sharing-time-not-before", "", "")
	fs.String("limit-location-sharing-time-not-after", "", "")
	fs.String("limit-location-sharing-day", "", "")
	fs.String("max-download-rate", "", "")
	fs.String("nickname", "", "")
	fs.String("cert", "", "")
	fs.String("key", "", "")
	fs.String("hidden-key", "", "")
	fs.String("server-addr", "", "")
	fs.String("control-addr", "", "")
	fs.String("config", "", "")
	_ = fs.Parse(args)
	if f := fs.Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}
