package main

import (
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3"
	"github.com/tethermesh/sync/prefs"
)

// daemonConfig holds the identity/network flags meshd needs beyond the
// Preferences Snapshot (prefs.Load governs policy; this governs wiring),
// parsed with the same peterbourgon/ff precedence chain.
type daemonConfig struct {
	nickname      string
	certFile      string
	keyFile       string
	hiddenKeyFile string
	serverAddr    string
	controlAddr   string
}

// loadDaemonConfig parses identity/network flags. configFile, if non-empty,
// is the path the caller (main) found on the -config flag, mirroring how
// prefs.Load accepts its own config path.
func loadDaemonConfig(args []string, configFile string) (*daemonConfig, error) {
	fs := flag.NewFlagSet("meshd", flag.ContinueOnError)

	cfg := &daemonConfig{}
	fs.StringVar(&cfg.nickname, "nickname", "me", "local nickname recorded in the bundled store")
	fs.StringVar(&cfg.certFile, "cert", "meshd.crt", "PEM-encoded self certificate presented to friends")
	fs.StringVar(&cfg.keyFile, "key", "meshd.key", "PEM-encoded private key for cert")
	fs.StringVar(&cfg.hiddenKeyFile, "hidden-key", "", "hidden-service private key material, if any")
	fs.StringVar(&cfg.serverAddr, "server-addr", "127.0.0.1:0", "address the mutually-authenticated server listens on")
	fs.StringVar(&cfg.controlAddr, "control-addr", "127.0.0.1:4321", "address meshctl talks to")
	fs.String("config", "", "optional config file, same keys as flags")

	// Preferences flags (exchange-files-wifi-only, etc.) belong to
	// prefs.Load's own flag set, parsed separately against the same args.
	// The command line is parsed by the plain flag package, which rejects
	// any flag it does not define (ff.WithIgnoreUndefined only affects the
	// config file), so they are declared here as placeholders whose values
	// this loader ignores.
	for _, name := range []string{prefs.KeyFilesOnWifiOnly, prefs.KeyAutomaticLocation, prefs.KeyLimitLocationTime} {
		fs.Bool(name, false, "read by prefs.Load")
	}
	for _, name := range []string{prefs.KeyLimitLocationNotBefore, prefs.KeyLimitLocationNotAfter, prefs.KeyLimitLocationDay, prefs.KeyMaxDownloadRate} {
		fs.String(name, "", "read by prefs.Load")
	}
	opts := []ff.Option{ff.WithEnvVarPrefix("MESHD"), ff.WithIgnoreUndefined(true)}
	if configFile != "" {
		opts = append(opts, ff.WithConfigFile(configFile), ff.WithConfigFileParser(ff.PlainParser))
	}
	if err := ff.Parse(fs, args, opts...); err != nil {
		return nil, fmt.Errorf("meshd: parse config: %w", err)
	}
	return cfg, nil
}
