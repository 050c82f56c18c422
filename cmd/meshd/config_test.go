package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDaemonConfigDefaults(t *testing.T) {
	cfg, err := loadDaemonConfig(nil, "")
	require.NoError(t, err)
	require.Equal(t, "me", cfg.nickname)
	require.Equal(t, "127.0.0.1:0", cfg.serverAddr)
	require.Equal(t, "127.0.0.1:4321", cfg.controlAddr)
}

func TestLoadDaemonConfigOverridesFromFlags(t *testing.T) {
	cfg, err := loadDaemonConfig([]string{
		"-nickname", "alice",
		"-server-addr", "127.0.0.1:9000",
	}, "")
	require.NoError(t, err)
	require.Equal(t, "alice", cfg.nickname)
	require.Equal(t, "127.0.0.1:9000", cfg.serverAddr)
}

func TestLoadDaemonConfigIgnoresUnrelatedPrefsFlags(t *testing.T) {
	// exchange-files-wifi-only belongs to prefs.Load's flag set, not this
	// one; loadDaemonConfig must tolerate it rather than erroring.
	_, err := loadDaemonConfig([]string{"-exchange-files-wifi-only"}, "")
	require.NoError(t, err)
}
