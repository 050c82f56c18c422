package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterControlAddrFlagSetsDefault(t *testing.T) {
	fs := newStatusFlagSet()
	require.NoError(t, fs.Parse(nil))
	f := fs.Lookup("control-addr")
	require.NotNil(t, f)
	require.Equal(t, "127.0.0.1:4321", f.DefValue)
}

func TestRegisterControlAddrFlagAcceptsOverride(t *testing.T) {
	fs := newStatusFlagSet()
	require.NoError(t, fs.Parse([]string{"-control-addr", "127.0.0.1:9999"}))
	require.Equal(t, "127.0.0.1:9999", controlAddr)
}

func TestStatusCmdMetadata(t *testing.T) {
	require.Equal(t, "status", StatusCmd.Name)
	require.NotNil(t, StatusCmd.Exec)
	require.NotNil(t, StatusCmd.FlagSet)
}

func TestRestartCmdDefaultsToConfirmationPrompt(t *testing.T) {
	fs := newRestartFlagSet()
	require.NoError(t, fs.Parse(nil))
	require.False(t, restartYes)

	require.NoError(t, fs.Parse([]string{"-yes"}))
	require.True(t, restartYes)
}

func TestRestartCmdMetadata(t *testing.T) {
	require.Equal(t, "restart", RestartCmd.Name)
	require.NotNil(t, RestartCmd.Exec)
}
