package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanFlagFindsNamedValueAmongOthers(t *testing.T) {
	args := []string{"-nickname", "alice", "-config", "/tmp/meshd.conf", "-exchange-files-wifi-only"}
	require.Equal(t, "/tmp/meshd.conf", scanFlag(args, "config"))
	require.Equal(t, "alice", scanFlag(args, "nickname"))
}

func TestScanFlagReturnsEmptyWhenAbsent(t *testing.T) {
	require.Equal(t, "", scanFlag([]string{"-nickname", "alice"}, "config"))
}

func TestLoadOrCreateSelfCertGeneratesOnFirstRun(t *testing.T) {
	dir, err := ioutil.TempDir("", "meshd-cert")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	certFile := filepath.Join(dir, "meshd.crt")
	keyFile := filepath.Join(dir, "meshd.key")

	cert1, err := loadOrCreateSelfCert(certFile, keyFile)
	require.NoError(t, err)

	cert2, err := loadOrCreateSelfCert(certFile, keyFile)
	require.NoError(t, err)
	require.Equal(t, cert1.Certificate, cert2.Certificate)
}
