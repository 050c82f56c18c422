package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRangeOffset(t *testing.T) {
	off, err := parseRangeOffset("bytes=128-")
	require.NoError(t, err)
	require.Equal(t, int64(128), off)

	off, err = parseRangeOffset("bytes=0-")
	require.NoError(t, err)
	require.Equal(t, int64(0), off)
}

func TestParseRangeOffsetRejectsMalformed(t *testing.T) {
	_, err := parseRangeOffset("nonsense")
	require.Error(t, err)

	_, err = parseRangeOffset("bytes=abc-")
	require.Error(t, err)

	_, err = parseRangeOffset("bytes=10")
	require.Error(t, err)
}

func TestRangeHeaderRoundTrips(t *testing.T) {
	h := rangeHeader(42)
	require.Equal(t, "bytes=42-", h)
	off, err := parseRangeOffset(h)
	require.NoError(t, err)
	require.Equal(t, int64(42), off)
}
