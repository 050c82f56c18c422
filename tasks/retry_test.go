package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := doWithRetry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestDoWithRetryGivesUpAfterRetryAttempts(t *testing.T) {
	attempts := 0
	wantErr := errors.New("persistent")
	err := doWithRetry(context.Background(), func() error {
		attempts++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, retryAttempts, attempts)
}

func TestDoWithRetryAbortsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := doWithRetry(ctx, func() error {
		attempts++
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}
