package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govlens-inc/govlens-engine/pkg/llm"
	"github.com/govlens-inc/govlens-engine/pkg/retry"
)

func fastConfig() *retry.Config {
	return &retry.Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	wantErr := errors.New("permanent")
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
}

func TestDo_StopsOnDeclaredPermanentError(t *testing.T) {
	calls := 0
	wantErr := llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, nil)
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls, "explicitly non-retryable errors skip the retry budget")
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry.Do(ctx, fastConfig(), func() error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := retry.DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, retry.IsRetryable(nil))
	assert.True(t, retry.IsRetryable(errors.New("dial tcp: connection refused")))
	assert.True(t, retry.IsRetryable(errors.New("HTTP 503 from upstream")))
	assert.False(t, retry.IsRetryable(errors.New("syntax error at line 3")))

	// llm.Error declares retryability explicitly
	assert.True(t, retry.IsRetryable(llm.NewError(llm.ErrorTypeEndpoint, "server error", true, errors.New("HTTP 503"))))
	assert.False(t, retry.IsRetryable(llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, errors.New("HTTP 401"))))
}
