package chrome_test

import (
	"context"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/chrome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay_WaitReturnsAfterDuration(t *testing.T) {
	start := time.Now()
	err := chrome.Delay{Duration: 30 * time.Millisecond}.Wait(context.Background(), nil)
	require.Nil(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDelay_WaitRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := chrome.Delay{Duration: time.Second}.Wait(ctx, nil)
	require.NotNil(t, err)
	assert.Equal(t, chrome.ErrCauseWaitTimeout, err.Cause)
}

func TestWaitForAll_StopsAtFirstFailingPolicy(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	composite := chrome.WaitForAll(
		chrome.Delay{Duration: 0},
		chrome.Delay{Duration: time.Second},
	)

	err := composite.Wait(ctx, nil)
	require.NotNil(t, err)
	assert.Equal(t, chrome.ErrCauseWaitTimeout, err.Cause)
}

func TestWaitForAll_SucceedsWhenEveryPolicyDoes(t *testing.T) {
	composite := chrome.WaitForAll(
		chrome.Delay{Duration: time.Millisecond},
		chrome.Delay{Duration: time.Millisecond},
	)
	err := composite.Wait(context.Background(), nil)
	assert.Nil(t, err)
}
