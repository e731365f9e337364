package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitPermitsUpToCountImmediately(t *testing.T) {
	b := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Wait(ctx, "k", 3, time.Minute))
	}
}

func TestWaitBlocksBeyondBudgetUntilContextCancelled(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, b.Wait(context.Background(), "k", 1, time.Hour))

	err := b.Wait(ctx, "k", 1, time.Hour)
	assert.Error(t, err, "second call should block past the context deadline")
}

func TestNonPositiveCountIsUnthrottled(t *testing.T) {
	b := New()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, b.Wait(ctx, "k", 0, 0))
	}
}

func TestDistinctKeysHaveIndependentBudgets(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, b.Wait(context.Background(), "a", 1, time.Hour))
	require.NoError(t, b.Wait(ctx, "b", 1, time.Hour), "distinct key must not share a's exhausted budget")
}
