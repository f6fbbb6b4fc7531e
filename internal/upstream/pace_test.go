package upstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacerSpacesRequests(t *testing.T) {
	p := newPacer(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.wait(ctx))
	}
	// First slot is immediate; the next two wait an interval each.
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestPacerZeroIntervalNeverBlocks(t *testing.T) {
	p := newPacer(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.wait(context.Background()))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacerHonorsCancellation(t *testing.T) {
	p := newPacer(time.Minute)
	require.NoError(t, p.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.wait(ctx), context.DeadlineExceeded)
}
