package spendable

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatest_SupersededCallIsDiscarded(t *testing.T) {
	var l Latest[uint64]
	started := make(chan struct{})

	var (
		wg       sync.WaitGroup
		firstVal uint64
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstVal, firstErr = l.Do(t.Context(), func(ctx context.Context) (uint64, error) {
			close(started)
			<-ctx.Done()
			return 1, nil
		})
	}()

	<-started
	v, err := l.Do(t.Context(), func(context.Context) (uint64, error) { return 2, nil })
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)
	assert.ErrorIs(t, firstErr, ErrSuperseded)
	assert.Zero(t, firstVal)
}

func TestLatest_SequentialCallsComplete(t *testing.T) {
	var l Latest[string]
	for _, want := range []string{"a", "b"} {
		got, err := l.Do(t.Context(), func(context.Context) (string, error) { return want, nil })
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLatest_ParentCancel(t *testing.T) {
	var l Latest[int]
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := l.Do(ctx, func(ctx context.Context) (int, error) { return 0, ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
}
