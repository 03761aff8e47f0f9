package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_BoundsConcurrency(t *testing.T) {
	p := New(2)
	var inFlight int32
	var maxInFlight int32
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Run(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				mu.Lock()
				if n > maxInFlight {
					maxInFlight = n
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxInFlight, int32(2))
}

func TestRun_PropagatesCancellation(t *testing.T) {
	p := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestTryRun_FalseWhenSaturated(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = p.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ran, err := p.TryRun(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.False(t, ran)

	close(release)
}
