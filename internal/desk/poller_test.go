package desk

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPoller(t *testing.T) {
	t.Run("RunsOnInterval", func(t *testing.T) {
		var ticks atomic.Int32
		p := NewPoller(10*time.Millisecond, zap.NewNop())

		p.Start(context.Background(), func(ctx context.Context) {
			ticks.Add(1)
		})

		assert.Eventually(t, func() bool {
			return ticks.Load() >= 3
		}, time.Second, 5*time.Millisecond)

		p.Stop()
		settled := ticks.Load()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, settled, ticks.Load())
	})

	t.Run("StopIsIdempotent", func(t *testing.T) {
		p := NewPoller(10*time.Millisecond, zap.NewNop())
		p.Stop() // before Start

		p.Start(context.Background(), func(ctx context.Context) {})
		p.Stop()
		p.Stop()
	})

	t.Run("StopSuppressesInFlightEffect", func(t *testing.T) {
		var applied atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})

		p := NewPoller(time.Hour, zap.NewNop())
		p.Start(context.Background(), func(ctx context.Context) {
			close(started)
			<-release
			// The cycle was cancelled while the response was in flight.
			if ctx.Err() != nil {
				return
			}
			applied.Add(1)
		})

		<-started
		go func() {
			time.Sleep(20 * time.Millisecond)
			close(release)
		}()
		p.Stop()

		assert.Equal(t, int32(0), applied.Load())
	})

	t.Run("ParentCancelStopsLoop", func(t *testing.T) {
		var ticks atomic.Int32
		ctx, cancel := context.WithCancel(context.Background())

		p := NewPoller(10*time.Millisecond, zap.NewNop())
		p.Start(ctx, func(ctx context.Context) {
			ticks.Add(1)
		})

		assert.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, 5*time.Millisecond)
		cancel()
		time.Sleep(30 * time.Millisecond)
		settled := ticks.Load()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, settled, ticks.Load())
	})
}
