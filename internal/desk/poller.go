package desk

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller runs a refresh function on a fixed interval for the lifetime of
// a view. Stop is idempotent, and cancellation is visible to the running
// function through its context, so a response that arrives after Stop
// can be discarded instead of applied.
type Poller struct {
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce *sync.Once
}

// NewPoller creates a poller with the given interval.
func NewPoller(interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{interval: interval, logger: logger}
}

// Start launches the polling loop. The function runs once immediately,
// then on every tick. A slow call delays only the cycle that issued it.
func (p *Poller) Start(ctx context.Context, fn func(ctx context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return // already running
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.stopOnce = &sync.Once{}

	p.logger.Info("Starting poll loop", zap.Duration("interval", p.interval))

	go func(done chan struct{}) {
		defer close(done)

		fn(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("Poll loop stopped")
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}(p.done)
}

// Stop cancels the loop and waits for the current cycle to return.
// Calling Stop more than once, or before Start, is harmless.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done, once := p.cancel, p.done, p.stopOnce
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	once.Do(func() {
		cancel()
		<-done
	})
}
