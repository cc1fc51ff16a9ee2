package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/metrics"
)

// DefaultPollInterval is the fixed refresh period.
const DefaultPollInterval = 30 * time.Second

// ErrPollerStopped is returned by Refresh after Stop.
var ErrPollerStopped = errors.New("poller stopped")

// Poller keeps a Store approximately fresh by re-fetching the root list on a
// fixed interval. There is no backoff: a failed fetch leaves the store as it
// was until the next tick.
type Poller struct {
	store    *Store
	api      domain.API
	interval time.Duration
	metrics  *metrics.Metrics

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a stopped Poller. A non-positive interval means DefaultPollInterval.
func NewPoller(store *Store, api domain.API, interval time.Duration, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		store:    store,
		api:      api,
		interval: interval,
		metrics:  m,
		done:     make(chan struct{}),
	}
}

// Start fetches immediately and then on every interval until Stop is called
// or ctx is cancelled. Calling Start more than once has no effect.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

// Stop ends the loop. Once Stop returns no fetch result reaches the store,
// including one that is in flight right now. Stop does not wait for that
// fetch to return; use Done for that.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	} else {
		close(p.done)
	}
}

// Done is closed once the loop goroutine has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Refresh performs one fetch on the caller's goroutine. It can overlap with a
// scheduled fetch; the store keeps whichever was issued last.
func (p *Poller) Refresh(ctx context.Context) error {
	if p.isStopped() {
		return ErrPollerStopped
	}
	return p.poll(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", p.interval).Msg("notification poller started")
	p.pollLogged(ctx)
	for {
		select {
		case <-ticker.C:
			p.pollLogged(ctx)
		case <-ctx.Done():
			log.Info().Msg("notification poller stopped")
			return
		}
	}
}

func (p *Poller) pollLogged(ctx context.Context) {
	if err := p.poll(ctx); err != nil && !errors.Is(err, ErrPollerStopped) {
		log.Debug().Err(err).Msg("notification poll failed, keeping previous state")
	}
}

func (p *Poller) poll(ctx context.Context) error {
	seq := p.store.BeginFetch()
	list, err := p.api.List(ctx)

	// Holding p.mu across Apply is what lets Stop promise that nothing reaches
	// the store after it returns.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPollerStopped
	}
	if err != nil {
		p.metrics.Poll(metrics.OutcomeFailed)
		return fmt.Errorf("poll notifications: %w", err)
	}
	if !p.store.Apply(seq, list) {
		p.metrics.Poll(metrics.OutcomeStale)
		return nil
	}
	p.metrics.Poll(metrics.OutcomeOK)
	return nil
}

func (p *Poller) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}
