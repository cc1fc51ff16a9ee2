package application

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MemoryLedger is a process-local domain.ReadLedger.
type MemoryLedger struct {
	mu  sync.RWMutex
	ids map[string]time.Time
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{ids: make(map[string]time.Time)}
}

func (l *MemoryLedger) Record(_ context.Context, at time.Time, ids ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		if prev, ok := l.ids[id]; !ok || at.After(prev) {
			l.ids[id] = at
		}
	}
	return nil
}

func (l *MemoryLedger) ReadIDs(context.Context) (map[string]time.Time, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]time.Time, len(l.ids))
	for id, at := range l.ids {
		out[id] = at
	}
	return out, nil
}

func (l *MemoryLedger) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for id, at := range l.ids {
		if at.Before(cutoff) {
			delete(l.ids, id)
			n++
		}
	}
	return n, nil
}

// PurgeLedger drops ledger records older than days. Called by a background
// scheduler; failures are logged only.
func (s *Store) PurgeLedger(ctx context.Context, days int) {
	count, err := s.ledger.PurgeOlderThan(ctx, days)
	if err != nil {
		log.Error().Err(err).Msg("read ledger purge failed")
		return
	}
	log.Info().Int64("deleted", count).Int("older_than_days", days).Msg("read ledger purge completed")
}
