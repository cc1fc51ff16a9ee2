package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/metrics"
)

// Toggle opens or closes a batch and reports whether it is open afterwards.
//
// Closing never touches the network. Opening a batch whose children are
// cached is served from the cache. Otherwise the children are fetched once;
// on failure the batch stays closed and the error is returned. While a fetch
// for batchID is pending, further toggles of that batch are no-ops.
//
// A fetch that completes after the view lost interest still fills the cache.
// It only opens the batch if the batch is still in the root list.
func (s *Store) Toggle(ctx context.Context, batchID string) (bool, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false, nil
	}
	n, ok := s.index[batchID]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("toggle %s: %w", batchID, domain.ErrNotFound)
	}
	if !n.IsBatch {
		s.mu.Unlock()
		return false, fmt.Errorf("toggle %s: %w", batchID, domain.ErrNotBatch)
	}

	if _, open := s.expanded[batchID]; open {
		delete(s.expanded, batchID)
		s.mu.Unlock()
		s.notify()
		return false, nil
	}
	if _, cached := s.children[batchID]; cached {
		s.expanded[batchID] = struct{}{}
		s.mu.Unlock()
		s.notify()
		return true, nil
	}
	if _, pending := s.inflight[batchID]; pending {
		s.mu.Unlock()
		log.Debug().Str("batch", batchID).Msg("batch fetch already in flight")
		return false, nil
	}
	s.inflight[batchID] = struct{}{}
	s.mu.Unlock()

	kids, err := s.api.Children(ctx, batchID)

	s.mu.Lock()
	delete(s.inflight, batchID)
	if err != nil {
		s.mu.Unlock()
		s.metrics.BatchFetch(metrics.OutcomeFailed)
		log.Debug().Err(err).Str("batch", batchID).Msg("batch expansion failed")
		return false, fmt.Errorf("fetch children of %s: %w", batchID, err)
	}
	if s.disposed {
		s.mu.Unlock()
		return false, nil
	}

	cached := make([]*domain.Notification, 0, len(kids))
	for _, k := range kids {
		if k == nil {
			continue
		}
		c := k.AsChildOf(batchID)
		if s.readLocally(c) {
			c.Read = true
		}
		cached = append(cached, c)
	}
	s.children[batchID] = cached

	// A load may have dropped the batch while the fetch was pending; keep the
	// cache but do not open a batch that has no root.
	open := false
	if n, ok := s.index[batchID]; ok && n.IsBatch {
		s.expanded[batchID] = struct{}{}
		open = true
	}
	s.mu.Unlock()

	s.metrics.BatchFetch(metrics.OutcomeOK)
	s.notify()
	return open, nil
}

// Invalidate evicts the cached children of a batch so the next expansion
// fetches again. An open batch is closed.
func (s *Store) Invalidate(batchID string) {
	s.mu.Lock()
	_, cached := s.children[batchID]
	delete(s.children, batchID)
	delete(s.expanded, batchID)
	s.mu.Unlock()

	if cached {
		s.notify()
	}
}

// Expanded reports whether batchID is currently open.
func (s *Store) Expanded(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, open := s.expanded[batchID]
	return open
}

// Children returns copies of the cached children of batchID, if any.
func (s *Store) Children(batchID string) ([]*domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kids, ok := s.children[batchID]
	if !ok {
		return nil, false
	}
	return cloneAll(kids), true
}
