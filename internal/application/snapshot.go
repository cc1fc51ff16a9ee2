package application

import (
	"sort"

	"grateful.app/notifier/internal/domain"
)

// Snapshot is a consistent copy of the store for rendering.
type Snapshot struct {
	Roots    []*domain.Notification            `json:"roots"`
	Unread   int                               `json:"unread"`
	Expanded []string                          `json:"expanded"`
	Children map[string][]*domain.Notification `json:"children"`
}

// Snapshot copies the current state. Children holds only open batches.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Roots:    cloneAll(s.roots),
		Unread:   s.unread,
		Expanded: make([]string, 0, len(s.expanded)),
		Children: make(map[string][]*domain.Notification, len(s.expanded)),
	}
	for id := range s.expanded {
		snap.Expanded = append(snap.Expanded, id)
		snap.Children[id] = cloneAll(s.children[id])
	}
	sort.Strings(snap.Expanded)
	return snap
}

// OnChange registers fn to receive a snapshot after every mutation.
// fn runs on the mutating goroutine and must not block or mutate the store.
// Snapshots reach listeners in the order they were taken.
func (s *Store) OnChange(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
