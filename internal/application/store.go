package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/metrics"
	"grateful.app/notifier/internal/syncbus"
)

// syncTimeout bounds each background read-state request.
const syncTimeout = 10 * time.Second

// Store holds one session's notifications: the root list, the derived unread
// count, the batch expansion cache and the set of open batches.
//
// Local mutations are applied before any network call is issued and are never
// rolled back. Ids marked read locally stay read across later loads until the
// server reports a change newer than the local read.
type Store struct {
	api     domain.API
	ledger  domain.ReadLedger
	metrics *metrics.Metrics

	mu        sync.Mutex
	roots     []*domain.Notification
	index     map[string]*domain.Notification
	unread    int
	readLocal map[string]time.Time
	children  map[string][]*domain.Notification // batch id -> cached children
	expanded  map[string]struct{}
	inflight  map[string]struct{}
	issued    uint64
	applied   uint64
	disposed  bool

	// notifyMu serializes taking and delivering snapshots so listeners never
	// see an older state after a newer one.
	notifyMu  sync.Mutex
	listeners map[int]func(Snapshot)
	nextID    int
	detach    []func()

	wg sync.WaitGroup
}

// NewStore creates an empty Store. A nil ledger keeps read marks in memory only.
func NewStore(api domain.API, ledger domain.ReadLedger, m *metrics.Metrics) *Store {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &Store{
		api:       api,
		ledger:    ledger,
		metrics:   m,
		index:     make(map[string]*domain.Notification),
		readLocal: make(map[string]time.Time),
		children:  make(map[string][]*domain.Notification),
		expanded:  make(map[string]struct{}),
		inflight:  make(map[string]struct{}),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Restore seeds the locally-read set from the ledger. Call once before the
// first load.
func (s *Store) Restore(ctx context.Context) error {
	ids, err := s.ledger.ReadIDs(ctx)
	if err != nil {
		return fmt.Errorf("restore read ledger: %w", err)
	}
	s.mu.Lock()
	for id, at := range ids {
		if prev, ok := s.readLocal[id]; !ok || at.After(prev) {
			s.readLocal[id] = at
		}
	}
	s.mu.Unlock()
	log.Debug().Int("ids", len(ids)).Msg("read ledger restored")
	return nil
}

// Attach subscribes the store to profile updates so fromUser fields of roots
// and cached children follow profile edits. Dispose detaches.
func (s *Store) Attach(bus *syncbus.Bus) {
	unsubscribe := bus.Subscribe(syncbus.AnyUser, s.applyProfile)
	s.mu.Lock()
	s.detach = append(s.detach, unsubscribe)
	s.mu.Unlock()
}

// Dispose stops accepting mutations, detaches from the bus and waits for
// outstanding background syncs.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	detach := s.detach
	s.detach = nil
	s.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
	s.wg.Wait()
}

// BeginFetch reserves a sequence number for a list fetch about to be issued.
func (s *Store) BeginFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Load replaces the root list unconditionally.
func (s *Store) Load(list []*domain.Notification) {
	s.Apply(s.BeginFetch(), list)
}

// Apply replaces the root list with the result of fetch seq. Results of a
// fetch issued before the newest applied one are dropped and Apply returns
// false. The expansion cache is untouched; open batches that are no longer
// in the list are closed.
func (s *Store) Apply(seq uint64, list []*domain.Notification) bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	if seq <= s.applied {
		s.mu.Unlock()
		log.Debug().Uint64("seq", seq).Uint64("applied", s.applied).Msg("dropping stale notification list")
		return false
	}
	s.applied = seq

	roots := make([]*domain.Notification, 0, len(list))
	index := make(map[string]*domain.Notification, len(list))
	unread := 0
	for _, n := range list {
		if n == nil {
			continue
		}
		c := n.Clone()
		c.ParentID = ""
		if s.readLocally(c) {
			c.Read = true
		}
		if !c.Read {
			unread++
		}
		roots = append(roots, c)
		index[c.ID] = c
	}
	s.roots = roots
	s.index = index
	s.unread = unread

	for id := range s.expanded {
		if _, ok := index[id]; !ok {
			delete(s.expanded, id)
		}
	}
	s.mu.Unlock()

	s.metrics.SetUnread(unread)
	s.notify()
	return true
}

// MarkRead marks one root or cached child as read. It is a no-op when the
// target is already read. The server is told in the background; a failure
// there is logged and does not undo the local change.
func (s *Store) MarkRead(id string) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	n, isRoot := s.lookup(id)
	if n == nil {
		s.mu.Unlock()
		return fmt.Errorf("mark read %s: %w", id, domain.ErrNotFound)
	}
	if n.Read {
		s.mu.Unlock()
		return nil
	}
	at := time.Now()
	n.Read = true
	if isRoot {
		s.unread--
	}
	s.readLocal[id] = at
	unread := s.unread
	s.background(at, func(ctx context.Context) error { return s.api.MarkRead(ctx, id) }, id)
	s.mu.Unlock()

	s.metrics.SetUnread(unread)
	s.notify()
	return nil
}

// MarkAllRead marks every root and cached child as read and forces the unread
// count to zero.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	at := time.Now()
	ids := make([]string, 0, len(s.roots))
	for _, n := range s.roots {
		n.Read = true
		s.readLocal[n.ID] = at
		ids = append(ids, n.ID)
	}
	for _, kids := range s.children {
		for _, c := range kids {
			c.Read = true
			s.readLocal[c.ID] = at
			ids = append(ids, c.ID)
		}
	}
	s.unread = 0
	s.background(at, s.api.MarkAllRead, ids...)
	s.mu.Unlock()

	s.metrics.SetUnread(0)
	s.notify()
}

// Unread returns the number of root notifications not yet read.
func (s *Store) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Get returns a copy of a root or cached child.
func (s *Store) Get(id string) (*domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := s.lookup(id)
	if n == nil {
		return nil, false
	}
	return n.Clone(), true
}

// Roots returns copies of the current root list in server order.
func (s *Store) Roots() []*domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.roots)
}

// readLocally reports whether n was marked read here after its last server
// change. A batch that folded in a new event since then is unread again.
// Caller holds s.mu.
func (s *Store) readLocally(n *domain.Notification) bool {
	at, ok := s.readLocal[n.ID]
	return ok && !n.DisplayTime().After(at)
}

// lookup finds id among roots first, then among cached children.
// Caller holds s.mu.
func (s *Store) lookup(id string) (n *domain.Notification, isRoot bool) {
	if n, ok := s.index[id]; ok {
		return n, true
	}
	for _, kids := range s.children {
		for _, c := range kids {
			if c.ID == id {
				return c, false
			}
		}
	}
	return nil, false
}

// background records ids in the ledger as read at at and runs the server sync
// off the caller's goroutine. Caller holds s.mu and has checked s.disposed.
func (s *Store) background(at time.Time, call func(ctx context.Context) error, ids ...string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		if err := s.ledger.Record(ctx, at, ids...); err != nil {
			log.Warn().Err(err).Int("ids", len(ids)).Msg("read ledger record failed")
		}
		if err := call(ctx); err != nil {
			s.metrics.ReadSync(metrics.OutcomeFailed)
			log.Debug().Err(err).Strs("ids", ids).Msg("read state sync failed, keeping local state")
			return
		}
		s.metrics.ReadSync(metrics.OutcomeOK)
	}()
}

func (s *Store) applyProfile(u domain.ProfileUpdate) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	changed := false
	merge := func(n *domain.Notification) {
		if n.FromUser != nil && n.FromUser.ID == u.UserID {
			u.Patch.Apply(n.FromUser)
			changed = true
		}
	}
	for _, n := range s.roots {
		merge(n)
	}
	for _, kids := range s.children {
		for _, c := range kids {
			merge(c)
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func cloneAll(list []*domain.Notification) []*domain.Notification {
	out := make([]*domain.Notification, len(list))
	for i, n := range list {
		out[i] = n.Clone()
	}
	return out
}
