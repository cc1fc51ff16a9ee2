package application_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"grateful.app/notifier/internal/domain"
)

var errNetwork = errors.New("network down")

// fakeAPI is an in-memory domain.API that counts calls.
type fakeAPI struct {
	mu          sync.Mutex
	list        []*domain.Notification
	listErr     error
	children    map[string][]*domain.Notification
	childrenErr error
	syncErr     error

	listCalls    int
	childCalls   map[string]int
	markRead     []string
	markAllCalls int

	// When set, Children blocks until the channel is closed.
	childGate chan struct{}
	// When set, List signals listStarted and blocks until listGate is closed.
	listGate    chan struct{}
	listStarted chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		children:   make(map[string][]*domain.Notification),
		childCalls: make(map[string]int),
	}
}

func (f *fakeAPI) List(ctx context.Context) ([]*domain.Notification, error) {
	f.mu.Lock()
	f.listCalls++
	gate, started := f.listGate, f.listStarted
	f.mu.Unlock()

	if gate != nil {
		if started != nil {
			select {
			case started <- struct{}{}:
			default:
			}
		}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *fakeAPI) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markRead = append(f.markRead, id)
	return f.syncErr
}

func (f *fakeAPI) MarkAllRead(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markAllCalls++
	return f.syncErr
}

func (f *fakeAPI) Children(_ context.Context, batchID string) ([]*domain.Notification, error) {
	f.mu.Lock()
	f.childCalls[batchID]++
	gate := f.childGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.childrenErr != nil {
		return nil, f.childrenErr
	}
	return f.children[batchID], nil
}

func (f *fakeAPI) setList(list []*domain.Notification) {
	f.mu.Lock()
	f.list = list
	f.mu.Unlock()
}

func (f *fakeAPI) calls() (list int, children map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := make(map[string]int, len(f.childCalls))
	for k, v := range f.childCalls {
		c[k] = v
	}
	return f.listCalls, c
}

func root(id string, read bool) *domain.Notification {
	return &domain.Notification{
		ID:        id,
		Type:      domain.TypeReaction,
		Message:   "someone reacted to your post",
		Detail:    domain.ReactionDetail{PostID: "p-" + id, Emoji: "🙏"},
		FromUser:  &domain.UserRef{ID: "u-" + id, Name: "User " + id, Image: "img-" + id},
		CreatedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Read:      read,
	}
}

func batch(id string, count int) *domain.Notification {
	return &domain.Notification{
		ID:         id,
		Type:       domain.TypeReaction,
		Message:    "people reacted to your post",
		Detail:     domain.ReactionDetail{PostID: "p-" + id},
		CreatedAt:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		IsBatch:    true,
		BatchCount: count,
	}
}

func countUnread(list []*domain.Notification) int {
	n := 0
	for _, x := range list {
		if !x.Read {
			n++
		}
	}
	return n
}

// eventually polls cond until it holds or the deadline passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
