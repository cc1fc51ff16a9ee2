// Package syncbus propagates profile changes to every view currently showing
// the affected user, without threading callbacks through intermediate layers.
//
// Delivery is synchronous and in-process. There is no persistence and no
// replay: a subscriber only sees publishes that happen while it is registered.
package syncbus

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"grateful.app/notifier/internal/domain"
)

// Predicate decides whether a subscriber is interested in a user's updates.
type Predicate func(userID string) bool

// Handler receives the partial patch. It must merge, not overwrite.
type Handler func(update domain.ProfileUpdate)

type subscription struct {
	id        uuid.UUID
	predicate Predicate
	handler   Handler
}

// Bus is a small pub/sub for profile updates.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscription
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// ForUser returns a predicate matching exactly one user id.
func ForUser(userID string) Predicate {
	return func(id string) bool { return id == userID }
}

// AnyUser matches every update.
func AnyUser(string) bool { return true }

// Subscribe registers a handler and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(predicate Predicate, handler Handler) (unsubscribe func()) {
	if predicate == nil {
		predicate = AnyUser
	}
	s := &subscription{id: uuid.New(), predicate: predicate, handler: handler}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	log.Debug().Str("subscription", s.id.String()).Msg("syncbus subscriber added")

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s) })
	}
}

func (b *Bus) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	updated := make([]*subscription, 0, len(b.subs))
	for _, existing := range b.subs {
		if existing != s {
			updated = append(updated, existing)
		}
	}
	b.subs = updated

	log.Debug().Str("subscription", s.id.String()).Msg("syncbus subscriber removed")
}

// Publish delivers the patch to every matching subscriber before returning.
// Handlers run outside the bus lock so they may subscribe or unsubscribe.
// It returns the number of subscribers that received the update.
func (b *Bus) Publish(userID string, patch domain.ProfilePatch) int {
	if patch.Empty() {
		return 0
	}

	b.mu.RLock()
	targets := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.predicate(userID) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	update := domain.ProfileUpdate{UserID: userID, Patch: patch}
	for _, s := range targets {
		s.handler(update)
	}
	return len(targets)
}

// Len returns the number of registered subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
