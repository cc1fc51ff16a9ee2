// Package registry provides a lightweight event handler registry for Kafka events.
// Each domain handler registers itself via init(), so the consumer does not
// change when a new event type is added.
package registry

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"grateful.app/notifier/internal/domain"
)

// EventHandler maps raw Kafka message bytes to a profile update.
// Returning nil means "skip this event".
type EventHandler func(data []byte) *domain.ProfileUpdate

var (
	mu       sync.RWMutex
	handlers = map[string]EventHandler{}
)

// Register binds a handler to a {topic}:{eventType} key.
// Panics on duplicate registration to catch wiring mistakes early.
func Register(topic, eventType string, h EventHandler) {
	key := topic + ":" + eventType

	mu.Lock()
	defer mu.Unlock()
	if _, exists := handlers[key]; exists {
		panic("registry: duplicate handler registered for key: " + key)
	}
	handlers[key] = h
}

// Dispatch looks up and calls the handler for the given topic and the
// "eventType" field of data. Returns nil if no handler matches or data cannot
// be parsed.
func Dispatch(topic string, data []byte) *domain.ProfileUpdate {
	var probe struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		log.Warn().Str("topic", topic).Err(err).Msg("registry: failed to probe eventType")
		return nil
	}

	key := topic + ":" + probe.EventType
	mu.RLock()
	h, ok := handlers[key]
	mu.RUnlock()
	if !ok {
		log.Debug().Str("key", key).Msg("registry: no handler registered")
		return nil
	}
	return h(data)
}
