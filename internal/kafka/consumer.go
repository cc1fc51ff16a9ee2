package kafka

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"
	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/kafka/registry"

	// Blank import triggers init() in each handler file,
	// registering all event handlers into the registry.
	_ "grateful.app/notifier/internal/kafka/handlers"
)

// Publisher receives decoded profile updates. *syncbus.Bus satisfies it.
type Publisher interface {
	Publish(userID string, patch domain.ProfilePatch) int
}

// Consumer wraps the franz-go Kafka client and republishes profile events
// onto the in-process bus.
type Consumer struct {
	client *kgo.Client
	bus    Publisher
}

// New creates a Consumer with the given brokers, group ID, and topics.
func New(brokers []string, groupID string, topics []string, bus Publisher) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client, bus: bus}, nil
}

// Start polls Kafka and processes records. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	log.Info().Msg("kafka consumer started")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("kafka fetch error")
		})

		fetches.EachRecord(func(r *kgo.Record) {
			Process(c.bus, r.Topic, r.Value)
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Error().Err(err).Msg("kafka commit error")
		}
	}

	c.client.Close()
	log.Info().Msg("kafka consumer stopped")
}

// Process dispatches one record through the registry and publishes the
// resulting update. It reports whether anything was published.
func Process(bus Publisher, topic string, value []byte) bool {
	update := registry.Dispatch(topic, value)
	if update == nil {
		log.Debug().Str("topic", topic).Msg("no handler matched, skipping")
		return false
	}

	delivered := bus.Publish(update.UserID, update.Patch)
	log.Debug().
		Str("topic", topic).
		Str("user", update.UserID).
		Int("subscribers", delivered).
		Msg("profile update republished")
	return true
}
