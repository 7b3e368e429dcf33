// Package kafka builds the franz-go client used to publish lifecycle events.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"baseresource/internal/platform/config"
)

// New returns a producer client for cfg.Brokers with cfg.Topic as the default
// topic. It does not contact the brokers; use Ping or EnsureTopic for that.
func New(cfg config.KafkaConfig) (*kgo.Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka: no brokers configured")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return client, nil
}

// TopicCreator is the admin call EnsureTopic needs; *kadm.Client satisfies it.
type TopicCreator interface {
	CreateTopics(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topics ...string) (kadm.CreateTopicResponses, error)
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, admin TopicCreator, topic string, partitions int32, replicationFactor int16) error {
	resp, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	result, ok := resp[topic]
	if !ok {
		return fmt.Errorf("create topic %s: no response", topic)
	}
	if result.Err != nil && !errors.Is(result.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, result.Err)
	}
	return nil
}

// NewAdmin wraps client for administrative requests.
func NewAdmin(client *kgo.Client) *kadm.Client {
	return kadm.NewClient(client)
}
