package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ErrCircuitOpen is returned while the publisher is backing off a failing broker.
var ErrCircuitOpen = errors.New("event publisher circuit open")

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes events as JSON records keyed by entity id, so all
// events of one entity land on one partition in order.
type KafkaPublisher struct {
	producer Producer
	topic    string
	breaker  *breaker
	timeout  time.Duration
}

const defaultPublishTimeout = 2 * time.Second

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

// WithBreaker sets how many consecutive failures open the circuit and how
// long it stays open.
func WithBreaker(threshold int, cooldown time.Duration) KafkaOption {
	return func(p *KafkaPublisher) {
		p.breaker = newBreaker(threshold, cooldown)
	}
}

// WithPublishTimeout bounds how long one Publish waits for the broker.
func WithPublishTimeout(d time.Duration) KafkaOption {
	return func(p *KafkaPublisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewKafkaPublisher(producer Producer, topic string, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		breaker:  newBreaker(0, 0),
		timeout:  defaultPublishTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if !p.breaker.allow() {
		return ErrCircuitOpen
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Resource + ":" + event.EntityID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "request-id", Value: []byte(event.RequestID)},
		},
		Timestamp: event.OccurredAt,
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.breaker.failure()
		return fmt.Errorf("produce event to %s: %w", p.topic, err)
	}
	p.breaker.success()
	return nil
}
