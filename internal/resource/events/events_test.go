package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"baseresource/pkg/requestcontext"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	// stall makes ProduceSync wait for the context like an unreachable broker.
	stall bool
}

func (f *fakeProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	if f.stall {
		<-ctx.Done()
		for _, r := range rs {
			results = append(results, kgo.ProduceResult{Record: r, Err: ctx.Err()})
		}
		return results
	}
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func testContext() context.Context {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return requestcontext.WithRequestID(ctx, "req-1")
}

func TestNewEvent(t *testing.T) {
	event := New(testContext(), TypeDeleted, "base", 7)

	assert.NotEmpty(t, event.ID.String())
	assert.Equal(t, TypeDeleted, event.Type)
	assert.Equal(t, "base", event.Resource)
	assert.EqualValues(t, 7, event.EntityID)
	assert.Equal(t, "req-1", event.RequestID)
	assert.True(t, event.OccurredAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), New(testContext(), TypeCreated, "base", 1)))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "resource event", line["msg"])
	assert.Equal(t, "created", line["type"])
	assert.Equal(t, "1", line["entity_id"])
	assert.Equal(t, "req-1", line["request_id"])
}

func TestKafkaPublisher(t *testing.T) {
	t.Run("produces keyed JSON record", func(t *testing.T) {
		producer := &fakeProducer{}
		p := NewKafkaPublisher(producer, "resource-events")

		event := New(testContext(), TypeRecovered, "base", 42)
		require.NoError(t, p.Publish(context.Background(), event))

		require.Len(t, producer.records, 1)
		rec := producer.records[0]
		assert.Equal(t, "resource-events", rec.Topic)
		assert.Equal(t, "base:42", string(rec.Key))

		var decoded Event
		require.NoError(t, json.Unmarshal(rec.Value, &decoded))
		assert.Equal(t, event.ID, decoded.ID)
		assert.Equal(t, TypeRecovered, decoded.Type)
		assert.Equal(t, []kgo.RecordHeader{
			{Key: "event-type", Value: []byte("recovered")},
			{Key: "request-id", Value: []byte("req-1")},
		}, rec.Headers)
	})

	t.Run("opens circuit after consecutive failures", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("broker down")}
		p := NewKafkaPublisher(producer, "resource-events", WithBreaker(2, time.Minute))
		event := New(testContext(), TypeCreated, "base", 1)

		assert.Error(t, p.Publish(context.Background(), event))
		assert.Error(t, p.Publish(context.Background(), event))
		assert.ErrorIs(t, p.Publish(context.Background(), event), ErrCircuitOpen)
	})

	t.Run("a stalled broker is abandoned after the publish timeout", func(t *testing.T) {
		producer := &fakeProducer{stall: true}
		p := NewKafkaPublisher(producer, "resource-events", WithPublishTimeout(20*time.Millisecond))

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		start := time.Now()
		err := p.Publish(ctx, New(testContext(), TypeCreated, "base", 1))

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 10*time.Second)
		assert.NoError(t, ctx.Err(), "the caller's context is left alone")
	})
}

func TestBreakerHalfOpen(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBreaker(2, time.Minute)
	b.now = func() time.Time { return now }

	b.failure()
	assert.False(t, b.isOpen())
	b.failure()
	assert.True(t, b.isOpen())
	assert.False(t, b.allow())

	now = now.Add(2 * time.Minute)
	assert.True(t, b.allow(), "one trial after cooldown")
	assert.False(t, b.allow(), "only one trial at a time")
	b.failure()
	assert.True(t, b.isOpen(), "failed trial reopens")
	assert.False(t, b.allow(), "a failed trial restarts the cooldown")

	now = now.Add(2 * time.Minute)
	assert.True(t, b.allow())
	b.success()
	assert.False(t, b.isOpen())
	assert.True(t, b.allow())
}

func TestBreakerSingleTrialUnderConcurrency(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBreaker(1, time.Minute)
	b.now = func() time.Time { return now }
	b.failure()
	now = now.Add(2 * time.Minute)

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.allow() {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), allowed.Load())
}
