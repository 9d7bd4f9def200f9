package outbox

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leathercraft/inventory-service/pkg/cloudevents"
	"github.com/leathercraft/inventory-service/pkg/kafka"
	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/metrics"
)

type memRepo struct {
	mu     sync.Mutex
	events map[string]*OutboxEvent
}

func newMemRepo() *memRepo { return &memRepo{events: make(map[string]*OutboxEvent)} }

func (r *memRepo) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.events[e.ID] = e
	}
	return nil
}

func (r *memRepo) FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*OutboxEvent
	for _, e := range r.events {
		if e.ShouldRetry() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) MarkPublished(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.events[id].PublishedAt = &now
	return nil
}

func (r *memRepo) IncrementRetry(ctx context.Context, id, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[id].RetryCount++
	r.events[id].LastError = msg
	return nil
}

func (r *memRepo) CountUnpublished(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.events {
		if !e.IsPublished() {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (r *memRepo) FindByAggregateID(ctx context.Context, id string) ([]*OutboxEvent, error) {
	return nil, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	sent   map[string][]string
	failOn string
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic string, ev *cloudevents.StockCloudEvent) error {
	if ev.Type == p.failOn {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = make(map[string][]string)
	}
	p.sent[topic] = append(p.sent[topic], ev.Type)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

var _ kafka.EventPublisher = (*recordingPublisher)(nil)

func stage(t *testing.T, repo *memRepo, eventType string, offset time.Duration) *OutboxEvent {
	t.Helper()
	f := cloudevents.NewEventFactory(cloudevents.SourceStock)
	ce := f.CreateEvent(context.Background(), eventType, "record/r1", time.Now(), map[string]string{"k": "v"})
	ev, err := NewOutboxEventFromCloudEvent("r1", "InventoryRecord", kafka.TopicFor(eventType), ce)
	require.NoError(t, err)
	ev.CreatedAt = ev.CreatedAt.Add(offset)
	require.NoError(t, repo.SaveAll(context.Background(), []*OutboxEvent{ev}))
	return ev
}

func TestPublisher_ProcessOnce(t *testing.T) {
	repo := newMemRepo()
	producer := &recordingPublisher{failOn: "leathercraft.stock.record.transferred"}
	m := metrics.New(metrics.DefaultConfig("test"))
	p := NewPublisher(repo, producer, logging.Discard(), m, nil)

	created := stage(t, repo, "leathercraft.stock.record.created", 0)
	low := stage(t, repo, "leathercraft.stock.low", time.Millisecond)
	moved := stage(t, repo, "leathercraft.stock.record.transferred", 2*time.Millisecond)

	published, failed := p.ProcessOnce(context.Background())
	assert.Equal(t, 2, published)
	assert.Equal(t, 1, failed)

	assert.Equal(t, []string{"leathercraft.stock.record.created"}, producer.sent[kafka.Topics.StockEvents])
	assert.Equal(t, []string{"leathercraft.stock.low"}, producer.sent[kafka.Topics.StockAlerts])

	assert.True(t, created.IsPublished())
	assert.True(t, low.IsPublished())
	assert.False(t, moved.IsPublished())
	assert.Equal(t, 1, moved.RetryCount)
	assert.Contains(t, moved.LastError, "broker unavailable")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxPending))
	assert.Equal(t, map[string]int{"published": 2, "failed": 1}, p.Stats())
}

func TestPublisher_GivesUpAfterMaxRetries(t *testing.T) {
	repo := newMemRepo()
	producer := &recordingPublisher{failOn: "leathercraft.stock.low"}
	p := NewPublisher(repo, producer, logging.Discard(), nil, nil)

	ev := stage(t, repo, "leathercraft.stock.low", 0)
	for i := 0; i < DefaultMaxRetries+2; i++ {
		p.ProcessOnce(context.Background())
	}
	assert.Equal(t, DefaultMaxRetries, ev.RetryCount)
	assert.False(t, ev.ShouldRetry())
}

func TestPublisher_StartStop(t *testing.T) {
	repo := newMemRepo()
	producer := &recordingPublisher{}
	p := NewPublisher(repo, producer, logging.Discard(), nil, &PublisherConfig{PollInterval: 5 * time.Millisecond, BatchSize: 10})

	ev := stage(t, repo, "leathercraft.stock.quantity.changed", 0)

	require.NoError(t, p.Start(context.Background()))
	assert.Error(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())

	assert.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return ev.IsPublished()
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Error(t, p.Stop())
}
