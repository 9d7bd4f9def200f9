package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"

	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/metrics"
)

func rawCommand(t *testing.T, doc bson.D) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "inventory_records", collectionName("find", rawCommand(t, bson.D{{Key: "find", Value: "inventory_records"}})))
	assert.Equal(t, "", collectionName("find", rawCommand(t, bson.D{{Key: "filter", Value: bson.D{}}})))
	assert.Equal(t, "", collectionName("find", nil))
}

func TestCommandMonitor_RecordsOperations(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig("test"))
	monitor := NewCommandMonitor("inv", m, logging.Discard())
	ctx := context.Background()

	monitor.Started(ctx, &event.CommandStartedEvent{
		Command:     rawCommand(t, bson.D{{Key: "update", Value: "inventory_records"}}),
		CommandName: "update",
		RequestID:   7,
	})
	monitor.Succeeded(ctx, &event.CommandSucceededEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{CommandName: "update", RequestID: 7, Duration: 3 * time.Millisecond},
	})

	monitor.Started(ctx, &event.CommandStartedEvent{
		Command:     rawCommand(t, bson.D{{Key: "insert", Value: "outbox_events"}}),
		CommandName: "insert",
		RequestID:   8,
	})
	monitor.Failed(ctx, &event.CommandFailedEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{CommandName: "insert", RequestID: 8, Duration: time.Millisecond},
		Failure:              "E11000 duplicate key",
	})

	// handshake traffic is ignored
	monitor.Started(ctx, &event.CommandStartedEvent{CommandName: "ping", RequestID: 9})
	monitor.Succeeded(ctx, &event.CommandSucceededEvent{CommandFinishedEvent: event.CommandFinishedEvent{CommandName: "ping", RequestID: 9}})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MongoDBOperations.WithLabelValues("test", "inventory_records", "update", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MongoDBOperations.WithLabelValues("test", "outbox_events", "insert", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.MongoDBOperations))
}
