package cloudevents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	RecordID string    `json:"recordId"`
	At       time.Time `json:"at"`
}

func (e stubEvent) EventType() string     { return "leathercraft.stock.test" }
func (e stubEvent) OccurredAt() time.Time { return e.At }

func TestFromDomainEvent(t *testing.T) {
	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	f := NewEventFactory(SourceStock)

	ev := f.FromDomainEvent(context.Background(), RecordSubject("rec-1"), stubEvent{RecordID: "rec-1", At: at})

	require.NoError(t, ev.Validate())
	assert.Equal(t, "leathercraft.stock.test", ev.Type)
	assert.Equal(t, SourceStock, ev.Source)
	assert.Equal(t, "record/rec-1", ev.Subject)
	assert.Equal(t, at.UTC(), ev.Time)
	assert.NotEmpty(t, ev.ID)
	assert.Empty(t, ev.TraceParent)
}

func TestStockCloudEvent_JSON(t *testing.T) {
	f := NewEventFactory(SourceStock)
	ev := f.CreateEvent(context.Background(), "leathercraft.stock.low", "record/r", time.Time{}, map[string]string{"quantity": "2"}).
		WithCorrelation("corr-1", "wf-1")
	ev.OrderID = "PO-1"

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "1.0", raw["specversion"])
	assert.Equal(t, "corr-1", raw[ExtCorrelationID])
	assert.Equal(t, "wf-1", raw[ExtWorkflowID])
	assert.Equal(t, "PO-1", raw[ExtOrderID])
	assert.NotContains(t, raw, ExtItemKind)

	ext := ev.Extensions()
	assert.Equal(t, map[string]string{ExtCorrelationID: "corr-1", ExtWorkflowID: "wf-1", ExtOrderID: "PO-1"}, ext)
}

func TestValidate(t *testing.T) {
	ev := &StockCloudEvent{SpecVersion: "1.0", ID: "1", Source: SourceStock}
	err := ev.Validate()
	require.Error(t, err)
	assert.Equal(t, "type", err.(*InvalidEventError).Attribute)
}
