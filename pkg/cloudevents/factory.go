package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
)

// DomainEvent is what the factory wraps. Stock domain events satisfy it.
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// EventFactory creates CloudEvents for stock domain events
type EventFactory struct {
	source string
	newID  func() string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, newID: uuid.NewString}
}

// CreateEvent wraps data in an envelope. The event time is taken from the
// domain event when there is one, so replays keep the original time.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, at time.Time, data any) *StockCloudEvent {
	if at.IsZero() {
		at = time.Now()
	}
	event := &StockCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              f.newID(),
		Time:            at.UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
	injectTraceContext(ctx, event)
	return event
}

// FromDomainEvent wraps a domain event; subject is usually "record/<id>"
func (f *EventFactory) FromDomainEvent(ctx context.Context, subject string, ev DomainEvent) *StockCloudEvent {
	return f.CreateEvent(ctx, ev.EventType(), subject, ev.OccurredAt(), ev)
}

// RecordSubject is the subject used for every event about one record
func RecordSubject(recordID string) string {
	return "record/" + recordID
}

func injectTraceContext(ctx context.Context, event *StockCloudEvent) {
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")
	event.TraceState = carrier.Get("tracestate")
}
