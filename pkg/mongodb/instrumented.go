package mongodb

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/metrics"
)

// SlowQueryThreshold is the duration above which commands are logged
const SlowQueryThreshold = 100 * time.Millisecond

// commandInstrumentation turns driver command events into metrics, spans
// and slow-query logs
type commandInstrumentation struct {
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
	database string

	mu       sync.Mutex
	inflight map[int64]startedCommand
}

type startedCommand struct {
	collection string
	span       trace.Span
}

// ignoredCommands are handshake and session housekeeping
var ignoredCommands = map[string]bool{
	"hello": true, "isMaster": true, "ismaster": true, "ping": true,
	"saslStart": true, "saslContinue": true, "endSessions": true, "buildInfo": true,
}

// NewCommandMonitor builds a driver monitor. Pass it with WithMonitor.
func NewCommandMonitor(database string, m *metrics.Metrics, logger *logging.Logger) *event.CommandMonitor {
	ci := &commandInstrumentation{
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("mongodb"),
		database: database,
		inflight: make(map[int64]startedCommand),
	}
	return &event.CommandMonitor{
		Started:   ci.started,
		Succeeded: ci.succeeded,
		Failed:    ci.failed,
	}
}

func (ci *commandInstrumentation) started(ctx context.Context, evt *event.CommandStartedEvent) {
	if ignoredCommands[evt.CommandName] {
		return
	}
	collection := collectionName(evt.CommandName, evt.Command)

	_, span := ci.tracer.Start(ctx, "mongodb."+evt.CommandName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(ci.database),
			semconv.DBOperationKey.String(evt.CommandName),
			semconv.DBMongoDBCollectionKey.String(collection),
		),
	)

	ci.mu.Lock()
	ci.inflight[evt.RequestID] = startedCommand{collection: collection, span: span}
	ci.mu.Unlock()
}

func (ci *commandInstrumentation) succeeded(ctx context.Context, evt *event.CommandSucceededEvent) {
	ci.finish(ctx, evt.RequestID, evt.CommandName, evt.Duration, nil)
}

func (ci *commandInstrumentation) failed(ctx context.Context, evt *event.CommandFailedEvent) {
	ci.finish(ctx, evt.RequestID, evt.CommandName, evt.Duration, &commandError{msg: evt.Failure})
}

func (ci *commandInstrumentation) finish(ctx context.Context, requestID int64, command string, duration time.Duration, err error) {
	ci.mu.Lock()
	started, ok := ci.inflight[requestID]
	delete(ci.inflight, requestID)
	ci.mu.Unlock()
	if !ok {
		return
	}

	success := err == nil
	if ci.metrics != nil {
		ci.metrics.RecordMongoDBOperation(started.collection, command, success, duration)
	}
	if ci.logger != nil && (duration > SlowQueryThreshold || !success) {
		ci.logger.DatabaseQuery(ctx, started.collection, command, duration, success)
	}

	started.span.SetAttributes(attribute.Int64("db.duration_ms", duration.Milliseconds()))
	if err != nil {
		started.span.RecordError(err)
		started.span.SetStatus(codes.Error, err.Error())
	} else {
		started.span.SetStatus(codes.Ok, "")
	}
	started.span.End()
}

// collectionName reads the target collection from the command document,
// where it is the value of the command-name key
func collectionName(command string, doc bson.Raw) string {
	if doc == nil {
		return ""
	}
	if v, err := doc.LookupErr(command); err == nil {
		if s, ok := v.StringValueOK(); ok {
			return s
		}
	}
	return ""
}

type commandError struct{ msg string }

func (e *commandError) Error() string { return e.msg }
