package outbox

import (
	"context"
	"time"
)

// Repository persists outbox events
type Repository interface {
	// SaveAll inserts events; pass a session context to join a transaction
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished returns the oldest unpublished, retryable events
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry records a failed attempt
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	// CountUnpublished backs the pending gauge
	CountUnpublished(ctx context.Context) (int64, error)

	DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error)

	FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error)
}
