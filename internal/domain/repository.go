package domain

import "context"

// RecordRepository persists inventory records together with their ledgers.
//
// Save inserts when Version is 0 and otherwise replaces the stored document
// only if its version still matches, returning *ConcurrencyConflictError on
// mismatch. On success the record's Version is incremented and its domain
// events are written to the outbox in the same transaction.
type RecordRepository interface {
	Save(ctx context.Context, record *InventoryRecord) error
	FindByID(ctx context.Context, id string) (*InventoryRecord, error)
	FindByItemRef(ctx context.Context, ref ItemRef) (*InventoryRecord, error)
	FindByStatus(ctx context.Context, status Status, limit, offset int) ([]*InventoryRecord, error)
	FindNeedingReorder(ctx context.Context, limit int) ([]*InventoryRecord, error)
	FindAll(ctx context.Context, limit, offset int) ([]*InventoryRecord, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
}
