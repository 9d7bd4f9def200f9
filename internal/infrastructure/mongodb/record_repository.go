package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leathercraft/inventory-service/internal/domain"
	"github.com/leathercraft/inventory-service/pkg/cloudevents"
	"github.com/leathercraft/inventory-service/pkg/kafka"
	"github.com/leathercraft/inventory-service/pkg/logging"
	pkgmongo "github.com/leathercraft/inventory-service/pkg/mongodb"
	"github.com/leathercraft/inventory-service/pkg/outbox"
	outboxMongo "github.com/leathercraft/inventory-service/pkg/outbox/mongodb"
)

// CollectionName is where inventory records live
const CollectionName = "inventory_records"

const aggregateType = "InventoryRecord"

// RecordRepository stores one document per record, ledger embedded, and
// writes the record's domain events to the outbox in the same transaction
type RecordRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewRecordRepository creates the repository. Call EnsureIndexes once at
// startup.
func NewRecordRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *RecordRepository {
	return &RecordRepository{
		collection:   db.Collection(CollectionName),
		db:           db,
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
}

// EnsureIndexes creates record and outbox indexes
func (r *RecordRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "itemRef.kind", Value: 1}, {Key: "itemRef.id", Value: 1}},
			Options: options.Index().SetName("uniq_itemRef").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "discontinued", Value: 1}},
			Options: options.Index().SetName("idx_active_discontinued"),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create record indexes: %w", err)
	}
	return r.outboxRepo.EnsureIndexes(ctx)
}

// Save inserts a new record (Version 0) or replaces the stored one if its
// version still matches. Version is incremented on success and left
// unchanged on failure.
func (r *RecordRepository) Save(ctx context.Context, record *domain.InventoryRecord) error {
	outboxEvents, err := r.outboxEvents(ctx, record)
	if err != nil {
		return err
	}

	expected := record.Version
	record.Version = expected + 1

	err = pkgmongo.RunTransaction(ctx, r.db.Client(), func(sessCtx mongo.SessionContext) error {
		if expected == 0 {
			if _, err := r.collection.InsertOne(sessCtx, record); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return fmt.Errorf("%w: item %s", domain.ErrRecordExists, record.ItemRef)
				}
				return fmt.Errorf("failed to insert record: %w", err)
			}
		} else {
			res, err := r.collection.ReplaceOne(sessCtx, bson.M{"_id": record.ID, "version": expected}, record)
			if err != nil {
				return fmt.Errorf("failed to replace record: %w", err)
			}
			if res.MatchedCount == 0 {
				return &domain.ConcurrencyConflictError{RecordID: record.ID, ExpectedVersion: expected}
			}
		}

		return r.outboxRepo.SaveAll(sessCtx, outboxEvents)
	})
	if err != nil {
		record.Version = expected
		var conflict *domain.ConcurrencyConflictError
		if stderrors.As(err, &conflict) || stderrors.Is(err, domain.ErrRecordExists) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	record.ClearDomainEvents()
	return nil
}

func (r *RecordRepository) outboxEvents(ctx context.Context, record *domain.InventoryRecord) ([]*outbox.OutboxEvent, error) {
	events := record.GetDomainEvents()
	out := make([]*outbox.OutboxEvent, 0, len(events))
	correlationID := logging.CorrelationIDFromContext(ctx)

	for _, ev := range events {
		ce := r.eventFactory.FromDomainEvent(ctx, cloudevents.RecordSubject(record.ID), ev)
		ce.ItemKind = string(record.ItemRef.Kind)
		ce.CorrelationID = correlationID
		ce.OrderID = orderID(ev)

		oe, err := outbox.NewOutboxEventFromCloudEvent(record.ID, aggregateType, kafka.TopicFor(ce.Type), ce)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		out = append(out, oe)
	}
	return out, nil
}

func orderID(ev domain.DomainEvent) string {
	switch e := ev.(type) {
	case *domain.StockReservedEvent:
		return e.OrderID
	case *domain.StockReleasedEvent:
		return e.OrderID
	case *domain.StockConsumedEvent:
		return e.OrderID
	default:
		return ""
	}
}

// FindByID returns nil, nil when the record does not exist
func (r *RecordRepository) FindByID(ctx context.Context, id string) (*domain.InventoryRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByItemRef returns nil, nil when the item has no record
func (r *RecordRepository) FindByItemRef(ctx context.Context, ref domain.ItemRef) (*domain.InventoryRecord, error) {
	return r.findOne(ctx, bson.M{"itemRef.kind": ref.Kind, "itemRef.id": ref.ID})
}

func (r *RecordRepository) findOne(ctx context.Context, filter bson.M) (*domain.InventoryRecord, error) {
	var record domain.InventoryRecord
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return &record, nil
}

// FindByStatus pages through records with the given status
func (r *RecordRepository) FindByStatus(ctx context.Context, status domain.Status, limit, offset int) ([]*domain.InventoryRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return r.find(ctx, bson.M{"status": status}, opts)
}

// NeedingReorderFilter matches active, stocked records at or below min or
// at or below a set reorder point
func NeedingReorderFilter() bson.M {
	return bson.M{
		"isActive":     true,
		"discontinued": false,
		"$expr": bson.M{"$or": bson.A{
			bson.M{"$lte": bson.A{"$quantity", "$minQuantity"}},
			bson.M{"$and": bson.A{
				bson.M{"$ne": bson.A{bson.M{"$type": "$reorderPoint"}, "missing"}},
				bson.M{"$lte": bson.A{"$quantity", "$reorderPoint"}},
			}},
		}},
	}
}

// FindNeedingReorder lists records needing stock, emptiest first
func (r *RecordRepository) FindNeedingReorder(ctx context.Context, limit int) ([]*domain.InventoryRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "quantity", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, NeedingReorderFilter(), opts)
}

// FindAll pages through every record
func (r *RecordRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.InventoryRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return r.find(ctx, bson.M{}, opts)
}

// Count returns the number of stored records
func (r *RecordRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// CountByStatus returns the number of stored records with the given status
func (r *RecordRepository) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("failed to count records by status: %w", err)
	}
	return n, nil
}

// Each streams every record to fn in id order, for maintenance tools
func (r *RecordRepository) Each(ctx context.Context, fn func(*domain.InventoryRecord) error) error {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("failed to scan records: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var record domain.InventoryRecord
		if err := cursor.Decode(&record); err != nil {
			return fmt.Errorf("failed to decode record: %w", err)
		}
		if err := fn(&record); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (r *RecordRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*domain.InventoryRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*domain.InventoryRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// OutboxRepository exposes the outbox for the relay
func (r *RecordRepository) OutboxRepository() *outboxMongo.OutboxRepository {
	return r.outboxRepo
}

var _ domain.RecordRepository = (*RecordRepository)(nil)
