// Package stock implements the quantity engine: every change to an
// inventory record's quantity, reservations, status and ledger goes through
// here. The engine works on in-memory records only. Loading, locking and
// saving belong to the caller.
package stock

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leathercraft/inventory-service/internal/domain"
)

// Engine bundles the stock services behind one value
type Engine struct {
	clock        Clock
	newID        func() string
	mutator      *Mutator
	reservations *ReservationManager
	reconciler   *CountReconciler
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the wall clock
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator overrides uuid generation for records and entries
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock: SystemClock{},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.mutator = NewMutator(e.clock, e.newID)
	e.reservations = NewReservationManager(e.clock, e.newID, e.mutator)
	e.reconciler = NewCountReconciler(e.clock, e.mutator)
	return e
}

// CreateRecord opens a record for an item. A positive initial quantity is
// booked as INITIAL_STOCK.
func (e *Engine) CreateRecord(item domain.ItemRef, initial domain.Quantity, thresholds domain.Thresholds) (*domain.InventoryRecord, error) {
	if initial.IsNegative() {
		return nil, domain.NewValidationError("initialQuantity", "must not be negative")
	}
	if err := item.Kind.CheckAmount("initialQuantity", initial); err != nil {
		return nil, err
	}

	record, err := domain.NewInventoryRecord(e.newID(), item, thresholds, e.clock.Now())
	if err != nil {
		return nil, err
	}

	if initial.IsPositive() {
		if _, err := e.mutator.apply(record, movement{
			delta:  initial,
			txType: domain.TransactionInitialStock,
			notes:  "opening balance",
		}); err != nil {
			return nil, err
		}
	}

	// The creation event leads; movement and alert events follow it.
	events := record.GetDomainEvents()
	record.ClearDomainEvents()
	record.AddDomainEvent(&domain.RecordCreatedEvent{
		RecordID:        record.ID,
		ItemRef:         record.ItemRef,
		InitialQuantity: initial,
		Status:          record.Status,
		CreatedAt:       record.CreatedAt,
	})
	for _, ev := range events {
		record.AddDomainEvent(ev)
	}
	raiseLowStock(record, record.CreatedAt)
	return record, nil
}

// Mutate changes on-hand quantity. See Mutator.Mutate.
func (e *Engine) Mutate(record *domain.InventoryRecord, delta domain.Quantity, txType domain.TransactionType, ref *domain.Reference, notes string) (domain.TransactionEntry, error) {
	return e.mutator.Mutate(record, delta, txType, ref, notes)
}

func (e *Engine) Reserve(record *domain.InventoryRecord, amount domain.Quantity, orderID string) (domain.TransactionEntry, error) {
	return e.reservations.Reserve(record, amount, orderID)
}

func (e *Engine) Release(record *domain.InventoryRecord, amount domain.Quantity, orderID string) (domain.TransactionEntry, error) {
	return e.reservations.Release(record, amount, orderID)
}

func (e *Engine) Consume(record *domain.InventoryRecord, amount domain.Quantity, orderID string) (domain.TransactionEntry, error) {
	return e.reservations.Consume(record, amount, orderID)
}

func (e *Engine) Reconcile(record *domain.InventoryRecord, counted domain.Quantity, notes string) (*domain.TransactionEntry, error) {
	return e.reconciler.Reconcile(record, counted, notes)
}

// NeedsReorder reports whether the record is at or below its minimum, or at
// or below its reorder point when one is set
func (e *Engine) NeedsReorder(record *domain.InventoryRecord) bool {
	return NeedsReorder(record)
}

// RecentTransactions returns up to k ledger entries, newest first
func (e *Engine) RecentTransactions(record *domain.InventoryRecord, k int) []domain.TransactionEntry {
	return record.RecentTransactions(k)
}

// Transfer moves the record to a new storage location. The move is booked as
// a zero-delta TRANSFER entry so it shows in the ledger.
func (e *Engine) Transfer(record *domain.InventoryRecord, location, details, notes string) (domain.TransactionEntry, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return domain.TransactionEntry{}, domain.NewValidationError("storageLocation", "is required")
	}

	from := record.StorageLocation
	entry := e.mutator.relocate(record, location, details, notes)

	record.AddDomainEvent(&domain.RecordTransferredEvent{
		RecordID:      record.ID,
		ItemRef:       record.ItemRef,
		FromLocation:  from,
		ToLocation:    location,
		TransferredAt: entry.CreatedAt,
	})
	return entry, nil
}

// UpdateThresholds replaces min, max and reorder point and re-derives status
func (e *Engine) UpdateThresholds(record *domain.InventoryRecord, thresholds domain.Thresholds) error {
	if err := thresholds.Validate(record.ItemRef.Kind); err != nil {
		return err
	}

	now := e.clock.Now()
	wasLow := NeedsReorder(record)

	record.MinQuantity = thresholds.Min
	record.MaxQuantity = thresholds.Max
	record.ReorderPoint = thresholds.ReorderPoint
	record.RefreshStatus()
	record.UpdatedAt = now

	record.AddDomainEvent(&domain.ThresholdsChangedEvent{
		RecordID:     record.ID,
		MinQuantity:  record.MinQuantity,
		MaxQuantity:  record.MaxQuantity,
		ReorderPoint: record.ReorderPoint,
		Status:       record.Status,
		ChangedAt:    now,
	})
	if !wasLow {
		raiseLowStock(record, now)
	}
	return nil
}

// Discontinue marks the item as no longer stocked, e.g. after a failed
// quality check. DISCONTINUED overrides every quantity-derived status.
// Like Deactivate and Reactivate it reports whether the record changed.
func (e *Engine) Discontinue(record *domain.InventoryRecord, reason string) bool {
	if record.Discontinued {
		return false
	}
	now := e.clock.Now()
	record.Discontinued = true
	record.RefreshStatus()
	record.UpdatedAt = now
	e.lifecycleEvent(record, domain.EventRecordDiscontinued, reason, now)
	return true
}

// Deactivate hides the record from reorder and low-stock views. History is
// kept; records are never deleted.
func (e *Engine) Deactivate(record *domain.InventoryRecord, reason string) bool {
	if !record.IsActive {
		return false
	}
	now := e.clock.Now()
	record.IsActive = false
	record.UpdatedAt = now
	e.lifecycleEvent(record, domain.EventRecordDeactivated, reason, now)
	return true
}

// Reactivate returns a deactivated record to the reorder views
func (e *Engine) Reactivate(record *domain.InventoryRecord) bool {
	if record.IsActive {
		return false
	}
	now := e.clock.Now()
	record.IsActive = true
	record.UpdatedAt = now
	e.lifecycleEvent(record, domain.EventRecordReactivated, "", now)
	raiseLowStock(record, now)
	return true
}

func (e *Engine) lifecycleEvent(record *domain.InventoryRecord, eventType, reason string, at time.Time) {
	record.AddDomainEvent(&domain.RecordLifecycleEvent{
		Type:     eventType,
		RecordID: record.ID,
		ItemRef:  record.ItemRef,
		Reason:   reason,
		At:       at,
	})
}
