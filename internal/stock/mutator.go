package stock

import (
	"time"

	"github.com/leathercraft/inventory-service/internal/domain"
)

// Mutator is the single write path for on-hand quantity. It validates the
// whole change before touching the record, so a failed call leaves the
// record exactly as it was.
type Mutator struct {
	clock Clock
	newID func() string
}

func NewMutator(clock Clock, newID func() string) *Mutator {
	return &Mutator{clock: clock, newID: newID}
}

// movement is one change to on-hand quantity
type movement struct {
	delta      domain.Quantity
	txType     domain.TransactionType
	reference  *domain.Reference
	notes      string
	adjustment domain.AdjustmentType
	// releaseReserved is subtracted from reserved (floor zero) in the same step
	releaseReserved domain.Quantity
}

// Mutate changes on-hand quantity by delta and books a ledger entry.
// RESERVE and RELEASE are not accepted here; use the ReservationManager.
func (m *Mutator) Mutate(record *domain.InventoryRecord, delta domain.Quantity, txType domain.TransactionType, ref *domain.Reference, notes string) (domain.TransactionEntry, error) {
	if !txType.IsValid() {
		return domain.TransactionEntry{}, domain.NewValidationError("transactionType", "unknown transaction type "+string(txType))
	}
	if !txType.MovesOnHand() {
		return domain.TransactionEntry{}, domain.NewValidationError("transactionType", string(txType)+" does not change on-hand quantity")
	}
	if delta.IsZero() {
		return domain.TransactionEntry{}, domain.NewValidationError("delta", "must not be zero")
	}

	return m.apply(record, movement{
		delta:     delta,
		txType:    txType,
		reference: ref,
		notes:     notes,
	})
}

func (m *Mutator) apply(record *domain.InventoryRecord, mv movement) (domain.TransactionEntry, error) {
	if err := record.ItemRef.Kind.CheckAmount("delta", mv.delta); err != nil {
		return domain.TransactionEntry{}, err
	}

	before := record.Quantity
	after := before.Add(mv.delta)
	if after.IsNegative() {
		return domain.TransactionEntry{}, &domain.NegativeQuantityError{
			RecordID: record.ID,
			Current:  before,
			Delta:    mv.delta,
		}
	}

	reserved := domain.MaxQuantity(record.ReservedQuantity.Sub(mv.releaseReserved), domain.ZeroQuantity)
	if after.LessThan(reserved) {
		// A physical count is authoritative, so reservations shrink to fit.
		// Anything else may not draw into stock promised to an order.
		if mv.txType != domain.TransactionAdjustment {
			return domain.TransactionEntry{}, &domain.InsufficientStockError{
				RecordID:  record.ID,
				Requested: mv.delta.Neg(),
				Available: record.Available(),
			}
		}
		reserved = after
	}

	now := m.clock.Now()
	statusBefore := record.Status
	wasLow := NeedsReorder(record)

	record.Quantity = after
	record.ReservedQuantity = reserved
	record.RefreshStatus()
	if mv.txType == domain.TransactionPurchase && mv.delta.IsPositive() {
		record.LastRestockAt = &now
	}
	record.LastMovementAt = &now
	record.UpdatedAt = now

	entry := domain.TransactionEntry{
		ID:             m.newID(),
		Type:           mv.txType,
		Basis:          domain.BasisOnHand,
		QuantityBefore: before,
		QuantityAfter:  after,
		Delta:          mv.delta,
		AdjustmentType: mv.adjustment,
		Reference:      mv.reference,
		Notes:          mv.notes,
		CreatedAt:      now,
	}
	record.AppendTransaction(entry)

	record.AddDomainEvent(&domain.QuantityChangedEvent{
		RecordID:        record.ID,
		ItemRef:         record.ItemRef,
		TransactionID:   entry.ID,
		TransactionType: entry.Type,
		QuantityBefore:  before,
		QuantityAfter:   after,
		Delta:           mv.delta,
		StatusBefore:    statusBefore,
		StatusAfter:     record.Status,
		ReferenceID:     entry.ReferenceID(),
		ChangedAt:       now,
	})
	if !wasLow {
		raiseLowStock(record, now)
	}

	return entry, nil
}

// relocate books a zero-delta TRANSFER entry for a location change.
// Quantity, reserved and status are untouched.
func (m *Mutator) relocate(record *domain.InventoryRecord, location, details, notes string) domain.TransactionEntry {
	now := m.clock.Now()

	record.StorageLocation = location
	record.LocationDetails = details
	record.LastMovementAt = &now
	record.UpdatedAt = now

	entry := domain.TransactionEntry{
		ID:             m.newID(),
		Type:           domain.TransactionTransfer,
		Basis:          domain.BasisOnHand,
		QuantityBefore: record.Quantity,
		QuantityAfter:  record.Quantity,
		Delta:          domain.ZeroQuantity,
		Reference:      &domain.Reference{Type: "location", ID: location},
		Notes:          notes,
		CreatedAt:      now,
	}
	record.AppendTransaction(entry)
	return entry
}

// NeedsReorder is true when quantity is at or below min, or at or below a
// distinct reorder point
func NeedsReorder(record *domain.InventoryRecord) bool {
	if record.Quantity.LessThanOrEqual(record.MinQuantity) {
		return true
	}
	return record.ReorderPoint != nil && record.Quantity.LessThanOrEqual(*record.ReorderPoint)
}

func reorderThreshold(record *domain.InventoryRecord) domain.Quantity {
	if record.ReorderPoint != nil && record.ReorderPoint.GreaterThan(record.MinQuantity) {
		return *record.ReorderPoint
	}
	return record.MinQuantity
}

// raiseLowStock emits an alert when an active, orderable record needs stock
func raiseLowStock(record *domain.InventoryRecord, now time.Time) {
	if !record.IsActive || record.Discontinued || !NeedsReorder(record) {
		return
	}
	record.AddDomainEvent(&domain.LowStockEvent{
		RecordID:        record.ID,
		ItemRef:         record.ItemRef,
		CurrentQuantity: record.Quantity,
		Threshold:       reorderThreshold(record),
		Status:          record.Status,
		AlertedAt:       now,
	})
}
