package stock

import (
	"time"

	"github.com/leathercraft/inventory-service/internal/domain"
)

// ReservationManager earmarks stock for production orders. Reserving and
// releasing move only ReservedQuantity; consuming draws on-hand quantity
// through the Mutator.
type ReservationManager struct {
	clock   Clock
	newID   func() string
	mutator *Mutator
}

func NewReservationManager(clock Clock, newID func() string, mutator *Mutator) *ReservationManager {
	return &ReservationManager{clock: clock, newID: newID, mutator: mutator}
}

// Reserve earmarks amount for orderID. It fails with
// *domain.InsufficientStockError when amount exceeds available-to-promise.
func (rm *ReservationManager) Reserve(record *domain.InventoryRecord, amount domain.Quantity, orderID string) (domain.TransactionEntry, error) {
	if err := checkOrderAmount(record, amount, orderID); err != nil {
		return domain.TransactionEntry{}, err
	}
	if !record.IsActive {
		return domain.TransactionEntry{}, domain.ErrRecordInactive
	}

	available := record.Available()
	if amount.GreaterThan(available) {
		return domain.TransactionEntry{}, &domain.InsufficientStockError{
			RecordID:  record.ID,
			Requested: amount,
			Available: available,
		}
	}

	now := rm.clock.Now()
	record.ReservedQuantity = record.ReservedQuantity.Add(amount)
	record.UpdatedAt = now

	entry := rm.availabilityEntry(domain.TransactionReserve, available, amount.Neg(), orderID, now)
	record.AppendTransaction(entry)

	record.AddDomainEvent(&domain.StockReservedEvent{
		RecordID:         record.ID,
		ItemRef:          record.ItemRef,
		OrderID:          orderID,
		Amount:           amount,
		ReservedQuantity: record.ReservedQuantity,
		Available:        record.Available(),
		ReservedAt:       now,
	})
	return entry, nil
}

// Release gives back up to amount of the reservation. Releasing more than is
// reserved releases what there is.
func (rm *ReservationManager) Release(record *domain.InventoryRecord, amount domain.Quantity, orderID string) (domain.TransactionEntry, error) {
	if err := checkOrderAmount(record, amount, orderID); err != nil {
		return domain.TransactionEntry{}, err
	}

	released := domain.MinQuantity(amount, record.ReservedQuantity)
	available := record.Available()

	now := rm.clock.Now()
	record.ReservedQuantity = record.ReservedQuantity.Sub(released)
	record.UpdatedAt = now

	entry := rm.availabilityEntry(domain.TransactionRelease, available, released, orderID, now)
	record.AppendTransaction(entry)

	record.AddDomainEvent(&domain.StockReleasedEvent{
		RecordID:         record.ID,
		ItemRef:          record.ItemRef,
		OrderID:          orderID,
		Amount:           released,
		ReservedQuantity: record.ReservedQuantity,
		ReleasedAt:       now,
	})
	return entry, nil
}

// Consume books production usage of amount and lowers the reservation by the
// same amount, never below zero.
func (rm *ReservationManager) Consume(record *domain.InventoryRecord, amount domain.Quantity, orderID string) (domain.TransactionEntry, error) {
	if err := checkOrderAmount(record, amount, orderID); err != nil {
		return domain.TransactionEntry{}, err
	}

	entry, err := rm.mutator.apply(record, movement{
		delta:           amount.Neg(),
		txType:          domain.TransactionUsage,
		reference:       domain.OrderReference(orderID),
		releaseReserved: amount,
	})
	if err != nil {
		return domain.TransactionEntry{}, err
	}

	record.AddDomainEvent(&domain.StockConsumedEvent{
		RecordID:         record.ID,
		ItemRef:          record.ItemRef,
		OrderID:          orderID,
		Amount:           amount,
		QuantityAfter:    record.Quantity,
		ReservedQuantity: record.ReservedQuantity,
		ConsumedAt:       entry.CreatedAt,
	})
	return entry, nil
}

func (rm *ReservationManager) availabilityEntry(txType domain.TransactionType, availableBefore, delta domain.Quantity, orderID string, now time.Time) domain.TransactionEntry {
	return domain.TransactionEntry{
		ID:             rm.newID(),
		Type:           txType,
		Basis:          domain.BasisAvailable,
		QuantityBefore: availableBefore,
		QuantityAfter:  availableBefore.Add(delta),
		Delta:          delta,
		Reference:      domain.OrderReference(orderID),
		CreatedAt:      now,
	}
}

func checkOrderAmount(record *domain.InventoryRecord, amount domain.Quantity, orderID string) error {
	if orderID == "" {
		return domain.NewValidationError("orderId", "production order reference is required")
	}
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than zero")
	}
	return record.ItemRef.Kind.CheckAmount("amount", amount)
}
