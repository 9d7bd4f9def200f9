package stock

import (
	"time"

	"github.com/leathercraft/inventory-service/internal/domain"
)

// CountReconciler applies physical stock counts
type CountReconciler struct {
	clock   Clock
	mutator *Mutator
}

func NewCountReconciler(clock Clock, mutator *Mutator) *CountReconciler {
	return &CountReconciler{clock: clock, mutator: mutator}
}

// Reconcile sets quantity to the counted figure with a FOUND or LOST
// adjustment. A count that matches books nothing and returns nil, but
// LastCountAt is stamped either way.
func (cr *CountReconciler) Reconcile(record *domain.InventoryRecord, counted domain.Quantity, notes string) (*domain.TransactionEntry, error) {
	if counted.IsNegative() {
		return nil, domain.NewValidationError("countedQuantity", "must not be negative")
	}
	if err := record.ItemRef.Kind.CheckAmount("countedQuantity", counted); err != nil {
		return nil, err
	}

	recorded := record.Quantity
	delta := counted.Sub(recorded)
	adjustment := domain.AdjustmentFor(delta)

	var result *domain.TransactionEntry
	var now time.Time

	if delta.IsZero() {
		now = cr.clock.Now()
	} else {
		entry, err := cr.mutator.apply(record, movement{
			delta:      delta,
			txType:     domain.TransactionAdjustment,
			notes:      notes,
			adjustment: adjustment,
		})
		if err != nil {
			return nil, err
		}
		result = &entry
		now = entry.CreatedAt
	}

	record.LastCountAt = &now
	record.UpdatedAt = now

	record.AddDomainEvent(&domain.CountReconciledEvent{
		RecordID:         record.ID,
		ItemRef:          record.ItemRef,
		RecordedQuantity: recorded,
		CountedQuantity:  counted,
		Delta:            delta,
		AdjustmentType:   adjustment,
		CountedAt:        now,
	})
	return result, nil
}
