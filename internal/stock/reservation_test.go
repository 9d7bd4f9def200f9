package stock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leathercraft/inventory-service/internal/domain"
)

func TestReserveReleaseSequence(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 20, 2, nil)

	_, err := e.Reserve(r, q(15), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "15", r.ReservedQuantity.String())
	assert.Equal(t, "20", r.Quantity.String(), "reserving does not remove stock")

	before := snapshot(r)
	_, err = e.Reserve(r, q(10), "order-2")
	var insErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &insErr))
	assert.Equal(t, "5", insErr.Available.String())
	assert.Equal(t, "10", insErr.Requested.String())
	assert.Equal(t, before, snapshot(r))

	_, err = e.Release(r, q(5), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "10", r.ReservedQuantity.String())

	_, err = e.Reserve(r, q(10), "order-2")
	require.NoError(t, err)
	assert.Equal(t, "20", r.ReservedQuantity.String())
	assert.True(t, r.Available().IsZero())
	requireInvariants(t, r)
}

func TestReserveEntryIsRecordedAgainstAvailable(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 20, 2, nil)
	_, err := e.Reserve(r, q(4), "order-1")
	require.NoError(t, err)

	entry, err := e.Reserve(r, q(6), "order-2")
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionReserve, entry.Type)
	assert.Equal(t, domain.BasisAvailable, entry.Basis)
	assert.Equal(t, "16", entry.QuantityBefore.String())
	assert.Equal(t, "10", entry.QuantityAfter.String())
	assert.Equal(t, "-6", entry.Delta.String())
	assert.Equal(t, "order-2", entry.ReferenceID())
	assert.Equal(t, entry, r.Transactions[0])
	assert.Equal(t, domain.StatusInStock, r.Status)
}

func TestReleaseCapsAtReserved(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 20, 2, nil)
	_, err := e.Reserve(r, q(3), "order-1")
	require.NoError(t, err)

	entry, err := e.Release(r, q(10), "order-1")
	require.NoError(t, err)

	assert.True(t, r.ReservedQuantity.IsZero())
	assert.Equal(t, "3", entry.Delta.String())
	assert.Equal(t, domain.TransactionRelease, entry.Type)
	requireInvariants(t, r)

	entry, err = e.Release(r, q(1), "order-1")
	require.NoError(t, err)
	assert.True(t, entry.Delta.IsZero())
}

func TestConsumeDrawsDownReserved(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 20, 2, nil)
	_, err := e.Reserve(r, q(8), "order-1")
	require.NoError(t, err)

	entry, err := e.Consume(r, q(5), "order-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionUsage, entry.Type)
	assert.Equal(t, "-5", entry.Delta.String())
	assert.Equal(t, "15", r.Quantity.String())
	assert.Equal(t, "3", r.ReservedQuantity.String())
	assert.Equal(t, "order-1", entry.ReferenceID())
	requireInvariants(t, r)
}

func TestConsumeMoreThanReservedFloorsAtZero(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 20, 2, nil)
	_, err := e.Reserve(r, q(2), "order-1")
	require.NoError(t, err)

	_, err = e.Consume(r, q(6), "order-1")
	require.NoError(t, err)

	assert.Equal(t, "14", r.Quantity.String())
	assert.True(t, r.ReservedQuantity.IsZero())
	requireInvariants(t, r)
}

func TestConsumeBeyondOnHandFails(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 4, 2, nil)
	_, err := e.Reserve(r, q(4), "order-1")
	require.NoError(t, err)
	before := snapshot(r)

	_, err = e.Consume(r, q(5), "order-1")

	assert.ErrorIs(t, err, domain.ErrNegativeQuantity)
	assert.Equal(t, before, snapshot(r))
}

func TestConsumeReducesSharedReservedPool(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 2, nil)
	_, err := e.Reserve(r, q(8), "order-1")
	require.NoError(t, err)

	// reservations are pooled per record, not tracked per order
	_, err = e.Consume(r, q(3), "order-2")
	require.NoError(t, err)

	assert.Equal(t, "7", r.Quantity.String())
	assert.Equal(t, "5", r.ReservedQuantity.String())
	requireInvariants(t, r)
}

func TestReservationValidation(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 2, nil)

	tests := []struct {
		name    string
		amount  domain.Quantity
		orderID string
		field   string
	}{
		{"zero amount", q(0), "order-1", "amount"},
		{"negative amount", q(-2), "order-1", "amount"},
		{"missing order", q(1), "", "orderId"},
		{"fractional hardware", domain.MustParseQuantity("1.5"), "order-1", "amount"},
	}

	ops := map[string]func(*domain.InventoryRecord, domain.Quantity, string) (domain.TransactionEntry, error){
		"reserve": e.Reserve,
		"release": e.Release,
		"consume": e.Consume,
	}

	for opName, op := range ops {
		for _, tt := range tests {
			t.Run(opName+"/"+tt.name, func(t *testing.T) {
				_, err := op(r, tt.amount, tt.orderID)
				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr), "got %v", err)
				assert.Equal(t, tt.field, verr.Field)
			})
		}
	}
}

func TestReserveInactiveRecord(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 2, nil)
	e.Deactivate(r, "bench closed")

	_, err := e.Reserve(r, q(1), "order-1")
	assert.ErrorIs(t, err, domain.ErrRecordInactive)
	assert.True(t, r.ReservedQuantity.IsZero())
}

func TestReservationEvents(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 2, nil)

	_, err := e.Reserve(r, q(4), "order-1")
	require.NoError(t, err)
	_, err = e.Release(r, q(1), "order-1")
	require.NoError(t, err)
	_, err = e.Consume(r, q(3), "order-1")
	require.NoError(t, err)

	var types []string
	for _, ev := range r.GetDomainEvents() {
		types = append(types, ev.EventType())
	}
	assert.Equal(t, []string{
		domain.EventStockReserved,
		domain.EventStockReleased,
		domain.EventQuantityChanged,
		domain.EventStockConsumed,
	}, types)

	reserved := r.GetDomainEvents()[0].(*domain.StockReservedEvent)
	assert.Equal(t, "6", reserved.Available.String())
}
