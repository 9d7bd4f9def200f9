package stock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leathercraft/inventory-service/internal/domain"
)

func TestReconcileFound(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 8, 2, nil)

	entry, err := e.Reconcile(r, q(10), "annual count")
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, "10", r.Quantity.String())
	assert.Equal(t, domain.TransactionAdjustment, entry.Type)
	assert.Equal(t, "2", entry.Delta.String())
	assert.Equal(t, domain.AdjustmentFound, entry.AdjustmentType)
	assert.Equal(t, "annual count", entry.Notes)
	assert.Equal(t, entry.CreatedAt, *r.LastCountAt)
	assert.Len(t, r.FilterByType(domain.TransactionAdjustment), 1)
	requireInvariants(t, r)
}

func TestReconcileLost(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 8, 2, nil)

	entry, err := e.Reconcile(r, q(5), "")
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, domain.AdjustmentLost, entry.AdjustmentType)
	assert.Equal(t, "-3", entry.Delta.String())
	assert.Equal(t, "5", r.Quantity.String())
}

func TestReconcileNoChange(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 8, 2, qp(20))
	before := snapshot(r)

	entry, err := e.Reconcile(r, r.Quantity, "")
	require.NoError(t, err)

	assert.Nil(t, entry)
	assert.Equal(t, before.Quantity, r.Quantity)
	assert.Equal(t, before.Status, r.Status)
	assert.Len(t, r.Transactions, len(before.Transactions))
	assert.Equal(t, before.LastMovementAt, r.LastMovementAt)
	require.NotNil(t, r.LastCountAt)
	assert.True(t, r.LastCountAt.After(*before.LastMovementAt))

	events := r.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCountReconciled, events[0].EventType())
}

func TestReconcileRejectsNegativeCount(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 8, 2, nil)
	before := snapshot(r)

	entry, err := e.Reconcile(r, q(-1), "")

	assert.Nil(t, entry)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "countedQuantity", verr.Field)
	assert.Equal(t, before, snapshot(r))
}

func TestReconcileBelowReservedShrinksReservation(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 2, nil)
	_, err := e.Reserve(r, q(8), "order-1")
	require.NoError(t, err)

	_, err = e.Reconcile(r, q(6), "water damage")
	require.NoError(t, err)

	assert.Equal(t, "6", r.Quantity.String())
	assert.Equal(t, "6", r.ReservedQuantity.String())
	requireInvariants(t, r)
}

func TestReconcileToZero(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 3, 1, nil)

	_, err := e.Reconcile(r, q(0), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOutOfStock, r.Status)
}
