package stock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leathercraft/inventory-service/internal/domain"
)

func TestCreateRecordBooksOpeningStock(t *testing.T) {
	e := newTestEngine()

	r, err := e.CreateRecord(domain.ItemRef{Kind: domain.ItemKindLeather, ID: "shell-cordovan"},
		domain.MustParseQuantity("12.5"), domain.Thresholds{Min: q(3), Max: qp(40)})
	require.NoError(t, err)

	assert.Equal(t, "id-001", r.ID)
	assert.Equal(t, "12.5", r.Quantity.String())
	assert.Equal(t, domain.StatusInStock, r.Status)
	require.Len(t, r.Transactions, 1)
	assert.Equal(t, domain.TransactionInitialStock, r.Transactions[0].Type)
	assert.True(t, r.Transactions[0].QuantityBefore.IsZero())

	events := r.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventRecordCreated, events[0].EventType())
	assert.Equal(t, domain.EventQuantityChanged, events[1].EventType())
	requireInvariants(t, r)
}

func TestCreateRecordEmpty(t *testing.T) {
	e := newTestEngine()

	r, err := e.CreateRecord(domain.ItemRef{Kind: domain.ItemKindHardware, ID: "snap-button"}, q(0),
		domain.Thresholds{Min: q(50)})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOutOfStock, r.Status)
	assert.Empty(t, r.Transactions)
	assert.Nil(t, r.LastMovementAt)

	events := r.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventLowStock, events[1].EventType())
}

func TestCreateRecordValidation(t *testing.T) {
	e := newTestEngine()

	_, err := e.CreateRecord(domain.ItemRef{Kind: domain.ItemKindHardware, ID: "buckle"}, q(-1), domain.Thresholds{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.CreateRecord(domain.ItemRef{Kind: domain.ItemKindProduct, ID: "tote"}, domain.MustParseQuantity("0.5"), domain.Thresholds{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.CreateRecord(domain.ItemRef{Kind: domain.ItemKindProduct, ID: "tote"}, q(1),
		domain.Thresholds{Min: q(10), Max: qp(5)})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "maxQuantity", verr.Field)
}

func TestNeedsReorder(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name         string
		quantity     int64
		min          int64
		reorderPoint *domain.Quantity
		want         bool
	}{
		{"above min", 10, 5, nil, false},
		{"at min", 5, 5, nil, true},
		{"below min", 2, 5, nil, true},
		{"above distinct reorder point", 20, 5, qp(15), false},
		{"at reorder point", 15, 5, qp(15), true},
		{"between min and reorder point", 10, 5, qp(15), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newHardwareRecord(t, e, tt.quantity, tt.min, nil)
			r.ReorderPoint = tt.reorderPoint
			assert.Equal(t, tt.want, e.NeedsReorder(r))
		})
	}
}

func TestPendingReorderAtMax(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 5, qp(30))

	_, err := e.Mutate(r, q(20), domain.TransactionPurchase, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingReorder, r.Status)

	_, err = e.Mutate(r, q(-1), domain.TransactionUsage, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInStock, r.Status)
}

func TestTransfer(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 2, nil)
	r.StorageLocation = "Bin 4"

	entry, err := e.Transfer(r, "Rack B", "top shelf", "workshop reshuffle")
	require.NoError(t, err)

	assert.Equal(t, "Rack B", r.StorageLocation)
	assert.Equal(t, "top shelf", r.LocationDetails)
	assert.Equal(t, domain.TransactionTransfer, entry.Type)
	assert.True(t, entry.Delta.IsZero())
	assert.Equal(t, "10", entry.QuantityAfter.String())
	assert.Equal(t, "10", r.Quantity.String())

	ev := r.GetDomainEvents()[0].(*domain.RecordTransferredEvent)
	assert.Equal(t, "Bin 4", ev.FromLocation)

	_, err = e.Transfer(r, "  ", "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateThresholds(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 2, nil)

	err := e.UpdateThresholds(r, domain.Thresholds{Min: q(10), Max: qp(40)})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusLowStock, r.Status)
	types := []string{}
	for _, ev := range r.GetDomainEvents() {
		types = append(types, ev.EventType())
	}
	assert.Equal(t, []string{domain.EventThresholdsChanged, domain.EventLowStock}, types)

	err = e.UpdateThresholds(r, domain.Thresholds{Min: q(10), Max: qp(10)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "40", r.MaxQuantity.String())
}

func TestDiscontinue(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 2, nil)

	assert.True(t, e.Discontinue(r, "failed quality check"))
	assert.Equal(t, domain.StatusDiscontinued, r.Status)

	_, err := e.Mutate(r, q(-3), domain.TransactionWaste, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDiscontinued, r.Status, "discontinued survives quantity changes")

	assert.False(t, e.Discontinue(r, "again"))
	assert.Len(t, r.FilterByType(domain.TransactionWaste), 1)
	requireInvariants(t, r)
}

func TestDeactivateReactivate(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 1, 2, nil)

	assert.True(t, e.Deactivate(r, "location retired"))
	assert.False(t, r.IsActive)
	assert.False(t, e.Deactivate(r, "twice"))
	require.Len(t, r.GetDomainEvents(), 1)

	_, err := e.Mutate(r, q(-1), domain.TransactionUsage, nil, "")
	require.NoError(t, err)
	for _, ev := range r.GetDomainEvents() {
		assert.NotEqual(t, domain.EventLowStock, ev.EventType(), "inactive records raise no alerts")
	}

	r.ClearDomainEvents()
	assert.True(t, e.Reactivate(r))
	assert.True(t, r.IsActive)
	assert.False(t, e.Reactivate(r))
	types := []string{}
	for _, ev := range r.GetDomainEvents() {
		types = append(types, ev.EventType())
	}
	assert.Equal(t, []string{domain.EventRecordReactivated, domain.EventLowStock}, types)
}

func TestRecentTransactions(t *testing.T) {
	e := newTestEngine()
	r := newHardwareRecord(t, e, 10, 2, nil)
	_, err := e.Mutate(r, q(-1), domain.TransactionUsage, nil, "")
	require.NoError(t, err)

	recent := e.RecentTransactions(r, 1)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.TransactionUsage, recent[0].Type)
}

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, "UTC", SystemClock{}.Now().Location().String())
}
