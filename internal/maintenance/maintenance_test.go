package maintenance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leathercraft/inventory-service/internal/domain"
	"github.com/leathercraft/inventory-service/pkg/logging"
)

type memoryStore struct {
	records []*domain.InventoryRecord
	saved   []string
	saveErr map[string]error
	scanErr error
}

func (s *memoryStore) Each(_ context.Context, fn func(*domain.InventoryRecord) error) error {
	if s.scanErr != nil {
		return s.scanErr
	}
	for _, r := range s.records {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStore) Save(_ context.Context, record *domain.InventoryRecord) error {
	if err := s.saveErr[record.ID]; err != nil {
		return err
	}
	record.Version++
	s.saved = append(s.saved, record.ID)
	return nil
}

func record(id string, quantity, min int64, status domain.Status, entries int) *domain.InventoryRecord {
	r := &domain.InventoryRecord{
		ID:          id,
		ItemRef:     domain.ItemRef{Kind: domain.ItemKindHardware, ID: "item-" + id},
		Quantity:    domain.NewQuantity(quantity),
		MinQuantity: domain.NewQuantity(min),
		Status:      status,
		IsActive:    true,
		Version:     3,
	}
	for i := 0; i < entries; i++ {
		r.Transactions = append(r.Transactions, domain.TransactionEntry{ID: fmt.Sprintf("%s-tx-%02d", id, i)})
	}
	return r
}

func TestMigratorFixesStatusAndTrimsLedger(t *testing.T) {
	healthy := record("rec-ok", 20, 5, domain.StatusInStock, 4)
	drifted := record("rec-drift", 2, 5, domain.StatusInStock, 1)
	long := record("rec-long", 20, 5, domain.StatusInStock, domain.LedgerCapacity+5)
	store := &memoryStore{records: []*domain.InventoryRecord{healthy, drifted, long}}

	report, err := NewMigrator(store, logging.Discard(), false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.StatusFixed)
	assert.Equal(t, 1, report.LedgersTrimmed)
	assert.Equal(t, 5, report.EntriesDropped)
	assert.Equal(t, 2, report.Saved)
	assert.Equal(t, []string{"rec-drift", "rec-long"}, store.saved)

	assert.Equal(t, domain.StatusLowStock, drifted.Status)
	require.Len(t, long.Transactions, domain.LedgerCapacity)
	// newest entries sit at the head and survive
	assert.Equal(t, "rec-long-tx-00", long.Transactions[0].ID)
	assert.Equal(t, "rec-long-tx-09", long.Transactions[domain.LedgerCapacity-1].ID)
	assert.Empty(t, healthy.InvariantViolations())
}

func TestMigratorDryRunWritesNothing(t *testing.T) {
	store := &memoryStore{records: []*domain.InventoryRecord{
		record("rec-drift", 0, 5, domain.StatusLowStock, 0),
	}}

	report, err := NewMigrator(store, logging.Discard(), true).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.StatusFixed)
	assert.Zero(t, report.Saved)
	assert.Empty(t, store.saved)
}

func TestMigratorContinuesPastSaveFailures(t *testing.T) {
	store := &memoryStore{
		records: []*domain.InventoryRecord{
			record("rec-a", 0, 1, domain.StatusInStock, 0),
			record("rec-b", 0, 1, domain.StatusInStock, 0),
		},
		saveErr: map[string]error{
			"rec-a": &domain.ConcurrencyConflictError{RecordID: "rec-a", ExpectedVersion: 3},
		},
	}

	report, err := NewMigrator(store, logging.Discard(), false).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, []string{"rec-b"}, store.saved)
}

func TestMigratorScanError(t *testing.T) {
	store := &memoryStore{scanErr: errors.New("cursor closed")}

	_, err := NewMigrator(store, logging.Discard(), false).Run(context.Background())
	assert.ErrorContains(t, err, "cursor closed")
}

func TestAuditReportsViolations(t *testing.T) {
	overReserved := record("rec-res", 3, 1, domain.StatusInStock, 0)
	overReserved.ReservedQuantity = domain.NewQuantity(5)

	negative := record("rec-neg", -2, 1, domain.StatusOutOfStock, 0)
	long := record("rec-long", 10, 1, domain.StatusInStock, domain.LedgerCapacity+1)

	store := &memoryStore{records: []*domain.InventoryRecord{
		record("rec-ok", 10, 1, domain.StatusInStock, 2),
		overReserved,
		negative,
		long,
	}}

	report, err := Audit(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Scanned)
	assert.False(t, report.Healthy())
	require.Len(t, report.Findings, 3)

	byID := map[string]Finding{}
	for _, f := range report.Findings {
		byID[f.RecordID] = f
	}
	assert.Contains(t, byID["rec-res"].Violations[0], "exceeds quantity")
	assert.Contains(t, byID["rec-neg"].Violations[0], "is negative")
	assert.Contains(t, byID["rec-long"].Violations[0], "ledger holds 11 entries")
	assert.Equal(t, "hardware", byID["rec-long"].ItemKind)
}

func TestAuditHealthyStore(t *testing.T) {
	store := &memoryStore{records: []*domain.InventoryRecord{
		record("rec-1", 10, 1, domain.StatusInStock, 0),
	}}

	report, err := Audit(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.Empty(t, report.Findings)
}
