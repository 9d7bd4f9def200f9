package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(n int, typ TransactionType, delta int64) TransactionEntry {
	return TransactionEntry{
		ID:        fmt.Sprintf("tx-%d", n),
		Type:      typ,
		Basis:     BasisOnHand,
		Delta:     NewQuantity(delta),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, n, 0, time.UTC),
	}
}

func TestAppendKeepsNewestFirstAndEvictsOldest(t *testing.T) {
	r := &InventoryRecord{}

	for i := 1; i <= LedgerCapacity+3; i++ {
		r.AppendTransaction(entry(i, TransactionUsage, -1))
		want := i
		if want > LedgerCapacity {
			want = LedgerCapacity
		}
		require.Len(t, r.Transactions, want)
	}

	assert.Equal(t, "tx-13", r.Transactions[0].ID)
	assert.Equal(t, "tx-4", r.Transactions[LedgerCapacity-1].ID)
	for i := 1; i < len(r.Transactions); i++ {
		assert.True(t, r.Transactions[i-1].CreatedAt.After(r.Transactions[i].CreatedAt))
	}
}

func TestRecentTransactions(t *testing.T) {
	r := &InventoryRecord{}
	for i := 1; i <= 4; i++ {
		r.AppendTransaction(entry(i, TransactionUsage, -1))
	}

	recent := r.RecentTransactions(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "tx-4", recent[0].ID)
	assert.Equal(t, "tx-3", recent[1].ID)

	assert.Len(t, r.RecentTransactions(0), 4)
	assert.Len(t, r.RecentTransactions(99), 4)

	recent[0].Notes = "edited"
	assert.Empty(t, r.Transactions[0].Notes)
}

func TestFilterByTypeAndSumDelta(t *testing.T) {
	r := &InventoryRecord{}
	r.AppendTransaction(entry(1, TransactionPurchase, 10))
	r.AppendTransaction(entry(2, TransactionUsage, -3))
	r.AppendTransaction(entry(3, TransactionWaste, -1))
	r.AppendTransaction(entry(4, TransactionUsage, -2))

	usage := r.FilterByType(TransactionUsage)
	require.Len(t, usage, 2)
	assert.Equal(t, "tx-4", usage[0].ID)

	assert.Equal(t, "-5", r.SumDelta(OfType(TransactionUsage)).String())
	assert.Equal(t, "-6", r.SumDelta(OfType(TransactionUsage, TransactionWaste)).String())
	assert.Equal(t, "4", r.SumDelta(nil).String())
	assert.Len(t, r.Transactions, 4)
}

func TestTrimLedger(t *testing.T) {
	r := &InventoryRecord{}
	for i := 0; i < 15; i++ {
		r.Transactions = append(r.Transactions, entry(i, TransactionUsage, -1))
	}

	assert.Equal(t, 5, r.TrimLedger())
	assert.Len(t, r.Transactions, LedgerCapacity)
	assert.Equal(t, "tx-0", r.Transactions[0].ID)
	assert.Zero(t, r.TrimLedger())
}
