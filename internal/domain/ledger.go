package domain

// LedgerCapacity is how many entries a record keeps. Older entries are
// evicted; this is a recent-activity window, not a full audit trail.
const LedgerCapacity = 10

// appendEntry inserts at the head and evicts from the tail
func (r *InventoryRecord) appendEntry(entry TransactionEntry) {
	n := len(r.Transactions) + 1
	if n > LedgerCapacity {
		n = LedgerCapacity
	}

	ledger := make([]TransactionEntry, n)
	ledger[0] = entry
	copy(ledger[1:], r.Transactions)
	r.Transactions = ledger
}

// RecentTransactions returns up to k entries, newest first. k <= 0 returns
// the whole retained ledger.
func (r *InventoryRecord) RecentTransactions(k int) []TransactionEntry {
	if k <= 0 || k > len(r.Transactions) {
		k = len(r.Transactions)
	}
	out := make([]TransactionEntry, k)
	for i := 0; i < k; i++ {
		out[i] = r.Transactions[i].clone()
	}
	return out
}

// FilterByType returns retained entries of type t, newest first
func (r *InventoryRecord) FilterByType(t TransactionType) []TransactionEntry {
	var out []TransactionEntry
	for _, e := range r.Transactions {
		if e.Type == t {
			out = append(out, e.clone())
		}
	}
	return out
}

// SumDelta adds the deltas of retained entries matching pred. A nil pred
// matches everything.
func (r *InventoryRecord) SumDelta(pred func(TransactionEntry) bool) Quantity {
	sum := ZeroQuantity
	for _, e := range r.Transactions {
		if pred == nil || pred(e) {
			sum = sum.Add(e.Delta)
		}
	}
	return sum
}

// OfType is a SumDelta predicate
func OfType(types ...TransactionType) func(TransactionEntry) bool {
	return func(e TransactionEntry) bool {
		for _, t := range types {
			if e.Type == t {
				return true
			}
		}
		return false
	}
}

// TrimLedger drops entries beyond capacity. Used when loading documents
// written before the cap was enforced.
func (r *InventoryRecord) TrimLedger() int {
	if len(r.Transactions) <= LedgerCapacity {
		return 0
	}
	dropped := len(r.Transactions) - LedgerCapacity
	r.Transactions = r.Transactions[:LedgerCapacity:LedgerCapacity]
	return dropped
}
