package stock

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leathercraft/inventory-service/internal/domain"
)

// stepClock advances one second per reading so entry order is observable
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newTestEngine() *Engine {
	return NewEngine(WithClock(newStepClock()), WithIDGenerator(sequentialIDs()))
}

func q(n int64) domain.Quantity { return domain.NewQuantity(n) }

func qp(n int64) *domain.Quantity { return domain.QuantityPtr(domain.NewQuantity(n)) }

func newHardwareRecord(t *testing.T, e *Engine, quantity, min int64, max *domain.Quantity) *domain.InventoryRecord {
	t.Helper()
	r, err := e.CreateRecord(domain.ItemRef{Kind: domain.ItemKindHardware, ID: "brass-rivet"}, q(quantity),
		domain.Thresholds{Min: q(min), Max: max})
	require.NoError(t, err)
	r.ClearDomainEvents()
	return r
}

// requireInvariants checks the properties every record must satisfy after
// any operation
func requireInvariants(t *testing.T, r *domain.InventoryRecord) {
	t.Helper()
	require.Empty(t, r.InvariantViolations())
	require.False(t, r.Quantity.IsNegative())
	require.False(t, r.ReservedQuantity.IsNegative())
	require.True(t, r.ReservedQuantity.LessThanOrEqual(r.Quantity))
	require.Equal(t, domain.DeriveStatus(r.Quantity, r.MinQuantity, r.MaxQuantity, r.Discontinued), r.Status)
}

func snapshot(r *domain.InventoryRecord) *domain.InventoryRecord {
	c := r.Clone()
	c.ClearDomainEvents()
	return c
}
