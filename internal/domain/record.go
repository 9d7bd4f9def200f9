package domain

import (
	"fmt"
	"time"
)

// InventoryRecord is the stock position of one catalogue item.
//
// Quantity and status change only through the stock engine. The record owns
// its ledger; entries never exist outside it.
type InventoryRecord struct {
	ID               string             `bson:"_id" json:"id"`
	ItemRef          ItemRef            `bson:"itemRef" json:"itemRef"`
	Quantity         Quantity           `bson:"quantity" json:"quantity"`
	ReservedQuantity Quantity           `bson:"reservedQuantity" json:"reservedQuantity"`
	MinQuantity      Quantity           `bson:"minQuantity" json:"minQuantity"`
	MaxQuantity      *Quantity          `bson:"maxQuantity,omitempty" json:"maxQuantity"`
	ReorderPoint     *Quantity          `bson:"reorderPoint,omitempty" json:"reorderPoint"`
	Status           Status             `bson:"status" json:"status"`
	Discontinued     bool               `bson:"discontinued" json:"discontinued"`
	StorageLocation  string             `bson:"storageLocation,omitempty" json:"storageLocation,omitempty"`
	LocationDetails  string             `bson:"locationDetails,omitempty" json:"locationDetails,omitempty"`
	IsActive         bool               `bson:"isActive" json:"isActive"`
	LastCountAt      *time.Time         `bson:"lastCountAt,omitempty" json:"lastCountAt,omitempty"`
	LastMovementAt   *time.Time         `bson:"lastMovementAt,omitempty" json:"lastMovementAt,omitempty"`
	LastRestockAt    *time.Time         `bson:"lastRestockAt,omitempty" json:"lastRestockAt,omitempty"`
	Transactions     []TransactionEntry `bson:"transactions" json:"transactions"`
	Version          int64              `bson:"version" json:"version"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent
}

// Thresholds groups the configurable status boundaries
type Thresholds struct {
	Min          Quantity
	Max          *Quantity
	ReorderPoint *Quantity
}

// Validate checks threshold consistency for the given item kind
func (t Thresholds) Validate(kind ItemKind) error {
	if t.Min.IsNegative() {
		return NewValidationError("minQuantity", "must not be negative")
	}
	if err := kind.CheckAmount("minQuantity", t.Min); err != nil {
		return err
	}
	if t.Max != nil {
		if !t.Max.GreaterThan(t.Min) {
			return NewValidationError("maxQuantity", fmt.Sprintf("must be greater than minQuantity %s", t.Min))
		}
		if err := kind.CheckAmount("maxQuantity", *t.Max); err != nil {
			return err
		}
	}
	if t.ReorderPoint != nil {
		if t.ReorderPoint.IsNegative() {
			return NewValidationError("reorderPoint", "must not be negative")
		}
		if err := kind.CheckAmount("reorderPoint", *t.ReorderPoint); err != nil {
			return err
		}
	}
	return nil
}

// NewInventoryRecord builds an empty, active record. Opening stock is
// booked separately so it appears in the ledger.
func NewInventoryRecord(id string, item ItemRef, thresholds Thresholds, now time.Time) (*InventoryRecord, error) {
	if id == "" {
		return nil, NewValidationError("id", "record id is required")
	}
	if _, err := NewItemRef(item.Kind, item.ID); err != nil {
		return nil, err
	}
	if err := thresholds.Validate(item.Kind); err != nil {
		return nil, err
	}

	r := &InventoryRecord{
		ID:           id,
		ItemRef:      item,
		MinQuantity:  thresholds.Min,
		MaxQuantity:  copyQuantity(thresholds.Max),
		ReorderPoint: copyQuantity(thresholds.ReorderPoint),
		IsActive:     true,
		Transactions: []TransactionEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.RefreshStatus()
	return r, nil
}

// Available is the available-to-promise quantity
func (r *InventoryRecord) Available() Quantity {
	return r.Quantity.Sub(r.ReservedQuantity)
}

// Thresholds returns a copy of the record's thresholds
func (r *InventoryRecord) Thresholds() Thresholds {
	return Thresholds{
		Min:          r.MinQuantity,
		Max:          copyQuantity(r.MaxQuantity),
		ReorderPoint: copyQuantity(r.ReorderPoint),
	}
}

// RefreshStatus recomputes Status from quantity and thresholds
func (r *InventoryRecord) RefreshStatus() {
	r.Status = DeriveStatus(r.Quantity, r.MinQuantity, r.MaxQuantity, r.Discontinued)
}

// AppendTransaction adds an entry to the bounded ledger
func (r *InventoryRecord) AppendTransaction(entry TransactionEntry) {
	r.appendEntry(entry)
}

// InvariantViolations lists every broken invariant; empty means healthy
func (r *InventoryRecord) InvariantViolations() []string {
	var out []string
	if r.Quantity.IsNegative() {
		out = append(out, fmt.Sprintf("quantity %s is negative", r.Quantity))
	}
	if r.ReservedQuantity.IsNegative() {
		out = append(out, fmt.Sprintf("reservedQuantity %s is negative", r.ReservedQuantity))
	}
	if r.ReservedQuantity.GreaterThan(r.Quantity) {
		out = append(out, fmt.Sprintf("reservedQuantity %s exceeds quantity %s", r.ReservedQuantity, r.Quantity))
	}
	if r.MaxQuantity != nil && !r.MaxQuantity.GreaterThan(r.MinQuantity) {
		out = append(out, fmt.Sprintf("maxQuantity %s is not above minQuantity %s", r.MaxQuantity, r.MinQuantity))
	}
	if want := DeriveStatus(r.Quantity, r.MinQuantity, r.MaxQuantity, r.Discontinued); r.Status != want {
		out = append(out, fmt.Sprintf("status %s should be %s", r.Status, want))
	}
	if len(r.Transactions) > LedgerCapacity {
		out = append(out, fmt.Sprintf("ledger holds %d entries, capacity is %d", len(r.Transactions), LedgerCapacity))
	}
	return out
}

// Clone returns a deep copy, used to stage a mutation so a failure leaves
// the original untouched.
func (r *InventoryRecord) Clone() *InventoryRecord {
	c := *r
	c.MaxQuantity = copyQuantity(r.MaxQuantity)
	c.ReorderPoint = copyQuantity(r.ReorderPoint)
	c.LastCountAt = copyTime(r.LastCountAt)
	c.LastMovementAt = copyTime(r.LastMovementAt)
	c.LastRestockAt = copyTime(r.LastRestockAt)
	c.Transactions = make([]TransactionEntry, len(r.Transactions))
	for i, e := range r.Transactions {
		c.Transactions[i] = e.clone()
	}
	c.domainEvents = append([]DomainEvent(nil), r.domainEvents...)
	return &c
}

// AddDomainEvent queues an event for the repository to publish on save
func (r *InventoryRecord) AddDomainEvent(event DomainEvent) {
	r.domainEvents = append(r.domainEvents, event)
}

// GetDomainEvents returns the queued events
func (r *InventoryRecord) GetDomainEvents() []DomainEvent {
	return r.domainEvents
}

// ClearDomainEvents drops the queued events after they were persisted
func (r *InventoryRecord) ClearDomainEvents() {
	r.domainEvents = nil
}

func copyQuantity(q *Quantity) *Quantity {
	if q == nil {
		return nil
	}
	v := *q
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
