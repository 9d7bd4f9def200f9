package domain

import "time"

// DomainEvent is implemented by every event a record raises
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// Event types
const (
	EventRecordCreated      = "leathercraft.stock.record.created"
	EventQuantityChanged    = "leathercraft.stock.quantity.changed"
	EventStockReserved      = "leathercraft.stock.reserved"
	EventStockReleased      = "leathercraft.stock.released"
	EventStockConsumed      = "leathercraft.stock.consumed"
	EventCountReconciled    = "leathercraft.stock.count.reconciled"
	EventLowStock           = "leathercraft.stock.low"
	EventRecordDiscontinued = "leathercraft.stock.record.discontinued"
	EventRecordDeactivated  = "leathercraft.stock.record.deactivated"
	EventRecordReactivated  = "leathercraft.stock.record.reactivated"
	EventRecordTransferred  = "leathercraft.stock.record.transferred"
	EventThresholdsChanged  = "leathercraft.stock.thresholds.changed"
)

// RecordCreatedEvent is raised when an item first enters stock
type RecordCreatedEvent struct {
	RecordID        string    `json:"recordId"`
	ItemRef         ItemRef   `json:"itemRef"`
	InitialQuantity Quantity  `json:"initialQuantity"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (e *RecordCreatedEvent) EventType() string     { return EventRecordCreated }
func (e *RecordCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// QuantityChangedEvent mirrors an on-hand ledger entry
type QuantityChangedEvent struct {
	RecordID        string          `json:"recordId"`
	ItemRef         ItemRef         `json:"itemRef"`
	TransactionID   string          `json:"transactionId"`
	TransactionType TransactionType `json:"transactionType"`
	QuantityBefore  Quantity        `json:"quantityBefore"`
	QuantityAfter   Quantity        `json:"quantityAfter"`
	Delta           Quantity        `json:"delta"`
	StatusBefore    Status          `json:"statusBefore"`
	StatusAfter     Status          `json:"statusAfter"`
	ReferenceID     string          `json:"referenceId,omitempty"`
	ChangedAt       time.Time       `json:"changedAt"`
}

func (e *QuantityChangedEvent) EventType() string     { return EventQuantityChanged }
func (e *QuantityChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// StockReservedEvent is raised when stock is earmarked for an order
type StockReservedEvent struct {
	RecordID         string    `json:"recordId"`
	ItemRef          ItemRef   `json:"itemRef"`
	OrderID          string    `json:"orderId"`
	Amount           Quantity  `json:"amount"`
	ReservedQuantity Quantity  `json:"reservedQuantity"`
	Available        Quantity  `json:"available"`
	ReservedAt       time.Time `json:"reservedAt"`
}

func (e *StockReservedEvent) EventType() string     { return EventStockReserved }
func (e *StockReservedEvent) OccurredAt() time.Time { return e.ReservedAt }

// StockReleasedEvent is raised when a reservation is given back
type StockReleasedEvent struct {
	RecordID         string    `json:"recordId"`
	ItemRef          ItemRef   `json:"itemRef"`
	OrderID          string    `json:"orderId"`
	Amount           Quantity  `json:"amount"`
	ReservedQuantity Quantity  `json:"reservedQuantity"`
	ReleasedAt       time.Time `json:"releasedAt"`
}

func (e *StockReleasedEvent) EventType() string     { return EventStockReleased }
func (e *StockReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }

// StockConsumedEvent is raised when production draws reserved stock
type StockConsumedEvent struct {
	RecordID         string    `json:"recordId"`
	ItemRef          ItemRef   `json:"itemRef"`
	OrderID          string    `json:"orderId"`
	Amount           Quantity  `json:"amount"`
	QuantityAfter    Quantity  `json:"quantityAfter"`
	ReservedQuantity Quantity  `json:"reservedQuantity"`
	ConsumedAt       time.Time `json:"consumedAt"`
}

func (e *StockConsumedEvent) EventType() string     { return EventStockConsumed }
func (e *StockConsumedEvent) OccurredAt() time.Time { return e.ConsumedAt }

// CountReconciledEvent is raised for every physical count, changed or not
type CountReconciledEvent struct {
	RecordID         string         `json:"recordId"`
	ItemRef          ItemRef        `json:"itemRef"`
	RecordedQuantity Quantity       `json:"recordedQuantity"`
	CountedQuantity  Quantity       `json:"countedQuantity"`
	Delta            Quantity       `json:"delta"`
	AdjustmentType   AdjustmentType `json:"adjustmentType,omitempty"`
	CountedAt        time.Time      `json:"countedAt"`
}

func (e *CountReconciledEvent) EventType() string     { return EventCountReconciled }
func (e *CountReconciledEvent) OccurredAt() time.Time { return e.CountedAt }

// LowStockEvent is raised when a change brings a record to or below its
// reorder threshold
type LowStockEvent struct {
	RecordID        string    `json:"recordId"`
	ItemRef         ItemRef   `json:"itemRef"`
	CurrentQuantity Quantity  `json:"currentQuantity"`
	Threshold       Quantity  `json:"threshold"`
	Status          Status    `json:"status"`
	AlertedAt       time.Time `json:"alertedAt"`
}

func (e *LowStockEvent) EventType() string     { return EventLowStock }
func (e *LowStockEvent) OccurredAt() time.Time { return e.AlertedAt }

// RecordLifecycleEvent covers discontinue, deactivate and reactivate
type RecordLifecycleEvent struct {
	Type     string    `json:"-"`
	RecordID string    `json:"recordId"`
	ItemRef  ItemRef   `json:"itemRef"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

func (e *RecordLifecycleEvent) EventType() string     { return e.Type }
func (e *RecordLifecycleEvent) OccurredAt() time.Time { return e.At }

// RecordTransferredEvent is raised when a record moves to a new location
type RecordTransferredEvent struct {
	RecordID      string    `json:"recordId"`
	ItemRef       ItemRef   `json:"itemRef"`
	FromLocation  string    `json:"fromLocation"`
	ToLocation    string    `json:"toLocation"`
	TransferredAt time.Time `json:"transferredAt"`
}

func (e *RecordTransferredEvent) EventType() string     { return EventRecordTransferred }
func (e *RecordTransferredEvent) OccurredAt() time.Time { return e.TransferredAt }

// ThresholdsChangedEvent is raised when min/max/reorder point change
type ThresholdsChangedEvent struct {
	RecordID     string    `json:"recordId"`
	MinQuantity  Quantity  `json:"minQuantity"`
	MaxQuantity  *Quantity `json:"maxQuantity"`
	ReorderPoint *Quantity `json:"reorderPoint"`
	Status       Status    `json:"status"`
	ChangedAt    time.Time `json:"changedAt"`
}

func (e *ThresholdsChangedEvent) EventType() string     { return EventThresholdsChanged }
func (e *ThresholdsChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
