package application

import "time"

// ItemRefDTO identifies the stocked catalogue item
type ItemRefDTO struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// RecordDTO is the API view of an inventory record
type RecordDTO struct {
	ID                string           `json:"id"`
	Item              ItemRefDTO       `json:"item"`
	Quantity          string           `json:"quantity"`
	ReservedQuantity  string           `json:"reservedQuantity"`
	AvailableQuantity string           `json:"availableQuantity"`
	MinQuantity       string           `json:"minQuantity"`
	MaxQuantity       *string          `json:"maxQuantity"`
	ReorderPoint      *string          `json:"reorderPoint"`
	Status            string           `json:"status"`
	NeedsReorder      bool             `json:"needsReorder"`
	StorageLocation   string           `json:"storageLocation,omitempty"`
	LocationDetails   string           `json:"locationDetails,omitempty"`
	IsActive          bool             `json:"isActive"`
	LastCountAt       *time.Time       `json:"lastCountAt,omitempty"`
	LastMovementAt    *time.Time       `json:"lastMovementAt,omitempty"`
	LastRestockAt     *time.Time       `json:"lastRestockAt,omitempty"`
	Transactions      []TransactionDTO `json:"transactions,omitempty"`
	Version           int64            `json:"version"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// TransactionDTO is one ledger entry
type TransactionDTO struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Basis          string    `json:"basis"`
	QuantityBefore string    `json:"quantityBefore"`
	QuantityAfter  string    `json:"quantityAfter"`
	Delta          string    `json:"delta"`
	AdjustmentType string    `json:"adjustmentType,omitempty"`
	ReferenceType  string    `json:"referenceType,omitempty"`
	ReferenceID    string    `json:"referenceId,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MovementResultDTO is returned by every quantity-changing call
type MovementResultDTO struct {
	Record      *RecordDTO      `json:"record"`
	Transaction *TransactionDTO `json:"transaction,omitempty"`
}

// ReconcileResultDTO reports a physical count. Transaction is nil when the
// count matched.
type ReconcileResultDTO struct {
	Record         *RecordDTO      `json:"record"`
	Transaction    *TransactionDTO `json:"transaction,omitempty"`
	Changed        bool            `json:"changed"`
	AdjustmentType string          `json:"adjustmentType,omitempty"`
}

// UsageReportDTO summarises the retained ledger for efficiency reporting
type UsageReportDTO struct {
	RecordID          string `json:"recordId"`
	EntriesConsidered int    `json:"entriesConsidered"`
	Purchased         string `json:"purchased"`
	Used              string `json:"used"`
	Wasted            string `json:"wasted"`
	Adjusted          string `json:"adjusted"`
	NetChange         string `json:"netChange"`
	// EfficiencyPercent is used / (used + wasted); empty when nothing was drawn
	EfficiencyPercent string `json:"efficiencyPercent,omitempty"`
}

// RecordListDTO is a page of records
type RecordListDTO struct {
	Records []RecordDTO `json:"records"`
	Total   int64       `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}
