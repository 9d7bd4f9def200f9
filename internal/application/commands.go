package application

// Quantities arrive as decimal strings from HTTP and workflow callers and
// are parsed by the service so both get the same validation errors.

// CreateRecordCommand opens a record for a catalogue item
type CreateRecordCommand struct {
	ItemKind        string
	ItemID          string
	InitialQuantity string
	MinQuantity     string
	MaxQuantity     *string
	ReorderPoint    *string
	StorageLocation string
	LocationDetails string
}

// RecordMovementCommand books a change to on-hand quantity
type RecordMovementCommand struct {
	RecordID        string
	Delta           string
	TransactionType string
	ReferenceType   string
	ReferenceID     string
	Notes           string
}

// ReservationCommand is shared by reserve, release and consume
type ReservationCommand struct {
	RecordID string
	Amount   string
	OrderID  string
}

// ReconcileCommand applies a physical count
type ReconcileCommand struct {
	RecordID        string
	CountedQuantity string
	Notes           string
}

// TransferCommand moves a record to another storage location
type TransferCommand struct {
	RecordID        string
	StorageLocation string
	LocationDetails string
	Notes           string
}

// UpdateThresholdsCommand replaces the status thresholds
type UpdateThresholdsCommand struct {
	RecordID     string
	MinQuantity  string
	MaxQuantity  *string
	ReorderPoint *string
}

// LifecycleCommand covers discontinue, deactivate and reactivate
type LifecycleCommand struct {
	RecordID string
	Reason   string
}

// GetRecordQuery loads one record by id
type GetRecordQuery struct {
	RecordID string
}

// GetRecordByItemQuery loads the record for a catalogue item
type GetRecordByItemQuery struct {
	ItemKind string
	ItemID   string
}

// ListRecordsQuery pages through records, optionally by status
type ListRecordsQuery struct {
	Status string
	Limit  int
	Offset int
}

// ReorderQuery lists active records that need restocking
type ReorderQuery struct {
	Limit int
}

// TransactionsQuery reads a record's retained ledger
type TransactionsQuery struct {
	RecordID        string
	Limit           int
	TransactionType string
}
