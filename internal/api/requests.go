package api

// Request bodies. Quantities are decimal strings so leather can be booked
// in fractional square feet without float rounding.

type CreateRecordRequest struct {
	ItemKind        string  `json:"itemKind" binding:"required,item_kind"`
	ItemID          string  `json:"itemId" binding:"required,max=128,safe_string"`
	InitialQuantity string  `json:"initialQuantity" binding:"omitempty,quantity"`
	MinQuantity     string  `json:"minQuantity" binding:"omitempty,quantity"`
	MaxQuantity     *string `json:"maxQuantity" binding:"omitempty,quantity"`
	ReorderPoint    *string `json:"reorderPoint" binding:"omitempty,quantity"`
	StorageLocation string  `json:"storageLocation" binding:"omitempty,location"`
	LocationDetails string  `json:"locationDetails" binding:"omitempty,max=256,safe_string"`
}

type MovementRequest struct {
	Delta         string `json:"delta" binding:"required,quantity"`
	Type          string `json:"type" binding:"required"`
	ReferenceType string `json:"referenceType" binding:"omitempty,max=64,safe_string"`
	ReferenceID   string `json:"referenceId" binding:"omitempty,max=128,safe_string"`
	Notes         string `json:"notes" binding:"omitempty,max=500,safe_string"`
}

type ReservationRequest struct {
	Quantity string `json:"quantity" binding:"required,quantity"`
	OrderID  string `json:"orderId" binding:"required,max=128,safe_string"`
}

type CountRequest struct {
	CountedQuantity string `json:"countedQuantity" binding:"required,quantity"`
	Notes           string `json:"notes" binding:"omitempty,max=500,safe_string"`
}

type TransferRequest struct {
	StorageLocation string `json:"storageLocation" binding:"required,location"`
	LocationDetails string `json:"locationDetails" binding:"omitempty,max=256,safe_string"`
	Notes           string `json:"notes" binding:"omitempty,max=500,safe_string"`
}

type ThresholdsRequest struct {
	MinQuantity  string  `json:"minQuantity" binding:"required,quantity"`
	MaxQuantity  *string `json:"maxQuantity" binding:"omitempty,quantity"`
	ReorderPoint *string `json:"reorderPoint" binding:"omitempty,quantity"`
}

type LifecycleRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500,safe_string"`
}

type MaterialLineRequest struct {
	RecordID string `json:"recordId" binding:"required"`
	Quantity string `json:"quantity" binding:"required,quantity"`
}

type ProductionOrderRequest struct {
	OrderID     string                `json:"orderId" binding:"required,max=128,safe_string"`
	Lines       []MaterialLineRequest `json:"lines" binding:"required,min=1,dive"`
	HoldTimeout string                `json:"holdTimeout" binding:"omitempty"`
}

type DecisionRequest struct {
	RequestedBy string `json:"requestedBy" binding:"omitempty,max=128,safe_string"`
	Reason      string `json:"reason" binding:"omitempty,max=500,safe_string"`
}

type CountLineRequest struct {
	RecordID        string `json:"recordId" binding:"required"`
	CountedQuantity string `json:"countedQuantity" binding:"required,quantity"`
	Notes           string `json:"notes" binding:"omitempty,max=500,safe_string"`
}

type CycleCountRequest struct {
	CountID   string             `json:"countId" binding:"required,max=128,safe_string"`
	CountedBy string             `json:"countedBy" binding:"omitempty,max=128,safe_string"`
	Lines     []CountLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// WorkflowStartedResponse is returned with 202 when a workflow was started
// or signalled
type WorkflowStartedResponse struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId,omitempty"`
}
