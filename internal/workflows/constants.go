package workflows

import "time"

// DefaultActivityTimeout bounds a single stock activity attempt
const DefaultActivityTimeout time.Duration = time.Minute

// DefaultMaterialsHoldTimeout is how long reserved materials wait for a
// consume or cancel decision before they are released
const DefaultMaterialsHoldTimeout time.Duration = 7 * 24 * time.Hour

// QueryStatus returns a workflow's current result
const QueryStatus = "status"

// Production order states
const (
	OrderStatusReserving         = "reserving"
	OrderStatusAwaitingDecision  = "awaiting_decision"
	OrderStatusConsuming         = "consuming"
	OrderStatusConsumed          = "consumed"
	OrderStatusPartiallyConsumed = "partially_consumed"
	OrderStatusCancelled         = "cancelled"
	OrderStatusExpired           = "expired"
	OrderStatusReservationFailed = "reservation_failed"
)

// Activity names as registered on the worker
const (
	ActivityReserveMaterial = "ReserveMaterial"
	ActivityReleaseMaterial = "ReleaseMaterial"
	ActivityConsumeMaterial = "ConsumeMaterial"
	ActivityReconcileCount  = "ReconcileCount"
)

// Application error types an activity can fail with
const (
	ErrTypeValidation   = "ValidationError"
	ErrTypeNotFound     = "NotFoundError"
	ErrTypeInsufficient = "InsufficientStockError"
	ErrTypeConflict     = "ConflictError"
)
