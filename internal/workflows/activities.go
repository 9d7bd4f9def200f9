package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/leathercraft/inventory-service/internal/application"
	"github.com/leathercraft/inventory-service/pkg/errors"
	"github.com/leathercraft/inventory-service/pkg/logging"
)

// StockService is the part of the application service the activities drive
type StockService interface {
	Reserve(ctx context.Context, cmd application.ReservationCommand) (*application.MovementResultDTO, error)
	Release(ctx context.Context, cmd application.ReservationCommand) (*application.MovementResultDTO, error)
	Consume(ctx context.Context, cmd application.ReservationCommand) (*application.MovementResultDTO, error)
	Reconcile(ctx context.Context, cmd application.ReconcileCommand) (*application.ReconcileResultDTO, error)
}

// ReservationInput is shared by the reserve, release and consume activities
type ReservationInput struct {
	RecordID string `json:"recordId"`
	Quantity string `json:"quantity"`
	OrderID  string `json:"orderId"`
}

// ReconcileInput carries one counted quantity
type ReconcileInput struct {
	CountID         string `json:"countId"`
	RecordID        string `json:"recordId"`
	CountedQuantity string `json:"countedQuantity"`
	Notes           string `json:"notes,omitempty"`
}

// ReconcileOutcome is what a single count did to its record
type ReconcileOutcome struct {
	RecordID       string `json:"recordId"`
	Changed        bool   `json:"changed"`
	AdjustmentType string `json:"adjustmentType,omitempty"`
	Delta          string `json:"delta,omitempty"`
	QuantityAfter  string `json:"quantityAfter"`
}

// StockActivities runs stock operations on behalf of workflows
type StockActivities struct {
	service StockService
	logger  *logging.Logger
}

// NewStockActivities creates the activity set
func NewStockActivities(service StockService, logger *logging.Logger) *StockActivities {
	return &StockActivities{
		service: service,
		logger:  logger.WithComponent("stock-activities"),
	}
}

// ReserveMaterial holds quantity on a record for a production order
func (a *StockActivities) ReserveMaterial(ctx context.Context, input ReservationInput) error {
	_, err := a.service.Reserve(a.activityContext(ctx, input.OrderID), input.command())
	return a.result(ctx, "reserve", input, err)
}

// ReleaseMaterial returns held quantity to available stock
func (a *StockActivities) ReleaseMaterial(ctx context.Context, input ReservationInput) error {
	_, err := a.service.Release(a.activityContext(ctx, input.OrderID), input.command())
	return a.result(ctx, "release", input, err)
}

// ConsumeMaterial books held quantity as used
func (a *StockActivities) ConsumeMaterial(ctx context.Context, input ReservationInput) error {
	_, err := a.service.Consume(a.activityContext(ctx, input.OrderID), input.command())
	return a.result(ctx, "consume", input, err)
}

// ReconcileCount applies one physical count
func (a *StockActivities) ReconcileCount(ctx context.Context, input ReconcileInput) (*ReconcileOutcome, error) {
	res, err := a.service.Reconcile(a.activityContext(ctx, input.CountID), application.ReconcileCommand{
		RecordID:        input.RecordID,
		CountedQuantity: input.CountedQuantity,
		Notes:           input.Notes,
	})
	if err != nil {
		activity.GetLogger(ctx).Warn("Count rejected", "recordId", input.RecordID, "error", err)
		return nil, activityError(err)
	}

	outcome := &ReconcileOutcome{
		RecordID:       input.RecordID,
		Changed:        res.Changed,
		AdjustmentType: res.AdjustmentType,
		QuantityAfter:  res.Record.Quantity,
	}
	if res.Transaction != nil {
		outcome.Delta = res.Transaction.Delta
	}
	return outcome, nil
}

func (in ReservationInput) command() application.ReservationCommand {
	return application.ReservationCommand{
		RecordID: in.RecordID,
		Amount:   in.Quantity,
		OrderID:  in.OrderID,
	}
}

// activityContext carries the workflow id as correlation id so events
// raised by the activity can be tied back to the run
func (a *StockActivities) activityContext(ctx context.Context, fallback string) context.Context {
	correlationID := fallback
	if activity.IsActivity(ctx) {
		correlationID = activity.GetInfo(ctx).WorkflowExecution.ID
	}
	return logging.ContextWithCorrelationID(ctx, correlationID)
}

func (a *StockActivities) result(ctx context.Context, op string, input ReservationInput, err error) error {
	if err == nil {
		return nil
	}
	a.logger.WithContext(ctx).Warn("Stock activity failed",
		"operation", op,
		"recordId", input.RecordID,
		"orderId", input.OrderID,
		"quantity", input.Quantity,
		"error", err,
	)
	return activityError(err)
}

// activityError classifies service errors so the retry policy can tell
// rejections from transient failures
func activityError(err error) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return err
	}

	switch appErr.Code {
	case errors.CodeValidationError, errors.CodeBadRequest:
		return temporal.NewNonRetryableApplicationError(appErr.Message, ErrTypeValidation, err, appErr.Details)
	case errors.CodeNotFound:
		return temporal.NewNonRetryableApplicationError(appErr.Message, ErrTypeNotFound, err, appErr.Details)
	case errors.CodeUnprocessable:
		return temporal.NewNonRetryableApplicationError(appErr.Message, ErrTypeInsufficient, err, appErr.Details)
	case errors.CodeConflict:
		return temporal.NewApplicationError(appErr.Message, ErrTypeConflict, appErr.Details)
	default:
		return fmt.Errorf("%s: %w", appErr.Code, err)
	}
}
