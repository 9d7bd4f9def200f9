package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	pkgtemporal "github.com/leathercraft/inventory-service/pkg/temporal"
)

// MaterialLine is one record and quantity a production order needs
type MaterialLine struct {
	RecordID string `json:"recordId"`
	Quantity string `json:"quantity"`
}

// ProductionOrderInput starts a materials workflow
type ProductionOrderInput struct {
	OrderID string         `json:"orderId"`
	Lines   []MaterialLine `json:"lines"`
	// HoldTimeout overrides DefaultMaterialsHoldTimeout
	HoldTimeout time.Duration `json:"holdTimeout,omitempty"`
}

// DecisionSignal is the payload of the consume and cancel signals
type DecisionSignal struct {
	RequestedBy string `json:"requestedBy,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// LineFailure records a line an activity could not complete
type LineFailure struct {
	RecordID  string `json:"recordId"`
	Quantity  string `json:"quantity"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

// ProductionOrderResult is both the workflow result and its query state
type ProductionOrderResult struct {
	OrderID  string         `json:"orderId"`
	Status   string         `json:"status"`
	Reserved []MaterialLine `json:"reserved"`
	Consumed []MaterialLine `json:"consumed,omitempty"`
	Released []MaterialLine `json:"released,omitempty"`
	Failures []LineFailure  `json:"failures,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

type decision int

const (
	decisionConsume decision = iota
	decisionCancel
	decisionTimeout
	decisionAborted
)

// ProductionOrderMaterialsWorkflow holds the materials for one production
// order until the shop floor decides what happens to them:
//  1. reserve every line, releasing the ones already held if any fails
//  2. wait for a consume or cancel signal, or the hold timeout
//  3. consume every line, or release them all
func ProductionOrderMaterialsWorkflow(ctx workflow.Context, input ProductionOrderInput) (*ProductionOrderResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting production order materials workflow",
		"orderId", input.OrderID,
		"lineCount", len(input.Lines),
	)

	if input.OrderID == "" || len(input.Lines) == 0 {
		return nil, temporal.NewNonRetryableApplicationError(
			"production order needs an id and at least one material line", ErrTypeValidation, nil)
	}

	result := &ProductionOrderResult{
		OrderID:  input.OrderID,
		Status:   OrderStatusReserving,
		Reserved: []MaterialLine{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryStatus, func() (*ProductionOrderResult, error) {
		return result, nil
	}); err != nil {
		return nil, err
	}

	actCtx := workflow.WithActivityOptions(ctx, GetActivityOptions(ActivityOptionsConfig{
		RetryPolicy: StandardRetry,
	}))

	// Step 1: reserve
	for _, line := range input.Lines {
		err := workflow.ExecuteActivity(actCtx, ActivityReserveMaterial, reservationInput(input.OrderID, line)).Get(ctx, nil)
		if err != nil {
			logger.Error("Material reservation failed, releasing held lines",
				"orderId", input.OrderID,
				"recordId", line.RecordID,
				"error", err,
			)
			result.Failures = append(result.Failures, lineFailure(line, "reserve", err))
			releaseAll(ctx, input.OrderID, result)
			result.Status = OrderStatusReservationFailed
			return result, &MaterialReservationError{
				OrderID:       input.OrderID,
				RecordID:      line.RecordID,
				Quantity:      line.Quantity,
				UnderlyingErr: err,
			}
		}
		result.Reserved = append(result.Reserved, line)
	}

	// Step 2: wait
	result.Status = OrderStatusAwaitingDecision
	holdTimeout := input.HoldTimeout
	if holdTimeout <= 0 {
		holdTimeout = DefaultMaterialsHoldTimeout
	}
	outcome, signal := awaitDecision(ctx, holdTimeout)
	result.Reason = signal.Reason

	// Step 3: settle
	switch outcome {
	case decisionConsume:
		logger.Info("Consuming materials", "orderId", input.OrderID, "requestedBy", signal.RequestedBy)
		result.Status = OrderStatusConsuming
		consumeAll(ctx, actCtx, input.OrderID, result)
		result.Status = OrderStatusConsumed
		if len(result.Failures) > 0 {
			result.Status = OrderStatusPartiallyConsumed
		}

	case decisionCancel, decisionAborted:
		logger.Info("Releasing materials", "orderId", input.OrderID, "reason", signal.Reason)
		releaseAll(ctx, input.OrderID, result)
		result.Status = OrderStatusCancelled

	case decisionTimeout:
		logger.Warn("Materials hold expired, releasing", "orderId", input.OrderID, "holdTimeout", holdTimeout)
		releaseAll(ctx, input.OrderID, result)
		result.Status = OrderStatusExpired
		result.Reason = "hold timeout"
	}

	logger.Info("Production order materials workflow finished",
		"orderId", input.OrderID,
		"status", result.Status,
		"failures", len(result.Failures),
	)
	return result, nil
}

func awaitDecision(ctx workflow.Context, timeout time.Duration) (decision, DecisionSignal) {
	consumeCh := workflow.GetSignalChannel(ctx, pkgtemporal.Signals.Consume)
	cancelCh := workflow.GetSignalChannel(ctx, pkgtemporal.Signals.Cancel)

	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()

	var (
		outcome decision
		signal  DecisionSignal
	)

	selector := workflow.NewSelector(ctx)
	selector.AddReceive(consumeCh, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &signal)
		outcome = decisionConsume
	})
	selector.AddReceive(cancelCh, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &signal)
		outcome = decisionCancel
	})
	selector.AddFuture(workflow.NewTimer(timerCtx, timeout), func(f workflow.Future) {
		if err := f.Get(ctx, nil); err != nil {
			// timer cancelled along with the workflow
			outcome = decisionAborted
			signal.Reason = "workflow cancelled"
			return
		}
		outcome = decisionTimeout
	})
	selector.Select(ctx)

	return outcome, signal
}

// consumeAll consumes each reserved line. A line that cannot be consumed
// is released so no reservation outlives the order.
func consumeAll(ctx, actCtx workflow.Context, orderID string, result *ProductionOrderResult) {
	logger := workflow.GetLogger(ctx)
	releaseCtx := compensationContext(ctx)

	for _, line := range result.Reserved {
		err := workflow.ExecuteActivity(actCtx, ActivityConsumeMaterial, reservationInput(orderID, line)).Get(ctx, nil)
		if err == nil {
			result.Consumed = append(result.Consumed, line)
			continue
		}

		logger.Error("Material consumption failed", "orderId", orderID, "recordId", line.RecordID, "error", err)
		result.Failures = append(result.Failures, lineFailure(line, "consume", err))

		if err := workflow.ExecuteActivity(releaseCtx, ActivityReleaseMaterial, reservationInput(orderID, line)).Get(releaseCtx, nil); err != nil {
			result.Failures = append(result.Failures, lineFailure(line, "release", err))
			continue
		}
		result.Released = append(result.Released, line)
	}
}

// releaseAll releases every reserved line, continuing past failures
func releaseAll(ctx workflow.Context, orderID string, result *ProductionOrderResult) {
	logger := workflow.GetLogger(ctx)
	releaseCtx := compensationContext(ctx)

	for i := len(result.Reserved) - 1; i >= 0; i-- {
		line := result.Reserved[i]
		err := workflow.ExecuteActivity(releaseCtx, ActivityReleaseMaterial, reservationInput(orderID, line)).Get(releaseCtx, nil)
		if err != nil {
			logger.Error("Failed to release material", "orderId", orderID, "recordId", line.RecordID, "error", err)
			result.Failures = append(result.Failures, lineFailure(line, "release", err))
			continue
		}
		result.Released = append(result.Released, line)
	}
}

// compensationContext survives workflow cancellation and retries harder
func compensationContext(ctx workflow.Context) workflow.Context {
	disconnected, _ := workflow.NewDisconnectedContext(ctx)
	return workflow.WithActivityOptions(disconnected, GetActivityOptions(ActivityOptionsConfig{
		RetryPolicy: AggressiveRetry,
	}))
}

func reservationInput(orderID string, line MaterialLine) ReservationInput {
	return ReservationInput{
		RecordID: line.RecordID,
		Quantity: line.Quantity,
		OrderID:  orderID,
	}
}

func lineFailure(line MaterialLine, op string, err error) LineFailure {
	return LineFailure{
		RecordID:  line.RecordID,
		Quantity:  line.Quantity,
		Operation: op,
		Error:     err.Error(),
	}
}
