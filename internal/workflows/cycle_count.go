package workflows

import (
	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// CountLine is one physically counted record
type CountLine struct {
	RecordID        string `json:"recordId"`
	CountedQuantity string `json:"countedQuantity"`
	Notes           string `json:"notes,omitempty"`
}

// CycleCountInput starts a cycle count batch
type CycleCountInput struct {
	CountID   string      `json:"countId"`
	CountedBy string      `json:"countedBy,omitempty"`
	Lines     []CountLine `json:"lines"`
}

// CycleCountResult summarises what the count found
type CycleCountResult struct {
	CountID       string             `json:"countId"`
	Total         int                `json:"total"`
	Found         int                `json:"found"`
	Lost          int                `json:"lost"`
	Unchanged     int                `json:"unchanged"`
	FoundQuantity string             `json:"foundQuantity"`
	LostQuantity  string             `json:"lostQuantity"`
	Outcomes      []ReconcileOutcome `json:"outcomes"`
	Failures      []LineFailure      `json:"failures,omitempty"`
}

// CycleCountWorkflow reconciles a batch of counts one record at a time.
// A rejected count is reported and does not stop the batch.
func CycleCountWorkflow(ctx workflow.Context, input CycleCountInput) (*CycleCountResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting cycle count workflow", "countId", input.CountID, "lineCount", len(input.Lines))

	if input.CountID == "" || len(input.Lines) == 0 {
		return nil, temporal.NewNonRetryableApplicationError(
			"cycle count needs an id and at least one line", ErrTypeValidation, nil)
	}

	result := &CycleCountResult{
		CountID:  input.CountID,
		Total:    len(input.Lines),
		Outcomes: make([]ReconcileOutcome, 0, len(input.Lines)),
	}
	if err := workflow.SetQueryHandler(ctx, QueryStatus, func() (*CycleCountResult, error) {
		return result, nil
	}); err != nil {
		return nil, err
	}

	actCtx := workflow.WithActivityOptions(ctx, GetActivityOptions(ActivityOptionsConfig{
		RetryPolicy: StandardRetry,
	}))

	found, lost := decimal.Zero, decimal.Zero
	for _, line := range input.Lines {
		notes := line.Notes
		if notes == "" {
			notes = "cycle count " + input.CountID
		}

		var outcome ReconcileOutcome
		err := workflow.ExecuteActivity(actCtx, ActivityReconcileCount, ReconcileInput{
			CountID:         input.CountID,
			RecordID:        line.RecordID,
			CountedQuantity: line.CountedQuantity,
			Notes:           notes,
		}).Get(ctx, &outcome)
		if err != nil {
			logger.Warn("Count line failed", "countId", input.CountID, "recordId", line.RecordID, "error", err)
			result.Failures = append(result.Failures, LineFailure{
				RecordID:  line.RecordID,
				Quantity:  line.CountedQuantity,
				Operation: "reconcile",
				Error:     err.Error(),
			})
			continue
		}

		result.Outcomes = append(result.Outcomes, outcome)
		if !outcome.Changed {
			result.Unchanged++
			continue
		}

		delta, err := decimal.NewFromString(outcome.Delta)
		if err != nil {
			delta = decimal.Zero
		}
		if delta.IsPositive() {
			result.Found++
			found = found.Add(delta)
		} else {
			result.Lost++
			lost = lost.Add(delta.Abs())
		}
	}

	result.FoundQuantity = found.String()
	result.LostQuantity = lost.String()

	logger.Info("Cycle count finished",
		"countId", input.CountID,
		"found", result.Found,
		"lost", result.Lost,
		"unchanged", result.Unchanged,
		"failed", len(result.Failures),
	)
	return result, nil
}
