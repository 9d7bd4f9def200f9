package api

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.temporal.io/api/serviceerror"

	"github.com/leathercraft/inventory-service/internal/workflows"
	"github.com/leathercraft/inventory-service/pkg/errors"
	pkgtemporal "github.com/leathercraft/inventory-service/pkg/temporal"
)

func (h *Handler) startProductionOrder(c *gin.Context) {
	if h.workflows == nil {
		h.responder(c).RespondWithAppError(errors.ErrServiceUnavailable("temporal"))
		return
	}

	var req ProductionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBindingError(err)
		return
	}

	input := workflows.ProductionOrderInput{OrderID: req.OrderID}
	if req.HoldTimeout != "" {
		d, err := time.ParseDuration(req.HoldTimeout)
		if err != nil || d <= 0 {
			h.responder(c).RespondValidationError("invalid hold timeout", map[string]string{"holdTimeout": req.HoldTimeout})
			return
		}
		input.HoldTimeout = d
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, workflows.MaterialLine{RecordID: l.RecordID, Quantity: l.Quantity})
	}

	h.start(c, pkgtemporal.ProductionOrderWorkflowID(req.OrderID), pkgtemporal.WorkflowNames.ProductionOrderMaterials, input)
}

func (h *Handler) startCycleCount(c *gin.Context) {
	if h.workflows == nil {
		h.responder(c).RespondWithAppError(errors.ErrServiceUnavailable("temporal"))
		return
	}

	var req CycleCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBindingError(err)
		return
	}

	input := workflows.CycleCountInput{CountID: req.CountID, CountedBy: req.CountedBy}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, workflows.CountLine{
			RecordID:        l.RecordID,
			CountedQuantity: l.CountedQuantity,
			Notes:           l.Notes,
		})
	}

	h.start(c, pkgtemporal.CycleCountWorkflowID(req.CountID), pkgtemporal.WorkflowNames.CycleCount, input)
}

func (h *Handler) start(c *gin.Context, workflowID, workflowName string, input any) {
	ctx := c.Request.Context()

	run, err := h.workflows.StartWorkflow(ctx, workflowID, h.taskQueue, workflowName, input)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if stderrors.As(err, &started) {
			h.responder(c).RespondWithAppError(errors.ErrConflict("workflow already running").WithDetail("workflowId", workflowID))
			return
		}
		h.responder(c).RespondWithAppError(errors.ErrServiceUnavailable("temporal").Wrap(err))
		return
	}

	h.metrics.RecordWorkflowStarted(workflowName)
	h.logger.WorkflowStart(ctx, workflowName, workflowID)
	c.JSON(http.StatusAccepted, WorkflowStartedResponse{WorkflowID: run.GetID(), RunID: run.GetRunID()})
}

func (h *Handler) signalProductionOrder(signal string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.workflows == nil {
			h.responder(c).RespondWithAppError(errors.ErrServiceUnavailable("temporal"))
			return
		}

		var req DecisionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				h.responder(c).RespondBindingError(err)
				return
			}
		}

		workflowID := pkgtemporal.ProductionOrderWorkflowID(c.Param("id"))
		err := h.workflows.SignalWorkflow(c.Request.Context(), workflowID, "", signal, workflows.DecisionSignal{
			RequestedBy: req.RequestedBy,
			Reason:      req.Reason,
		})
		if err != nil {
			var notFound *serviceerror.NotFound
			if stderrors.As(err, &notFound) {
				h.responder(c).RespondWithAppError(errors.ErrNotFoundWithID("production order", c.Param("id")))
				return
			}
			h.responder(c).RespondWithAppError(errors.ErrServiceUnavailable("temporal").Wrap(err))
			return
		}

		h.logger.Event(c.Request.Context(), "production_order."+signal, map[string]any{
			"workflowId": workflowID,
			"orderId":    c.Param("id"),
		})
		c.JSON(http.StatusAccepted, WorkflowStartedResponse{WorkflowID: workflowID})
	}
}
