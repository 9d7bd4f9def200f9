// Package api exposes the stock engine over HTTP
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leathercraft/inventory-service/internal/application"
	"github.com/leathercraft/inventory-service/pkg/errors"
	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/metrics"
	"github.com/leathercraft/inventory-service/pkg/middleware"
	pkgtemporal "github.com/leathercraft/inventory-service/pkg/temporal"
)

// StockService is what the handlers need from the application layer
type StockService interface {
	CreateRecord(ctx context.Context, cmd application.CreateRecordCommand) (*application.RecordDTO, error)
	RecordMovement(ctx context.Context, cmd application.RecordMovementCommand) (*application.MovementResultDTO, error)
	Reserve(ctx context.Context, cmd application.ReservationCommand) (*application.MovementResultDTO, error)
	Release(ctx context.Context, cmd application.ReservationCommand) (*application.MovementResultDTO, error)
	Consume(ctx context.Context, cmd application.ReservationCommand) (*application.MovementResultDTO, error)
	Reconcile(ctx context.Context, cmd application.ReconcileCommand) (*application.ReconcileResultDTO, error)
	Transfer(ctx context.Context, cmd application.TransferCommand) (*application.MovementResultDTO, error)
	UpdateThresholds(ctx context.Context, cmd application.UpdateThresholdsCommand) (*application.RecordDTO, error)
	Discontinue(ctx context.Context, cmd application.LifecycleCommand) (*application.RecordDTO, error)
	Deactivate(ctx context.Context, cmd application.LifecycleCommand) (*application.RecordDTO, error)
	Reactivate(ctx context.Context, cmd application.LifecycleCommand) (*application.RecordDTO, error)

	GetRecord(ctx context.Context, query application.GetRecordQuery) (*application.RecordDTO, error)
	GetRecordByItem(ctx context.Context, query application.GetRecordByItemQuery) (*application.RecordDTO, error)
	ListRecords(ctx context.Context, query application.ListRecordsQuery) (*application.RecordListDTO, error)
	FindNeedingReorder(ctx context.Context, query application.ReorderQuery) ([]application.RecordDTO, error)
	GetTransactions(ctx context.Context, query application.TransactionsQuery) ([]application.TransactionDTO, error)
	GetUsageReport(ctx context.Context, query application.GetRecordQuery) (*application.UsageReportDTO, error)
}

// Handler serves the /api/v1 routes
type Handler struct {
	service   StockService
	workflows pkgtemporal.WorkflowStarter
	taskQueue string
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewHandler creates the handler set. workflows may be nil, in which case
// the workflow routes answer 503.
func NewHandler(service StockService, workflows pkgtemporal.WorkflowStarter, taskQueue string, m *metrics.Metrics, logger *logging.Logger) *Handler {
	return &Handler{
		service:   service,
		workflows: workflows,
		taskQueue: taskQueue,
		metrics:   m,
		logger:    logger.WithComponent("api"),
	}
}

// RegisterRoutes mounts every route on the group
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// static routes before :id
	api.POST("/records", h.createRecord)
	api.GET("/records", h.listRecords)
	api.GET("/records/reorder", h.needsReorder)
	api.GET("/items/:kind/:itemId", h.getRecordByItem)

	records := api.Group("/records/:id")
	{
		records.GET("", h.getRecord)
		records.POST("/movements", h.recordMovement)
		records.POST("/reserve", h.reservation(h.service.Reserve))
		records.POST("/release", h.reservation(h.service.Release))
		records.POST("/consume", h.reservation(h.service.Consume))
		records.POST("/count", h.reconcile)
		records.POST("/transfer", h.transfer)
		records.PUT("/thresholds", h.updateThresholds)
		records.POST("/deactivate", h.lifecycle(h.service.Deactivate))
		records.POST("/reactivate", h.lifecycle(h.service.Reactivate))
		records.POST("/discontinue", h.lifecycle(h.service.Discontinue))
		records.GET("/transactions", h.transactions)
		records.GET("/usage", h.usage)
	}

	api.POST("/production-orders", h.startProductionOrder)
	api.POST("/production-orders/:id/consume", h.signalProductionOrder(pkgtemporal.Signals.Consume))
	api.POST("/production-orders/:id/cancel", h.signalProductionOrder(pkgtemporal.Signals.Cancel))
	api.POST("/cycle-counts", h.startCycleCount)
}

func (h *Handler) responder(c *gin.Context) *middleware.ErrorResponder {
	return middleware.NewErrorResponder(c, h.logger.Logger)
}

func (h *Handler) createRecord(c *gin.Context) {
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBindingError(err)
		return
	}

	record, err := h.service.CreateRecord(c.Request.Context(), application.CreateRecordCommand{
		ItemKind:        req.ItemKind,
		ItemID:          req.ItemID,
		InitialQuantity: req.InitialQuantity,
		MinQuantity:     req.MinQuantity,
		MaxQuantity:     req.MaxQuantity,
		ReorderPoint:    req.ReorderPoint,
		StorageLocation: req.StorageLocation,
		LocationDetails: req.LocationDetails,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.Header("Location", "/api/v1/records/"+record.ID)
	c.JSON(http.StatusCreated, record)
}

func (h *Handler) listRecords(c *gin.Context) {
	limit, offset, ok := h.paging(c)
	if !ok {
		return
	}

	list, err := h.service.ListRecords(c.Request.Context(), application.ListRecordsQuery{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) needsReorder(c *gin.Context) {
	limit, _, ok := h.paging(c)
	if !ok {
		return
	}

	records, err := h.service.FindNeedingReorder(c.Request.Context(), application.ReorderQuery{Limit: limit})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (h *Handler) getRecord(c *gin.Context) {
	record, err := h.service.GetRecord(c.Request.Context(), application.GetRecordQuery{RecordID: c.Param("id")})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) getRecordByItem(c *gin.Context) {
	record, err := h.service.GetRecordByItem(c.Request.Context(), application.GetRecordByItemQuery{
		ItemKind: c.Param("kind"),
		ItemID:   c.Param("itemId"),
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) recordMovement(c *gin.Context) {
	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBindingError(err)
		return
	}

	result, err := h.service.RecordMovement(c.Request.Context(), application.RecordMovementCommand{
		RecordID:        c.Param("id"),
		Delta:           req.Delta,
		TransactionType: req.Type,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		Notes:           req.Notes,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type reservationFunc func(context.Context, application.ReservationCommand) (*application.MovementResultDTO, error)

func (h *Handler) reservation(fn reservationFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.responder(c).RespondBindingError(err)
			return
		}

		result, err := fn(c.Request.Context(), application.ReservationCommand{
			RecordID: c.Param("id"),
			Amount:   req.Quantity,
			OrderID:  req.OrderID,
		})
		if err != nil {
			h.responder(c).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) reconcile(c *gin.Context) {
	var req CountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBindingError(err)
		return
	}

	result, err := h.service.Reconcile(c.Request.Context(), application.ReconcileCommand{
		RecordID:        c.Param("id"),
		CountedQuantity: req.CountedQuantity,
		Notes:           req.Notes,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBindingError(err)
		return
	}

	result, err := h.service.Transfer(c.Request.Context(), application.TransferCommand{
		RecordID:        c.Param("id"),
		StorageLocation: req.StorageLocation,
		LocationDetails: req.LocationDetails,
		Notes:           req.Notes,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) updateThresholds(c *gin.Context) {
	var req ThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondBindingError(err)
		return
	}

	record, err := h.service.UpdateThresholds(c.Request.Context(), application.UpdateThresholdsCommand{
		RecordID:     c.Param("id"),
		MinQuantity:  req.MinQuantity,
		MaxQuantity:  req.MaxQuantity,
		ReorderPoint: req.ReorderPoint,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type lifecycleFunc func(context.Context, application.LifecycleCommand) (*application.RecordDTO, error)

func (h *Handler) lifecycle(fn lifecycleFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LifecycleRequest
		// body is optional
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				h.responder(c).RespondBindingError(err)
				return
			}
		}

		record, err := fn(c.Request.Context(), application.LifecycleCommand{
			RecordID: c.Param("id"),
			Reason:   req.Reason,
		})
		if err != nil {
			h.responder(c).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func (h *Handler) transactions(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		h.responder(c).RespondWithAppError(err)
		return
	}

	entries, svcErr := h.service.GetTransactions(c.Request.Context(), application.TransactionsQuery{
		RecordID:        c.Param("id"),
		Limit:           limit,
		TransactionType: c.Query("type"),
	})
	if svcErr != nil {
		h.responder(c).RespondWithError(svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries, "count": len(entries)})
}

func (h *Handler) usage(c *gin.Context) {
	report, err := h.service.GetUsageReport(c.Request.Context(), application.GetRecordQuery{RecordID: c.Param("id")})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) paging(c *gin.Context) (limit, offset int, ok bool) {
	limit, appErr := queryInt(c, "limit", 0)
	if appErr != nil {
		h.responder(c).RespondWithAppError(appErr)
		return 0, 0, false
	}
	offset, appErr = queryInt(c, "offset", 0)
	if appErr != nil {
		h.responder(c).RespondWithAppError(appErr)
		return 0, 0, false
	}
	return limit, offset, true
}

func queryInt(c *gin.Context, key string, def int) (int, *errors.AppError) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.ErrValidation(key + " must be a non-negative integer").WithDetail(key, raw)
	}
	return n, nil
}
