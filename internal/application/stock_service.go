package application

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/leathercraft/inventory-service/internal/domain"
	"github.com/leathercraft/inventory-service/internal/stock"
	"github.com/leathercraft/inventory-service/pkg/errors"
	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/metrics"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// StockApplicationService runs stock use cases: load under the record lock,
// apply the engine operation, save with optimistic versioning.
type StockApplicationService struct {
	repo            domain.RecordRepository
	engine          *stock.Engine
	locker          *stock.KeyedLocker
	metrics         *metrics.Metrics
	logger          *logging.Logger
	conflictRetries int
}

// ServiceOption configures the service
type ServiceOption func(*StockApplicationService)

// WithConflictRetries reloads and reapplies an operation up to n extra
// times when another writer saved first. The default is no retry.
func WithConflictRetries(n int) ServiceOption {
	return func(s *StockApplicationService) {
		if n > 0 {
			s.conflictRetries = n
		}
	}
}

// NewStockApplicationService creates a new StockApplicationService
func NewStockApplicationService(
	repo domain.RecordRepository,
	engine *stock.Engine,
	locker *stock.KeyedLocker,
	m *metrics.Metrics,
	logger *logging.Logger,
	opts ...ServiceOption,
) *StockApplicationService {
	s := &StockApplicationService{
		repo:    repo,
		engine:  engine,
		locker:  locker,
		metrics: m,
		logger:  logger.WithComponent("stock-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRecord opens a record for an item that has none yet
func (s *StockApplicationService) CreateRecord(ctx context.Context, cmd CreateRecordCommand) (*RecordDTO, error) {
	kind, err := domain.ParseItemKind(cmd.ItemKind)
	if err != nil {
		return nil, toAppError(err)
	}
	item, err := domain.NewItemRef(kind, cmd.ItemID)
	if err != nil {
		return nil, toAppError(err)
	}
	initial, err := parseOptionalQuantity("initialQuantity", cmd.InitialQuantity)
	if err != nil {
		return nil, toAppError(err)
	}
	thresholds, err := parseThresholds(cmd.MinQuantity, cmd.MaxQuantity, cmd.ReorderPoint)
	if err != nil {
		return nil, toAppError(err)
	}

	unlock, err := s.locker.Lock(ctx, "item:"+item.String())
	if err != nil {
		return nil, errors.ErrTimeout("acquire item lock").Wrap(err)
	}
	defer unlock()

	existing, err := s.repo.FindByItemRef(ctx, item)
	if err != nil {
		s.logger.Error("Failed to look up item", "item", item.String(), "error", err)
		return nil, fmt.Errorf("failed to look up item: %w", err)
	}
	if existing != nil {
		return nil, errors.ErrConflict(fmt.Sprintf("item %s already has record %s", item, existing.ID)).
			WithDetail("recordId", existing.ID)
	}

	record, err := s.engine.CreateRecord(item, initial, thresholds)
	if err != nil {
		s.observeRejection("create", err)
		return nil, toAppError(err)
	}
	record.StorageLocation = cmd.StorageLocation
	record.LocationDetails = cmd.LocationDetails

	events := record.GetDomainEvents()
	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.Error("Failed to create record", "item", item.String(), "error", err)
		if stderrors.Is(err, domain.ErrRecordExists) {
			return nil, toAppError(err)
		}
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	s.observe(ctx, record, events)

	s.logger.Info("Created inventory record", "recordId", record.ID, "item", item.String(), "quantity", record.Quantity.String())
	return ToRecordDTOWithLedger(record), nil
}

// RecordMovement books a quantity change such as a purchase or usage
func (s *StockApplicationService) RecordMovement(ctx context.Context, cmd RecordMovementCommand) (*MovementResultDTO, error) {
	txType, err := domain.ParseTransactionType(cmd.TransactionType)
	if err != nil {
		return nil, toAppError(err)
	}
	delta, err := domain.ParseQuantity(cmd.Delta)
	if err != nil {
		return nil, toAppError(err)
	}
	var ref *domain.Reference
	if cmd.ReferenceID != "" {
		ref = &domain.Reference{Type: cmd.ReferenceType, ID: cmd.ReferenceID}
	}

	var entry domain.TransactionEntry
	record, err := s.withRecord(ctx, "movement", cmd.RecordID, func(r *domain.InventoryRecord) error {
		var opErr error
		entry, opErr = s.engine.Mutate(r, delta, txType, ref, cmd.Notes)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	return &MovementResultDTO{Record: ToRecordDTO(record), Transaction: ToTransactionDTO(entry)}, nil
}

// Reserve earmarks stock for a production order
func (s *StockApplicationService) Reserve(ctx context.Context, cmd ReservationCommand) (*MovementResultDTO, error) {
	return s.reservation(ctx, "reserve", cmd, s.engine.Reserve)
}

// Release returns reserved stock, e.g. when an order is cancelled
func (s *StockApplicationService) Release(ctx context.Context, cmd ReservationCommand) (*MovementResultDTO, error) {
	return s.reservation(ctx, "release", cmd, s.engine.Release)
}

// Consume books production usage against reserved stock
func (s *StockApplicationService) Consume(ctx context.Context, cmd ReservationCommand) (*MovementResultDTO, error) {
	return s.reservation(ctx, "consume", cmd, s.engine.Consume)
}

type reservationOp func(*domain.InventoryRecord, domain.Quantity, string) (domain.TransactionEntry, error)

func (s *StockApplicationService) reservation(ctx context.Context, op string, cmd ReservationCommand, fn reservationOp) (*MovementResultDTO, error) {
	amount, err := domain.ParseQuantity(cmd.Amount)
	if err != nil {
		return nil, toAppError(err)
	}

	var entry domain.TransactionEntry
	record, err := s.withRecord(ctx, op, cmd.RecordID, func(r *domain.InventoryRecord) error {
		var opErr error
		entry, opErr = fn(r, amount, cmd.OrderID)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation updated", "operation", op, "recordId", record.ID, "orderId", cmd.OrderID, "amount", amount.String(), "reserved", record.ReservedQuantity.String())
	return &MovementResultDTO{Record: ToRecordDTO(record), Transaction: ToTransactionDTO(entry)}, nil
}

// Reconcile applies a physical count
func (s *StockApplicationService) Reconcile(ctx context.Context, cmd ReconcileCommand) (*ReconcileResultDTO, error) {
	counted, err := domain.ParseQuantity(cmd.CountedQuantity)
	if err != nil {
		return nil, toAppError(err)
	}

	var entry *domain.TransactionEntry
	record, err := s.withRecord(ctx, "reconcile", cmd.RecordID, func(r *domain.InventoryRecord) error {
		var opErr error
		entry, opErr = s.engine.Reconcile(r, counted, cmd.Notes)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	result := &ReconcileResultDTO{Record: ToRecordDTO(record)}
	if entry != nil {
		result.Transaction = ToTransactionDTO(*entry)
		result.Changed = true
		result.AdjustmentType = string(entry.AdjustmentType)
	}
	return result, nil
}

// Transfer moves a record to a new storage location
func (s *StockApplicationService) Transfer(ctx context.Context, cmd TransferCommand) (*MovementResultDTO, error) {
	var entry domain.TransactionEntry
	record, err := s.withRecord(ctx, "transfer", cmd.RecordID, func(r *domain.InventoryRecord) error {
		var opErr error
		entry, opErr = s.engine.Transfer(r, cmd.StorageLocation, cmd.LocationDetails, cmd.Notes)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return &MovementResultDTO{Record: ToRecordDTO(record), Transaction: ToTransactionDTO(entry)}, nil
}

// UpdateThresholds replaces min, max and reorder point
func (s *StockApplicationService) UpdateThresholds(ctx context.Context, cmd UpdateThresholdsCommand) (*RecordDTO, error) {
	thresholds, err := parseThresholds(cmd.MinQuantity, cmd.MaxQuantity, cmd.ReorderPoint)
	if err != nil {
		return nil, toAppError(err)
	}

	record, err := s.withRecord(ctx, "thresholds", cmd.RecordID, func(r *domain.InventoryRecord) error {
		return s.engine.UpdateThresholds(r, thresholds)
	})
	if err != nil {
		return nil, err
	}
	return ToRecordDTO(record), nil
}

// Discontinue marks the item as no longer stocked
func (s *StockApplicationService) Discontinue(ctx context.Context, cmd LifecycleCommand) (*RecordDTO, error) {
	return s.lifecycle(ctx, "discontinue", cmd, func(r *domain.InventoryRecord) bool {
		return s.engine.Discontinue(r, cmd.Reason)
	})
}

// Deactivate hides a record from reorder views
func (s *StockApplicationService) Deactivate(ctx context.Context, cmd LifecycleCommand) (*RecordDTO, error) {
	return s.lifecycle(ctx, "deactivate", cmd, func(r *domain.InventoryRecord) bool {
		return s.engine.Deactivate(r, cmd.Reason)
	})
}

// Reactivate brings a deactivated record back
func (s *StockApplicationService) Reactivate(ctx context.Context, cmd LifecycleCommand) (*RecordDTO, error) {
	return s.lifecycle(ctx, "reactivate", cmd, func(r *domain.InventoryRecord) bool {
		return s.engine.Reactivate(r)
	})
}

// lifecycle applies a state switch. Switching to the current state is a
// no-op: nothing is saved and nothing is audited.
func (s *StockApplicationService) lifecycle(ctx context.Context, op string, cmd LifecycleCommand, fn func(*domain.InventoryRecord) bool) (*RecordDTO, error) {
	var changed bool
	record, err := s.withRecord(ctx, op, cmd.RecordID, func(r *domain.InventoryRecord) error {
		changed = fn(r)
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Audit(ctx, op, "inventory_record", record.ID, map[string]any{"reason": cmd.Reason})
	}
	return ToRecordDTO(record), nil
}

// errUnchanged lets an apply func skip the save when it had nothing to do
var errUnchanged = stderrors.New("record unchanged")

// withRecord serialises an operation on one record: lock, load, apply,
// save. On a version conflict the whole cycle is repeated up to
// conflictRetries times before the conflict is returned.
func (s *StockApplicationService) withRecord(ctx context.Context, op, recordID string, apply func(*domain.InventoryRecord) error) (*domain.InventoryRecord, error) {
	if recordID == "" {
		return nil, errors.ErrValidation("record id is required")
	}

	unlock, err := s.locker.Lock(ctx, recordID)
	if err != nil {
		return nil, errors.ErrTimeout("acquire record lock").Wrap(err)
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		record, err := s.repo.FindByID(ctx, recordID)
		if err != nil {
			s.logger.Error("Failed to load record", "recordId", recordID, "operation", op, "error", err)
			return nil, fmt.Errorf("failed to load record: %w", err)
		}
		if record == nil {
			return nil, errors.ErrNotFoundWithID("inventory record", recordID)
		}

		if err := apply(record); err != nil {
			if err == errUnchanged {
				return record, nil
			}
			s.observeRejection(op, err)
			return nil, toAppError(err)
		}

		events := record.GetDomainEvents()
		err = s.repo.Save(ctx, record)
		if err == nil {
			s.observe(ctx, record, events)
			return record, nil
		}

		if stderrors.Is(err, domain.ErrConcurrencyConflict) {
			s.metrics.RecordConcurrencyConflict(op)
			if attempt < s.conflictRetries {
				s.logger.Warn("Version conflict, retrying", "recordId", recordID, "operation", op, "attempt", attempt+1)
				continue
			}
			return nil, toAppError(err)
		}

		s.logger.Error("Failed to save record", "recordId", recordID, "operation", op, "error", err)
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
}

// observe turns committed events into metrics and movement logs
func (s *StockApplicationService) observe(ctx context.Context, record *domain.InventoryRecord, events []domain.DomainEvent) {
	kind := string(record.ItemRef.Kind)
	for _, ev := range events {
		switch e := ev.(type) {
		case *domain.QuantityChangedEvent:
			s.metrics.RecordStockMovement(string(e.TransactionType), kind)
			s.logger.StockMovement(ctx, e.RecordID, string(e.TransactionType), e.Delta.String(), e.QuantityAfter.String())
		case *domain.StockReservedEvent:
			s.metrics.RecordStockMovement(string(domain.TransactionReserve), kind)
		case *domain.StockReleasedEvent:
			s.metrics.RecordStockMovement(string(domain.TransactionRelease), kind)
		case *domain.RecordTransferredEvent:
			s.metrics.RecordStockMovement(string(domain.TransactionTransfer), kind)
		case *domain.CountReconciledEvent:
			if e.AdjustmentType != domain.AdjustmentNone {
				s.metrics.RecordCountAdjustment(string(e.AdjustmentType))
			}
		case *domain.LowStockEvent:
			s.metrics.RecordLowStockAlert(kind)
			s.logger.Event(ctx, e.EventType(), map[string]any{
				"recordId":  e.RecordID,
				"quantity":  e.CurrentQuantity.String(),
				"threshold": e.Threshold.String(),
			})
		}
	}
}

func (s *StockApplicationService) observeRejection(op string, err error) {
	if reason := rejectionReason(err); reason != "" {
		s.metrics.RecordStockRejection(op, reason)
	}
}

func parseOptionalQuantity(field, s string) (domain.Quantity, error) {
	if s == "" {
		return domain.ZeroQuantity, nil
	}
	q, err := domain.ParseQuantity(s)
	if err != nil {
		var verr *domain.ValidationError
		if stderrors.As(err, &verr) {
			return domain.Quantity{}, domain.NewValidationError(field, verr.Reason)
		}
		return domain.Quantity{}, err
	}
	return q, nil
}

func parseQuantityPtr(field string, s *string) (*domain.Quantity, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	q, err := parseOptionalQuantity(field, *s)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func parseThresholds(min string, max, reorderPoint *string) (domain.Thresholds, error) {
	minQ, err := parseOptionalQuantity("minQuantity", min)
	if err != nil {
		return domain.Thresholds{}, err
	}
	maxQ, err := parseQuantityPtr("maxQuantity", max)
	if err != nil {
		return domain.Thresholds{}, err
	}
	rp, err := parseQuantityPtr("reorderPoint", reorderPoint)
	if err != nil {
		return domain.Thresholds{}, err
	}
	return domain.Thresholds{Min: minQ, Max: maxQ, ReorderPoint: rp}, nil
}
