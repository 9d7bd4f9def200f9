package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/leathercraft/inventory-service/internal/domain"
	"github.com/leathercraft/inventory-service/pkg/errors"
)

// GetRecord returns a record with its retained ledger
func (s *StockApplicationService) GetRecord(ctx context.Context, query GetRecordQuery) (*RecordDTO, error) {
	record, err := s.load(ctx, query.RecordID)
	if err != nil {
		return nil, err
	}
	return ToRecordDTOWithLedger(record), nil
}

// GetRecordByItem returns the record stocking a catalogue item
func (s *StockApplicationService) GetRecordByItem(ctx context.Context, query GetRecordByItemQuery) (*RecordDTO, error) {
	kind, err := domain.ParseItemKind(query.ItemKind)
	if err != nil {
		return nil, toAppError(err)
	}
	item, err := domain.NewItemRef(kind, query.ItemID)
	if err != nil {
		return nil, toAppError(err)
	}

	record, err := s.repo.FindByItemRef(ctx, item)
	if err != nil {
		s.logger.Error("Failed to get record by item", "item", item.String(), "error", err)
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if record == nil {
		return nil, errors.ErrNotFoundWithID("inventory record for item", item.String())
	}
	return ToRecordDTOWithLedger(record), nil
}

// ListRecords pages through records, optionally filtered by status
func (s *StockApplicationService) ListRecords(ctx context.Context, query ListRecordsQuery) (*RecordListDTO, error) {
	limit, offset := pagination(query.Limit, query.Offset)

	var (
		records []*domain.InventoryRecord
		total   int64
		err     error
	)
	if query.Status != "" {
		status := domain.Status(query.Status)
		if !status.IsValid() {
			return nil, errors.ErrValidation(fmt.Sprintf("unknown status %q", query.Status)).WithDetail("status", query.Status)
		}
		records, err = s.repo.FindByStatus(ctx, status, limit, offset)
		if err == nil {
			total, err = s.repo.CountByStatus(ctx, status)
		}
	} else {
		records, err = s.repo.FindAll(ctx, limit, offset)
		if err == nil {
			total, err = s.repo.Count(ctx)
		}
	}
	if err != nil {
		s.logger.Error("Failed to list records", "status", query.Status, "error", err)
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return &RecordListDTO{Records: toRecordDTOs(records), Total: total, Limit: limit, Offset: offset}, nil
}

// FindNeedingReorder lists active, stocked records at or below their
// reorder threshold
func (s *StockApplicationService) FindNeedingReorder(ctx context.Context, query ReorderQuery) ([]RecordDTO, error) {
	limit, _ := pagination(query.Limit, 0)

	records, err := s.repo.FindNeedingReorder(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to scan for reorder", "error", err)
		return nil, fmt.Errorf("failed to scan for reorder: %w", err)
	}
	return toRecordDTOs(records), nil
}

// GetTransactions returns retained ledger entries, newest first
func (s *StockApplicationService) GetTransactions(ctx context.Context, query TransactionsQuery) ([]TransactionDTO, error) {
	record, err := s.load(ctx, query.RecordID)
	if err != nil {
		return nil, err
	}

	if query.TransactionType != "" {
		txType, err := domain.ParseTransactionType(query.TransactionType)
		if err != nil {
			return nil, toAppError(err)
		}
		entries := record.FilterByType(txType)
		if query.Limit > 0 && len(entries) > query.Limit {
			entries = entries[:query.Limit]
		}
		return ToTransactionDTOs(entries), nil
	}

	return ToTransactionDTOs(s.engine.RecentTransactions(record, query.Limit)), nil
}

// GetUsageReport sums the retained ledger by movement kind. Usage and waste
// are reported as positive amounts.
func (s *StockApplicationService) GetUsageReport(ctx context.Context, query GetRecordQuery) (*UsageReportDTO, error) {
	record, err := s.load(ctx, query.RecordID)
	if err != nil {
		return nil, err
	}

	purchased := record.SumDelta(domain.OfType(domain.TransactionPurchase))
	used := record.SumDelta(domain.OfType(domain.TransactionUsage)).Neg()
	wasted := record.SumDelta(domain.OfType(domain.TransactionWaste)).Neg()
	adjusted := record.SumDelta(domain.OfType(domain.TransactionAdjustment))
	net := record.SumDelta(func(e domain.TransactionEntry) bool { return e.Basis == domain.BasisOnHand })

	report := &UsageReportDTO{
		RecordID:          record.ID,
		EntriesConsidered: len(record.Transactions),
		Purchased:         purchased.String(),
		Used:              used.String(),
		Wasted:            wasted.String(),
		Adjusted:          adjusted.String(),
		NetChange:         net.String(),
	}

	drawn := used.Add(wasted)
	if drawn.IsPositive() {
		pct := used.Decimal().Div(drawn.Decimal()).Mul(decimal.NewFromInt(100)).Round(2)
		report.EfficiencyPercent = pct.StringFixed(2)
	}
	return report, nil
}

func (s *StockApplicationService) load(ctx context.Context, recordID string) (*domain.InventoryRecord, error) {
	if recordID == "" {
		return nil, errors.ErrValidation("record id is required")
	}
	record, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		s.logger.Error("Failed to get record", "recordId", recordID, "error", err)
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if record == nil {
		return nil, errors.ErrNotFoundWithID("inventory record", recordID)
	}
	return record, nil
}

func pagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
