package application

import (
	"github.com/leathercraft/inventory-service/internal/domain"
	"github.com/leathercraft/inventory-service/internal/stock"
)

// ToRecordDTO maps a record without its ledger
func ToRecordDTO(r *domain.InventoryRecord) *RecordDTO {
	return &RecordDTO{
		ID:                r.ID,
		Item:              ItemRefDTO{Kind: string(r.ItemRef.Kind), ID: r.ItemRef.ID},
		Quantity:          r.Quantity.String(),
		ReservedQuantity:  r.ReservedQuantity.String(),
		AvailableQuantity: r.Available().String(),
		MinQuantity:       r.MinQuantity.String(),
		MaxQuantity:       optionalString(r.MaxQuantity),
		ReorderPoint:      optionalString(r.ReorderPoint),
		Status:            string(r.Status),
		NeedsReorder:      stock.NeedsReorder(r),
		StorageLocation:   r.StorageLocation,
		LocationDetails:   r.LocationDetails,
		IsActive:          r.IsActive,
		LastCountAt:       r.LastCountAt,
		LastMovementAt:    r.LastMovementAt,
		LastRestockAt:     r.LastRestockAt,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ToRecordDTOWithLedger includes the retained ledger
func ToRecordDTOWithLedger(r *domain.InventoryRecord) *RecordDTO {
	dto := ToRecordDTO(r)
	dto.Transactions = ToTransactionDTOs(r.RecentTransactions(0))
	return dto
}

func ToTransactionDTO(e domain.TransactionEntry) *TransactionDTO {
	dto := &TransactionDTO{
		ID:             e.ID,
		Type:           string(e.Type),
		Basis:          string(e.Basis),
		QuantityBefore: e.QuantityBefore.String(),
		QuantityAfter:  e.QuantityAfter.String(),
		Delta:          e.Delta.String(),
		AdjustmentType: string(e.AdjustmentType),
		Notes:          e.Notes,
		CreatedAt:      e.CreatedAt,
	}
	if e.Reference != nil {
		dto.ReferenceType = e.Reference.Type
		dto.ReferenceID = e.Reference.ID
	}
	return dto
}

func ToTransactionDTOs(entries []domain.TransactionEntry) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, *ToTransactionDTO(e))
	}
	return out
}

func toRecordDTOs(records []*domain.InventoryRecord) []RecordDTO {
	out := make([]RecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, *ToRecordDTO(r))
	}
	return out
}

func optionalString(q *domain.Quantity) *string {
	if q == nil {
		return nil
	}
	s := q.String()
	return &s
}
