package domain

// Status is the derived stock state of a record
type Status string

const (
	StatusInStock        Status = "IN_STOCK"
	StatusLowStock       Status = "LOW_STOCK"
	StatusOutOfStock     Status = "OUT_OF_STOCK"
	StatusPendingReorder Status = "PENDING_REORDER"
	StatusDiscontinued   Status = "DISCONTINUED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusInStock, StatusLowStock, StatusOutOfStock, StatusPendingReorder, StatusDiscontinued:
		return true
	}
	return false
}

// DeriveStatus maps quantity and thresholds to a status. Rules are checked in
// order; the first match wins.
//
// PENDING_REORDER fires at or above max, which is the long-standing shop
// behaviour even though it reads like an overstock signal.
func DeriveStatus(quantity, min Quantity, max *Quantity, discontinued bool) Status {
	switch {
	case discontinued:
		return StatusDiscontinued
	case !quantity.IsPositive():
		return StatusOutOfStock
	case quantity.LessThanOrEqual(min):
		return StatusLowStock
	case max != nil && quantity.GreaterThanOrEqual(*max):
		return StatusPendingReorder
	default:
		return StatusInStock
	}
}
