package workflows

import "fmt"

// MaterialReservationError reports the line that stopped a production
// order from reserving its materials
type MaterialReservationError struct {
	OrderID       string
	RecordID      string
	Quantity      string
	UnderlyingErr error
}

func (e *MaterialReservationError) Error() string {
	return fmt.Sprintf("material reservation failed for order %s on record %s (%s): %v",
		e.OrderID, e.RecordID, e.Quantity, e.UnderlyingErr)
}

func (e *MaterialReservationError) Unwrap() error {
	return e.UnderlyingErr
}
