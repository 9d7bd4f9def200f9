package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType classifies a ledger entry. The set is closed; free text
// must go through ParseTransactionType.
type TransactionType string

const (
	TransactionPurchase     TransactionType = "PURCHASE"
	TransactionUsage        TransactionType = "USAGE"
	TransactionAdjustment   TransactionType = "ADJUSTMENT"
	TransactionReserve      TransactionType = "RESERVE"
	TransactionRelease      TransactionType = "RELEASE"
	TransactionTransfer     TransactionType = "TRANSFER"
	TransactionWaste        TransactionType = "WASTE"
	TransactionReturn       TransactionType = "RETURN"
	TransactionInitialStock TransactionType = "INITIAL_STOCK"
)

var transactionTypes = []TransactionType{
	TransactionPurchase,
	TransactionUsage,
	TransactionAdjustment,
	TransactionReserve,
	TransactionRelease,
	TransactionTransfer,
	TransactionWaste,
	TransactionReturn,
	TransactionInitialStock,
}

// TransactionTypes lists every transaction type in declaration order
func TransactionTypes() []TransactionType {
	out := make([]TransactionType, len(transactionTypes))
	copy(out, transactionTypes)
	return out
}

// ParseTransactionType accepts any casing and "-" or " " in place of "_"
func ParseTransactionType(s string) (TransactionType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	t := TransactionType(norm)
	if !t.IsValid() {
		return "", NewValidationError("transactionType", fmt.Sprintf("unknown transaction type %q", s))
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	for _, known := range transactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// MovesOnHand reports whether entries of this type change on-hand quantity.
// RESERVE and RELEASE only move the reserved amount.
func (t TransactionType) MovesOnHand() bool {
	return t != TransactionReserve && t != TransactionRelease
}

// AdjustmentType tags count adjustments
type AdjustmentType string

const (
	AdjustmentNone  AdjustmentType = ""
	AdjustmentFound AdjustmentType = "FOUND"
	AdjustmentLost  AdjustmentType = "LOST"
)

// AdjustmentFor classifies a count delta
func AdjustmentFor(delta Quantity) AdjustmentType {
	switch {
	case delta.IsPositive():
		return AdjustmentFound
	case delta.IsNegative():
		return AdjustmentLost
	default:
		return AdjustmentNone
	}
}

// EntryBasis says which figure QuantityBefore/QuantityAfter describe
type EntryBasis string

const (
	// BasisOnHand entries track physical quantity
	BasisOnHand EntryBasis = "ON_HAND"
	// BasisAvailable entries track quantity minus reserved (RESERVE, RELEASE)
	BasisAvailable EntryBasis = "AVAILABLE"
)

// Reference links an entry to the business object that caused it
type Reference struct {
	Type string `bson:"type" json:"type"`
	ID   string `bson:"id" json:"id"`
}

// OrderReference builds a production order reference
func OrderReference(orderID string) *Reference {
	if orderID == "" {
		return nil
	}
	return &Reference{Type: "production_order", ID: orderID}
}

// TransactionEntry is one line in a record's ledger. Delta always equals
// QuantityAfter - QuantityBefore on the entry's Basis.
type TransactionEntry struct {
	ID             string          `bson:"id" json:"id"`
	Type           TransactionType `bson:"type" json:"type"`
	Basis          EntryBasis      `bson:"basis" json:"basis"`
	QuantityBefore Quantity        `bson:"quantityBefore" json:"quantityBefore"`
	QuantityAfter  Quantity        `bson:"quantityAfter" json:"quantityAfter"`
	Delta          Quantity        `bson:"delta" json:"delta"`
	AdjustmentType AdjustmentType  `bson:"adjustmentType,omitempty" json:"adjustmentType,omitempty"`
	Reference      *Reference      `bson:"reference,omitempty" json:"reference,omitempty"`
	Notes          string          `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
}

// ReferenceID returns the reference id or ""
func (e TransactionEntry) ReferenceID() string {
	if e.Reference == nil {
		return ""
	}
	return e.Reference.ID
}

func (e TransactionEntry) clone() TransactionEntry {
	if e.Reference != nil {
		ref := *e.Reference
		e.Reference = &ref
	}
	return e
}
