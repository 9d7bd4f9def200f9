package domain

import (
	"fmt"
	"strings"
)

// ItemKind identifies which catalogue a stocked item belongs to
type ItemKind string

const (
	ItemKindMaterial ItemKind = "material"
	ItemKindLeather  ItemKind = "leather"
	ItemKindHardware ItemKind = "hardware"
	ItemKindProduct  ItemKind = "product"
)

// ParseItemKind converts free text into an ItemKind
func ParseItemKind(s string) (ItemKind, error) {
	k := ItemKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", NewValidationError("itemKind", fmt.Sprintf("unknown item kind %q", s))
	}
	return k, nil
}

func (k ItemKind) IsValid() bool {
	switch k {
	case ItemKindMaterial, ItemKindLeather, ItemKindHardware, ItemKindProduct:
		return true
	}
	return false
}

// AllowsFractional reports whether the kind is measured continuously.
// Hardware and finished products are counted in whole units.
func (k ItemKind) AllowsFractional() bool {
	return k == ItemKindLeather || k == ItemKindMaterial
}

// ItemRef points at the catalogue entity a record stocks
type ItemRef struct {
	Kind ItemKind `bson:"kind" json:"kind"`
	ID   string   `bson:"id" json:"id"`
}

func NewItemRef(kind ItemKind, id string) (ItemRef, error) {
	if !kind.IsValid() {
		return ItemRef{}, NewValidationError("itemKind", fmt.Sprintf("unknown item kind %q", kind))
	}
	if strings.TrimSpace(id) == "" {
		return ItemRef{}, NewValidationError("itemId", "item id is required")
	}
	return ItemRef{Kind: kind, ID: id}, nil
}

func (r ItemRef) String() string {
	return string(r.Kind) + "/" + r.ID
}

// CheckAmount rejects fractional amounts for discretely counted kinds
func (k ItemKind) CheckAmount(field string, q Quantity) error {
	if !k.AllowsFractional() && !q.IsWhole() {
		return NewValidationError(field, fmt.Sprintf("%s is counted in whole units, got %s", k, q))
	}
	return nil
}
