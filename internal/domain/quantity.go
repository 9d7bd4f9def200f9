package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Quantity is an exact decimal stock amount. Leather is tracked in square
// feet and can be fractional; hardware and products are whole units.
type Quantity struct {
	d decimal.Decimal
}

// Accepted input range. Sums of in-range amounts stay well inside
// Decimal128's 34 significant digits.
const (
	MaxQuantityIntegerDigits = 15
	MaxQuantityScale         = 8
)

// ZeroQuantity is the additive identity
var ZeroQuantity = Quantity{}

// NewQuantity creates a whole-unit quantity
func NewQuantity(units int64) Quantity {
	return Quantity{d: decimal.NewFromInt(units)}
}

// QuantityFromDecimal wraps a decimal value
func QuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity{d: d}
}

// ParseQuantity parses a decimal literal such as "12" or "3.25"
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, NewValidationError("quantity", fmt.Sprintf("%q is not a number", s))
	}
	if err := checkRange(d); err != nil {
		return Quantity{}, err
	}
	return Quantity{d: d}, nil
}

// checkRange works on the coefficient and exponent so huge exponents are
// never expanded.
func checkRange(d decimal.Decimal) error {
	digits := strings.TrimPrefix(d.Coefficient().String(), "-")
	if digits == "0" {
		return nil
	}
	exp := int(d.Exponent())
	trimmed := strings.TrimRight(digits, "0")
	exp += len(digits) - len(trimmed)

	if exp < -MaxQuantityScale {
		return NewValidationError("quantity", fmt.Sprintf("at most %d decimal places", MaxQuantityScale))
	}
	if len(trimmed)+exp > MaxQuantityIntegerDigits {
		return NewValidationError("quantity", fmt.Sprintf("at most %d digits before the decimal point", MaxQuantityIntegerDigits))
	}
	return nil
}

// MustParseQuantity is ParseQuantity for literals known to be valid
func MustParseQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Decimal() decimal.Decimal { return q.d }
func (q Quantity) Add(o Quantity) Quantity  { return Quantity{d: q.d.Add(o.d)} }
func (q Quantity) Sub(o Quantity) Quantity  { return Quantity{d: q.d.Sub(o.d)} }
func (q Quantity) Neg() Quantity            { return Quantity{d: q.d.Neg()} }
func (q Quantity) Cmp(o Quantity) int       { return q.d.Cmp(o.d) }
func (q Quantity) Equal(o Quantity) bool    { return q.d.Equal(o.d) }
func (q Quantity) IsZero() bool             { return q.d.IsZero() }
func (q Quantity) IsPositive() bool         { return q.d.IsPositive() }
func (q Quantity) IsNegative() bool         { return q.d.IsNegative() }
func (q Quantity) LessThan(o Quantity) bool { return q.d.LessThan(o.d) }
func (q Quantity) GreaterThan(o Quantity) bool {
	return q.d.GreaterThan(o.d)
}
func (q Quantity) LessThanOrEqual(o Quantity) bool {
	return q.d.LessThanOrEqual(o.d)
}
func (q Quantity) GreaterThanOrEqual(o Quantity) bool {
	return q.d.GreaterThanOrEqual(o.d)
}

// IsWhole reports whether q has no fractional part
func (q Quantity) IsWhole() bool {
	return q.d.Equal(q.d.Truncate(0))
}

// Float64 is for metrics and display only
func (q Quantity) Float64() float64 {
	f, _ := q.d.Float64()
	return f
}

func (q Quantity) String() string {
	return q.d.String()
}

// MinQuantity returns the smaller of a and b
func MinQuantity(a, b Quantity) Quantity {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MaxQuantity returns the larger of a and b
func MaxQuantity(a, b Quantity) Quantity {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// QuantityPtr is a helper for optional thresholds
func QuantityPtr(q Quantity) *Quantity {
	return &q
}

// MarshalJSON encodes the quantity as a JSON string to keep precision
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.d.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return NewValidationError("quantity", "not a number")
	}
	if err := checkRange(d); err != nil {
		return err
	}
	q.d = d
	return nil
}

// MarshalBSONValue stores the quantity as Decimal128 so Mongo can compare
// quantities server side.
func (q Quantity) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d128, ok := primitive.ParseDecimal128FromBigInt(q.d.Coefficient(), int(q.d.Exponent()))
	if !ok {
		return 0, nil, NewValidationError("quantity", "exceeds Decimal128 precision")
	}
	return bson.MarshalValue(d128)
}

// UnmarshalBSONValue decodes Decimal128 and, for older documents, numeric
// and string representations.
func (q *Quantity) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Decimal128:
		d, err := decimal.NewFromString(raw.Decimal128().String())
		if err != nil {
			return fmt.Errorf("decode quantity: %w", err)
		}
		q.d = d
	case bsontype.Int32:
		q.d = decimal.NewFromInt32(raw.Int32())
	case bsontype.Int64:
		q.d = decimal.NewFromInt(raw.Int64())
	case bsontype.Double:
		q.d = decimal.NewFromFloat(raw.Double())
	case bsontype.String:
		d, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return fmt.Errorf("decode quantity: %w", err)
		}
		q.d = d
	case bsontype.Null:
		q.d = decimal.Zero
	default:
		return fmt.Errorf("decode quantity: unsupported bson type %s", t)
	}
	return nil
}
