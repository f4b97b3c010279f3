package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a lenient decimal for request payloads. Rows under live edit
// arrive with blanks and half-typed values; anything that does not parse
// is treated as zero instead of failing the whole recalculation.
type Number struct {
	decimal.Decimal
}

// NewNumber wraps a decimal.
func NewNumber(d decimal.Decimal) Number {
	return Number{Decimal: d}
}

// ParseAmount coerces a string to a decimal, returning zero for anything
// that is empty or not a number.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// UnmarshalJSON accepts numbers, quoted numbers, null and garbage strings.
func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		n.Decimal = decimal.Zero
		return nil
	}
	s = strings.Trim(s, `"`)
	n.Decimal = ParseAmount(s)
	return nil
}

// MarshalJSON emits the decimal as a JSON string to avoid float precision
// loss on the wire.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.Decimal.String() + `"`), nil
}
