package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeWorkedExample(t *testing.T) {
	line := Line{
		ItemID:          1,
		Qty:             dec("10"),
		Rate:            dec("100"),
		DiscountPercent: dec("10"),
		CGSTPercent:     dec("9"),
		SGSTPercent:     dec("9"),
		IGSTPercent:     dec("0"),
	}

	m := Compute(line, ModeCreate)

	assert.True(t, m.DiscountAmount.Equal(dec("100")), "discount: %s", m.DiscountAmount)
	assert.True(t, m.TaxableAmount.Equal(dec("900")), "taxable: %s", m.TaxableAmount)
	assert.True(t, m.CGSTAmount.Equal(dec("81")), "cgst: %s", m.CGSTAmount)
	assert.True(t, m.SGSTAmount.Equal(dec("81")), "sgst: %s", m.SGSTAmount)
	assert.True(t, m.IGSTAmount.IsZero())
	assert.True(t, m.LineTotal.Equal(dec("1062")), "total: %s", m.LineTotal)
}

func TestComputeUnitExample(t *testing.T) {
	// qty=1 keeps the figures per-unit: 10% of 100 is 10.00,
	// taxable 90.00, 9% CGST/SGST each 8.10, total 106.20.
	line := Line{
		Qty:             dec("1"),
		Rate:            dec("100"),
		DiscountPercent: dec("10"),
		CGSTPercent:     dec("9"),
		SGSTPercent:     dec("9"),
	}
	m := Compute(line, ModeCreate)
	assert.True(t, m.DiscountAmount.Equal(dec("10")))
	assert.True(t, m.TaxableAmount.Equal(dec("90")))
	assert.True(t, m.CGSTAmount.Equal(dec("8.10")))
	assert.True(t, m.SGSTAmount.Equal(dec("8.10")))
	assert.True(t, m.LineTotal.Equal(dec("106.20")))
}

func TestComputeRoundsBaseBeforeTax(t *testing.T) {
	line := Line{Qty: dec("3"), Rate: dec("10.005")}
	m := Compute(line, ModeCreate)

	// 3 * 10.005 = 30.015; half-up to 30.02 before anything else touches it.
	require.True(t, m.BaseAmount.Equal(dec("30.02")), "base: %s", m.BaseAmount)
	require.True(t, m.TaxableAmount.Equal(dec("30.02")))
	require.True(t, m.LineTotal.Equal(dec("30.02")))
}

func TestComputeQuantityByMode(t *testing.T) {
	line := Line{
		Qty:          dec("5"),
		Approved1Qty: dec("4"),
		Approved2Qty: dec("3"),
		Rate:         dec("1"),
	}

	cases := []struct {
		name string
		mode Mode
		want string
	}{
		{"create", ModeCreate, "5"},
		{"edit", ModeEdit, "5"},
		{"approve level 1", ModeApproveLevel1, "4"},
		{"approve level 2", ModeApproveLevel2, "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Compute(line, tc.mode)
			assert.True(t, m.Quantity.Equal(dec(tc.want)), "got %s", m.Quantity)
		})
	}
}

func TestComputeIdempotent(t *testing.T) {
	line := Line{Qty: dec("7.5"), Rate: dec("13.33"), DiscountPercent: dec("2.5"), CGSTPercent: dec("6"), SGSTPercent: dec("6"), IGSTPercent: dec("0")}
	first := Compute(line, ModeEdit)
	second := Compute(line, ModeEdit)
	assert.Equal(t, first, second)
}

func TestComputeNegativeAndOversizedInputsPropagate(t *testing.T) {
	// The calculator does not clamp; validation lives at the DTO boundary.
	line := Line{Qty: dec("-2"), Rate: dec("10"), DiscountPercent: dec("150")}
	m := Compute(line, ModeCreate)
	assert.True(t, m.BaseAmount.Equal(dec("-20")))
	assert.True(t, m.DiscountAmount.Equal(dec("-30")))
	assert.True(t, m.TaxableAmount.Equal(dec("10")))
}

func TestParseAmountCoercesGarbageToZero(t *testing.T) {
	assert.True(t, ParseAmount("").IsZero())
	assert.True(t, ParseAmount("abc").IsZero())
	assert.True(t, ParseAmount("12,5").IsZero())
	assert.True(t, ParseAmount("  42.50 ").Equal(dec("42.5")))
}

func TestNumberUnmarshalLenient(t *testing.T) {
	var n Number
	require.NoError(t, n.UnmarshalJSON([]byte(`"oops"`)))
	assert.True(t, n.IsZero())
	require.NoError(t, n.UnmarshalJSON([]byte(`null`)))
	assert.True(t, n.IsZero())
	require.NoError(t, n.UnmarshalJSON([]byte(`"19.99"`)))
	assert.True(t, n.Equal(dec("19.99")))
	require.NoError(t, n.UnmarshalJSON([]byte(`7`)))
	assert.True(t, n.Equal(dec("7")))
}
