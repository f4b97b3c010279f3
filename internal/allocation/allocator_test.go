package allocation

import (
	"testing"
	"time"

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

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAllocateMergesOldestFirst(t *testing.T) {
	itemX := int64(77)
	a := Indent{
		ID:     2,
		Date:   date("2024-01-01"),
		SiteID: 5,
		Lines:  []IndentLine{{ID: 21, ItemID: itemX, Approved2Qty: dec("5"), Remark: "urgent"}},
	}
	b := Indent{
		ID:     1,
		Date:   date("2024-01-02"),
		SiteID: 5,
		Lines:  []IndentLine{{ID: 11, ItemID: itemX, Approved2Qty: dec("5"), Remark: "later"}},
	}

	// Deliberately pass B first; the date must win the ordering.
	res := Allocate([]Indent{b, a})

	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Qty.Equal(dec("10")))
	assert.Equal(t, itemX, res.Lines[0].ItemID)

	splits := res.Allocations[itemX]
	require.Len(t, splits, 2)
	assert.Equal(t, int64(21), splits[0].IndentLineID, "indent A line consumed first")
	assert.Equal(t, int64(11), splits[1].IndentLineID)
}

func TestAllocateCapsByConsumption(t *testing.T) {
	line := IndentLine{ID: 1, ItemID: 9, Approved2Qty: dec("10"), Consumed: []decimal.Decimal{dec("4"), dec("3")}}
	assert.True(t, line.Remaining().Equal(dec("3")))

	over := IndentLine{ID: 2, ItemID: 9, Approved2Qty: dec("10"), Consumed: []decimal.Decimal{dec("12")}}
	assert.True(t, over.Remaining().IsZero())

	res := Allocate([]Indent{{ID: 1, Date: date("2024-02-01"), Lines: []IndentLine{line, over}}})
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Qty.Equal(dec("3")))
	require.Len(t, res.Allocations[9], 1)
	assert.Equal(t, int64(1), res.Allocations[9][0].IndentLineID)
}

func TestAllocateEmptyWhenNoCapacity(t *testing.T) {
	res := Allocate([]Indent{{
		ID:   1,
		Date: date("2024-03-01"),
		Lines: []IndentLine{
			{ID: 1, ItemID: 4, Approved2Qty: dec("5"), Consumed: []decimal.Decimal{dec("5")}},
			{ID: 2, ItemID: 6, Approved2Qty: dec("0")},
		},
	}})
	assert.True(t, res.Empty())
	assert.Empty(t, res.Allocations)
}

func TestAllocateRemarkPropagation(t *testing.T) {
	single := Allocate([]Indent{{
		ID:    1,
		Date:  date("2024-01-05"),
		Lines: []IndentLine{{ID: 1, ItemID: 3, Approved2Qty: dec("2"), Remark: "grade 53 cement"}},
	}})
	require.Len(t, single.Lines, 1)
	assert.Equal(t, "grade 53 cement", single.Lines[0].Remark)

	multi := Allocate([]Indent{
		{ID: 1, Date: date("2024-01-05"), Lines: []IndentLine{{ID: 1, ItemID: 3, Approved2Qty: dec("2"), Remark: "first"}}},
		{ID: 2, Date: date("2024-01-06"), Lines: []IndentLine{{ID: 2, ItemID: 3, Approved2Qty: dec("4"), Remark: "second"}}},
	})
	require.Len(t, multi.Lines, 1)
	assert.Equal(t, "", multi.Lines[0].Remark)
}

func TestAllocateHeaderHints(t *testing.T) {
	delivery := date("2024-04-10")
	single := Allocate([]Indent{{
		ID:           1,
		Date:         date("2024-04-01"),
		SiteID:       8,
		DeliveryDate: &delivery,
		Lines:        []IndentLine{{ID: 1, ItemID: 2, Approved2Qty: dec("1")}},
	}})
	assert.Equal(t, int64(8), single.SiteID)
	require.NotNil(t, single.DeliveryDate)
	assert.True(t, single.DeliveryDate.Equal(delivery))

	multiSite := Allocate([]Indent{
		{ID: 1, Date: date("2024-04-01"), SiteID: 8, Lines: []IndentLine{{ID: 1, ItemID: 2, Approved2Qty: dec("1")}}},
		{ID: 2, Date: date("2024-04-02"), SiteID: 9, Lines: []IndentLine{{ID: 2, ItemID: 5, Approved2Qty: dec("1")}}},
	})
	assert.Zero(t, multiSite.SiteID, "conflicting sites leave the hint empty")
	assert.Nil(t, multiSite.DeliveryDate, "multi-indent dates are left for manual entry")
}

func TestAllocateTieBreakByIndentThenLine(t *testing.T) {
	day := date("2024-05-01")
	res := Allocate([]Indent{
		{ID: 2, Date: day, Lines: []IndentLine{{ID: 40, ItemID: 1, Approved2Qty: dec("1")}}},
		{ID: 1, Date: day, Lines: []IndentLine{
			{ID: 12, ItemID: 1, Approved2Qty: dec("1")},
			{ID: 11, ItemID: 1, Approved2Qty: dec("1")},
		}},
	})

	splits := res.Allocations[1]
	require.Len(t, splits, 3)
	assert.Equal(t, int64(11), splits[0].IndentLineID)
	assert.Equal(t, int64(12), splits[1].IndentLineID)
	assert.Equal(t, int64(40), splits[2].IndentLineID)
}
