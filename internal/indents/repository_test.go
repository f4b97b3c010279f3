package indents

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleIndentsAttachesConsumptionsAcrossLines(t *testing.T) {
	indents := []Indent{
		{ID: 1, Number: "IND-001"},
		{ID: 2, Number: "IND-002"},
	}
	lines := []Line{
		{ID: 10, IndentID: 1, ItemID: 100, Approved2Qty: decimal.NewFromInt(50)},
		{ID: 11, IndentID: 1, ItemID: 101, Approved2Qty: decimal.NewFromInt(30)},
		{ID: 12, IndentID: 2, ItemID: 100, Approved2Qty: decimal.NewFromInt(20)},
	}
	consumed := []lineConsumption{
		{lineID: 10, cons: Consumption{OrderType: "PO", OrderID: 7, OrderedQty: decimal.NewFromInt(40)}},
		{lineID: 11, cons: Consumption{OrderType: "WO", OrderID: 3, OrderedQty: decimal.NewFromInt(5)}},
		{lineID: 12, cons: Consumption{OrderType: "PO", OrderID: 7, OrderedQty: decimal.NewFromInt(20)}},
	}

	assembleIndents(indents, lines, consumed)

	require.Len(t, indents[0].Lines, 2)
	require.Len(t, indents[1].Lines, 1)

	// Consumptions recorded before later lines were appended must survive
	// the appends that grow the Lines slice.
	require.Len(t, indents[0].Lines[0].Consumptions, 1)
	assert.Equal(t, int64(7), indents[0].Lines[0].Consumptions[0].OrderID)
	assert.True(t, indents[0].Lines[0].Consumptions[0].OrderedQty.Equal(decimal.NewFromInt(40)))

	require.Len(t, indents[0].Lines[1].Consumptions, 1)
	assert.Equal(t, "WO", indents[0].Lines[1].Consumptions[0].OrderType)

	require.Len(t, indents[1].Lines[0].Consumptions, 1)
	assert.True(t, indents[1].Lines[0].Consumptions[0].OrderedQty.Equal(decimal.NewFromInt(20)))
}

func TestAssembleIndentsSkipsOrphans(t *testing.T) {
	indents := []Indent{{ID: 1}}
	lines := []Line{
		{ID: 10, IndentID: 1},
		{ID: 99, IndentID: 42},
	}
	consumed := []lineConsumption{
		{lineID: 99, cons: Consumption{OrderType: "PO", OrderID: 1}},
		{lineID: 500, cons: Consumption{OrderType: "WO", OrderID: 2}},
	}

	assembleIndents(indents, lines, consumed)

	require.Len(t, indents[0].Lines, 1)
	assert.Empty(t, indents[0].Lines[0].Consumptions)
}
