package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleSection(t *testing.T) {
	res := Parse("Item limit exceeded for rows -> Cement OPC 53: 1.25; Steel TMT 12mm: 2.00")

	require.Len(t, res.Violations, 1)
	assert.Empty(t, res.Unmatched)
	v := res.Violations[0]
	assert.Equal(t, KindItem, v.Kind)
	require.Len(t, v.Pairs, 2)
	assert.Equal(t, Pair{Name: "Cement OPC 53", Ratio: "1.25"}, v.Pairs[0])
	assert.Equal(t, Pair{Name: "Steel TMT 12mm", Ratio: "2.00"}, v.Pairs[1])
}

func TestParseMultipleSections(t *testing.T) {
	msg := "RATE LIMIT EXCEEDED -> Sand: 1.10 | value limit exceeded -> Bricks: 3.5"
	res := Parse(msg)
	require.Len(t, res.Violations, 2)
	assert.Equal(t, KindRate, res.Violations[0].Kind)
	assert.Equal(t, KindValue, res.Violations[1].Kind)
}

func TestParseKeepsUnparseableSections(t *testing.T) {
	msg := "something unexpected happened | rate limit exceeded -> Sand: 1.10 | item limit exceeded but no arrow"
	res := Parse(msg)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, []string{"something unexpected happened", "item limit exceeded but no arrow"}, res.Unmatched)
}

func TestParseNothingStructured(t *testing.T) {
	res := Parse("internal server error")
	assert.Empty(t, res.Violations)
	assert.Equal(t, []string{"internal server error"}, res.Unmatched)
}

func TestRenderRoundTrips(t *testing.T) {
	in := []Violation{
		{Kind: KindItem, Pairs: []Pair{{Name: "Cement OPC 53", Ratio: "1.25"}}},
		{Kind: KindValue, Pairs: []Pair{{Name: "42", Ratio: "2.75"}}},
	}
	msg := Render(in)
	res := Parse(msg)
	require.Len(t, res.Violations, 2)
	assert.Empty(t, res.Unmatched)
	assert.Equal(t, in, res.Violations)
}

func TestMatchRows(t *testing.T) {
	rows := []Row{
		{Index: 0, ItemID: 7, ItemName: "Cement OPC 53"},
		{Index: 1, ItemID: 42, ItemName: "Sand"},
	}
	res := Parse("item limit exceeded -> cement opc 53: 1.25 | rate limit exceeded -> 42: 1.10 | value limit exceeded -> Gravel: 9.9")

	messages, unmatched := MatchRows(res, rows)

	require.Len(t, messages, 2)
	assert.Equal(t, RowMessage{RowIndex: 0, Field: "qty", Message: "1.25"}, messages[0])
	assert.Equal(t, RowMessage{RowIndex: 1, Field: "rate", Message: "1.10"}, messages[1])
	assert.Equal(t, []string{"Gravel: 9.9"}, unmatched)
}
