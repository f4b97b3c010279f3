package limits

import (
	"strconv"
	"strings"
)

// Row identifies one order line for matching purposes.
type Row struct {
	Index    int
	ItemID   int64
	ItemName string
}

// RowMessage is a field-level validation message attached to a row.
type RowMessage struct {
	RowIndex int
	Field    string
	Message  string
}

// MatchRows attaches each parsed pair to a row by item display name
// (case-insensitive) or by item id. Pairs that match no row are returned
// as plain strings for a generic notification fallback.
func MatchRows(result ParseResult, rows []Row) ([]RowMessage, []string) {
	byName := make(map[string]Row, len(rows))
	byID := make(map[int64]Row, len(rows))
	for _, row := range rows {
		if row.ItemName != "" {
			byName[strings.ToLower(row.ItemName)] = row
		}
		byID[row.ItemID] = row
	}

	var messages []RowMessage
	unmatched := append([]string(nil), result.Unmatched...)
	for _, v := range result.Violations {
		for _, pair := range v.Pairs {
			row, ok := byName[strings.ToLower(pair.Name)]
			if !ok {
				if id, err := strconv.ParseInt(pair.Name, 10, 64); err == nil {
					row, ok = byID[id]
				}
			}
			if !ok {
				unmatched = append(unmatched, pair.Name+": "+pair.Ratio)
				continue
			}
			messages = append(messages, RowMessage{RowIndex: row.Index, Field: v.Kind.Field(), Message: pair.Ratio})
		}
	}
	return messages, unmatched
}
