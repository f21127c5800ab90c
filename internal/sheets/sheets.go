// Package sheets reads tier rows from the source Google spreadsheet.
package sheets

import (
	"context"
	"strings"

	"github.com/qkfdcom/lcqk/internal/domain"
)

// RangeFetcher returns the cell values of one A1 range, row by row.
type RangeFetcher interface {
	FetchRange(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)
}

// RangeFetcherFunc adapts a function to RangeFetcher.
type RangeFetcherFunc func(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)

// FetchRange implements RangeFetcher.
func (f RangeFetcherFunc) FetchRange(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	return f(ctx, spreadsheetID, a1Range)
}

// ParseRows turns sheet rows into list entries. Column A is the username and
// column B the tag; both are trimmed and rows missing either are skipped.
func ParseRows(rows [][]string) []domain.ListEntry {
	entries := make([]domain.ListEntry, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		username := strings.TrimSpace(row[0])
		tag := strings.TrimSpace(row[1])
		if username == "" || tag == "" {
			continue
		}
		entries = append(entries, domain.ListEntry{UserID: username, Tag: tag})
	}
	return entries
}
