// Package sheets provides typed row-oriented access to a remote spreadsheet.
//
// The store is a flat append/update surface reached over network I/O: there
// is no transaction or locking primitive, every write is a discrete round
// trip. Row indexes are 1-based and row 1 is the header, matching the
// spreadsheet's native addressing.
package sheets

import (
	"context"
	"errors"
)

// ErrRowNotFound is returned by Row when the index is outside the sheet.
var ErrRowNotFound = errors.New("sheets: row not found")

// RowStore is the read/write contract for a single sheet.
type RowStore interface {
	// Column returns all non-empty values of a column, header included.
	Column(ctx context.Context, col int) ([]string, error)

	// Rows returns up to limit data rows (header excluded), each padded or
	// truncated to the sheet width. Store-native order.
	Rows(ctx context.Context, limit int) ([][]string, error)

	// Row returns a single row by 1-based index, padded to the sheet width.
	Row(ctx context.Context, index int) ([]string, error)

	// Append adds a row after the last non-empty row.
	Append(ctx context.Context, values []string) error

	// Update replaces an entire row in place.
	Update(ctx context.Context, index int, values []string) error

	// UpdateCell replaces a single cell (1-based row and column).
	UpdateCell(ctx context.Context, index, col int, value string) error
}

// PadRow returns row extended with empty strings (or truncated) to width.
func PadRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
