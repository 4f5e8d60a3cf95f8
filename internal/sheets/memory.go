package sheets

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// MemoryStore is an in-memory RowStore used in tests and dev mode. It keeps
// the same 1-based, header-first addressing as the remote sheet and counts
// writes so tests can assert that an operation produced no persisted write.
type MemoryStore struct {
	mu     sync.Mutex
	width  int
	rows   [][]string // rows[0] is the header
	writes int
}

// NewMemoryStore creates a MemoryStore with the given header row. The header
// defines the sheet width.
func NewMemoryStore(header []string) *MemoryStore {
	return &MemoryStore{
		width: len(header),
		rows:  [][]string{PadRow(header, len(header))},
	}
}

// Column returns all non-empty values of a column, header included.
func (m *MemoryStore) Column(ctx context.Context, col int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, row := range m.rows {
		if col-1 < len(row) && row[col-1] != "" {
			out = append(out, evalCell(row[col-1]))
		}
	}
	return out, nil
}

// Rows returns up to limit data rows in store order.
func (m *MemoryStore) Rows(ctx context.Context, limit int) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]string
	for i := 1; i < len(m.rows) && len(out) < limit; i++ {
		if empty(m.rows[i]) {
			continue
		}
		out = append(out, evalRow(PadRow(append([]string(nil), m.rows[i]...), m.width)))
	}
	return out, nil
}

// Row returns a single row by 1-based index.
func (m *MemoryStore) Row(ctx context.Context, index int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 1 || index > len(m.rows) {
		return nil, ErrRowNotFound
	}
	return evalRow(PadRow(append([]string(nil), m.rows[index-1]...), m.width)), nil
}

// Append adds a row after the last non-empty row.
func (m *MemoryStore) Append(ctx context.Context, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, PadRow(append([]string(nil), values...), m.width))
	m.writes++
	return nil
}

// Update replaces an entire row, extending the sheet if needed.
func (m *MemoryStore) Update(ctx context.Context, index int, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(index)
	m.rows[index-1] = PadRow(append([]string(nil), values...), m.width)
	m.writes++
	return nil
}

// UpdateCell replaces a single cell, extending the sheet if needed.
func (m *MemoryStore) UpdateCell(ctx context.Context, index, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(index)
	row := PadRow(m.rows[index-1], m.width)
	row[col-1] = value
	m.rows[index-1] = row
	m.writes++
	return nil
}

// Writes returns the number of write round trips performed so far.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryStore) ensure(index int) {
	for len(m.rows) < index {
		m.rows = append(m.rows, make([]string, m.width))
	}
}

// evalCell mirrors the remote API, which returns evaluated values rather
// than formula text. Only the row-pinning formula the codecs write is
// understood; anything else reads back verbatim.
func evalCell(v string) string {
	rest, ok := strings.CutPrefix(v, "=ROW($A$")
	if !ok {
		return v
	}
	n, err := strconv.Atoi(strings.TrimSuffix(rest, ")"))
	if err != nil {
		return v
	}
	return strconv.Itoa(n)
}

func evalRow(row []string) []string {
	for i, v := range row {
		row[i] = evalCell(v)
	}
	return row
}

func empty(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
