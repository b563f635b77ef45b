package toolbar

import (
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
)

// ColumnMenu lists hideable columns with their visibility.
type ColumnMenu[R any] struct {
	table *table.Table[R]
}

// NewColumnMenu creates a column menu over the table.
func NewColumnMenu[R any](t *table.Table[R]) *ColumnMenu[R] {
	return &ColumnMenu[R]{table: t}
}

// Items returns the hideable columns.
func (m *ColumnMenu[R]) Items() []table.ColumnState {
	var out []table.ColumnState
	for _, c := range m.table.Columns() {
		if c.CanHide {
			out = append(out, c)
		}
	}
	return out
}

// Toggle flips a column's visibility.
func (m *ColumnMenu[R]) Toggle(id string) bool {
	return m.table.ToggleColumnVisibility(id)
}
