package toolbar

import (
	"fmt"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// SortList edits the ordered multi-column sort of a table.
type SortList[R any] struct {
	table *table.Table[R]
}

// NewSortList creates a sort list over the table.
func NewSortList[R any](t *table.Table[R]) *SortList[R] {
	return &SortList[R]{table: t}
}

// Items returns the current sort keys.
func (s *SortList[R]) Items() []models.SortItem {
	return s.table.Sorting()
}

// Available returns sortable columns not yet in the list.
func (s *SortList[R]) Available() []models.ColumnDef {
	used := make(map[string]struct{})
	for _, item := range s.table.Sorting() {
		used[item.ID] = struct{}{}
	}
	var out []models.ColumnDef
	for _, c := range s.table.Defs() {
		if _, ok := used[c.ID]; ok || !columns.CanSort(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Add appends an ascending key. With an empty id the first available column is used.
func (s *SortList[R]) Add(id string) error {
	if id == "" {
		avail := s.Available()
		if len(avail) == 0 {
			return fmt.Errorf("no sortable columns left")
		}
		id = avail[0].ID
	}
	items := s.table.Sorting()
	for _, item := range items {
		if item.ID == id {
			return nil
		}
	}
	return s.table.SetSorting(append(items, models.SortItem{ID: id}))
}

// Update changes the column or direction of the key at index.
func (s *SortList[R]) Update(index int, item models.SortItem) error {
	items := s.table.Sorting()
	if index < 0 || index >= len(items) {
		return fmt.Errorf("sort index %d out of range", index)
	}
	for i, other := range items {
		if i != index && other.ID == item.ID {
			return fmt.Errorf("column %q already sorted", item.ID)
		}
	}
	items[index] = item
	return s.table.SetSorting(items)
}

// Remove drops a column from the sort.
func (s *SortList[R]) Remove(id string) error {
	items := s.table.Sorting()
	out := items[:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return s.table.SetSorting(out)
}

// Move reorders a key.
func (s *SortList[R]) Move(from, to int) error {
	items := s.table.Sorting()
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return fmt.Errorf("sort move %d -> %d out of range", from, to)
	}
	item := items[from]
	items = append(items[:from], items[from+1:]...)
	items = append(items[:to], append([]models.SortItem{item}, items[to:]...)...)
	return s.table.SetSorting(items)
}

// Reset clears the sort.
func (s *SortList[R]) Reset() error {
	return s.table.SetSorting(nil)
}
