// Package table owns the row, column, pagination, sorting, visibility,
// pinning and selection state of one rendered table.
package table

import (
	"errors"
	"fmt"
	"sync"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/filters"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// PinSide is where a column is pinned.
type PinSide string

const (
	PinNone  PinSide = ""
	PinLeft  PinSide = "left"
	PinRight PinSide = "right"
)

// Column pairs column metadata with a cell accessor.
type Column[R any] struct {
	models.ColumnDef
	Accessor func(R) string
}

// InitialState seeds visibility and pinning.
type InitialState struct {
	Hidden      []string
	PinnedLeft  []string
	PinnedRight []string
	Sorting     []models.SortItem
	PageSize    int
}

// Options configure a Table.
type Options[R any] struct {
	Data         []R
	Columns      []Column[R]
	PageCount    int
	InitialState InitialState
	GetRowID     func(R) string
	Registry     *filters.Registry
}

// ColumnState is a column with its capability flags and current state.
type ColumnState struct {
	models.ColumnDef
	CanFilter   bool
	CanHide     bool
	CanSort     bool
	Visible     bool
	Pinned      PinSide
	Sorted      *models.SortItem
	FilterValue *models.FilterValue
}

// ErrNotSortable is returned when sorting by a column that does not allow it.
var ErrNotSortable = errors.New("column is not sortable")

// Table is a generic table instance. Widgets receive it by injection.
type Table[R any] struct {
	mu         sync.RWMutex
	data       []R
	cols       []Column[R]
	pageCount  int
	pageIndex  int
	pageSize   int
	sorting    []models.SortItem
	visibility map[string]bool
	pinning    map[string]PinSide
	selection  map[string]bool
	getRowID   func(R) string
	registry   *filters.Registry
}

// New builds a table instance from the options.
func New[R any](opts Options[R]) (*Table[R], error) {
	if opts.GetRowID == nil {
		return nil, fmt.Errorf("table requires GetRowID")
	}
	if opts.Registry == nil {
		opts.Registry = filters.NewRegistry()
	}
	t := &Table[R]{
		data:       append([]R(nil), opts.Data...),
		cols:       append([]Column[R](nil), opts.Columns...),
		pageCount:  opts.PageCount,
		pageSize:   models.DefaultPerPage,
		sorting:    append([]models.SortItem(nil), opts.InitialState.Sorting...),
		visibility: make(map[string]bool),
		pinning:    make(map[string]PinSide),
		selection:  make(map[string]bool),
		getRowID:   opts.GetRowID,
		registry:   opts.Registry,
	}
	if opts.InitialState.PageSize > 0 {
		t.pageSize = opts.InitialState.PageSize
	}
	for _, id := range opts.InitialState.Hidden {
		if c, ok := t.column(id); ok && columns.CanHide(c.ColumnDef) {
			t.visibility[id] = false
		}
	}
	for _, id := range opts.InitialState.PinnedLeft {
		t.pinning[id] = PinLeft
	}
	for _, id := range opts.InitialState.PinnedRight {
		t.pinning[id] = PinRight
	}
	return t, nil
}

// Registry returns the filter registry backing column filters.
func (t *Table[R]) Registry() *filters.Registry {
	return t.registry
}

// Defs returns the raw column metadata.
func (t *Table[R]) Defs() []models.ColumnDef {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.ColumnDef, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.ColumnDef
	}
	return out
}

// SetDefs replaces column metadata, e.g. after facet counts arrive.
// Accessors are kept.
func (t *Table[R]) SetDefs(defs []models.ColumnDef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	byID := make(map[string]models.ColumnDef, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	for i := range t.cols {
		if d, ok := byID[t.cols[i].ID]; ok {
			t.cols[i].ColumnDef = d
		}
	}
}

// Columns returns every column with capability flags and current state.
func (t *Table[R]) Columns() []ColumnState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ColumnState, 0, len(t.cols))
	for _, c := range t.cols {
		out = append(out, t.stateLocked(c))
	}
	return out
}

func (t *Table[R]) stateLocked(c Column[R]) ColumnState {
	st := ColumnState{
		ColumnDef: c.ColumnDef,
		CanFilter: columns.CanFilter(c.ColumnDef),
		CanHide:   columns.CanHide(c.ColumnDef),
		CanSort:   columns.CanSort(c.ColumnDef),
		Visible:   t.visibleLocked(c),
		Pinned:    t.pinning[c.ID],
	}
	for i := range t.sorting {
		if t.sorting[i].ID == c.ID {
			s := t.sorting[i]
			st.Sorted = &s
		}
	}
	if f, ok := t.registry.Get(c.ID); ok {
		v := f.Value
		st.FilterValue = &v
	}
	return st
}

func (t *Table[R]) column(id string) (Column[R], bool) {
	for _, c := range t.cols {
		if c.ID == id {
			return c, true
		}
	}
	return Column[R]{}, false
}

func (t *Table[R]) visibleLocked(c Column[R]) bool {
	if !columns.CanHide(c.ColumnDef) {
		return true
	}
	visible, ok := t.visibility[c.ID]
	return !ok || visible
}

// VisibleColumns returns visible columns ordered left-pinned, unpinned, right-pinned.
func (t *Table[R]) VisibleColumns() []Column[R] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var left, center, right []Column[R]
	for _, c := range t.cols {
		if !t.visibleLocked(c) {
			continue
		}
		switch t.pinning[c.ID] {
		case PinLeft:
			left = append(left, c)
		case PinRight:
			right = append(right, c)
		default:
			center = append(center, c)
		}
	}
	out := append(left, center...)
	return append(out, right...)
}

// VisibleColumnIDs returns the ids of visible, non-meta columns. Views
// snapshot this list.
func (t *Table[R]) VisibleColumnIDs() []string {
	cols := t.VisibleColumns()
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c.Meta {
			continue
		}
		out = append(out, c.ID)
	}
	return out
}

// SetColumnVisibility shows or hides a hideable column.
func (t *Table[R]) SetColumnVisibility(id string, visible bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.column(id)
	if !ok || !columns.CanHide(c.ColumnDef) {
		return false
	}
	if t.visibleLocked(c) == visible {
		return false
	}
	t.visibility[id] = visible
	return true
}

// ToggleColumnVisibility flips a column's visibility.
func (t *Table[R]) ToggleColumnVisibility(id string) bool {
	t.mu.RLock()
	c, ok := t.column(id)
	visible := ok && t.visibleLocked(c)
	t.mu.RUnlock()
	if !ok {
		return false
	}
	return t.SetColumnVisibility(id, !visible)
}

// ShowOnly makes exactly the given hideable columns visible.
func (t *Table[R]) ShowOnly(ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, c := range t.cols {
		if !columns.CanHide(c.ColumnDef) {
			continue
		}
		_, ok := want[c.ID]
		t.visibility[c.ID] = ok
	}
}

// PinColumn pins a column to a side, or unpins it with PinNone.
func (t *Table[R]) PinColumn(id string, side PinSide) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if side == PinNone {
		delete(t.pinning, id)
		return
	}
	t.pinning[id] = side
}

// Sorting returns the current sort list.
func (t *Table[R]) Sorting() []models.SortItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]models.SortItem(nil), t.sorting...)
}

// SetSorting replaces the sort list; every id must be sortable.
func (t *Table[R]) SetSorting(items []models.SortItem) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range items {
		c, ok := t.column(s.ID)
		if !ok || !columns.CanSort(c.ColumnDef) {
			return fmt.Errorf("%w: %s", ErrNotSortable, s.ID)
		}
	}
	t.sorting = append([]models.SortItem(nil), items...)
	t.pageIndex = 0
	return nil
}

// ToggleSort cycles a column through ascending, descending and unsorted,
// making it the only sort key.
func (t *Table[R]) ToggleSort(id string) error {
	current := t.Sorting()
	next := []models.SortItem{{ID: id}}
	if len(current) == 1 && current[0].ID == id {
		if current[0].Desc {
			next = nil
		} else {
			next = []models.SortItem{{ID: id, Desc: true}}
		}
	}
	return t.SetSorting(next)
}

// PageIndex returns the zero-based page index.
func (t *Table[R]) PageIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pageIndex
}

// PageSize returns the number of rows per page.
func (t *Table[R]) PageSize() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pageSize
}

// PageCount returns the number of pages reported by the backend.
func (t *Table[R]) PageCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pageCount
}

// SetPageIndex moves to a page, clamped to the known page count.
func (t *Table[R]) SetPageIndex(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 {
		index = 0
	}
	if t.pageCount > 0 && index > t.pageCount-1 {
		index = t.pageCount - 1
	}
	t.pageIndex = index
}

// RestorePageIndex moves to a page taken from the URL or a view without
// clamping; the page count of the old result does not apply to it.
func (t *Table[R]) RestorePageIndex(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pageIndex = max(index, 0)
}

// SetPageSize changes the page size and returns to the first page.
func (t *Table[R]) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pageSize = size
	t.pageIndex = 0
}

// Data returns the rows of the current page.
func (t *Table[R]) Data() []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]R(nil), t.data...)
}

// SetData replaces the current page. Selection is keyed by row id, so rows
// that come back under the same id stay selected.
func (t *Table[R]) SetData(data []R, pageCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = append([]R(nil), data...)
	t.pageCount = pageCount
}

// RowID returns the business key of a row.
func (t *Table[R]) RowID(row R) string {
	return t.getRowID(row)
}

// ToggleRow flips the selection of one row.
func (t *Table[R]) ToggleRow(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selection[id] {
		delete(t.selection, id)
		return
	}
	t.selection[id] = true
}

// SelectRow sets the selection of one row.
func (t *Table[R]) SelectRow(id string, selected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if selected {
		t.selection[id] = true
		return
	}
	delete(t.selection, id)
}

// IsSelected reports whether a row is selected.
func (t *Table[R]) IsSelected(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selection[id]
}

// ToggleAllPageRows selects or clears every row on the current page.
func (t *Table[R]) ToggleAllPageRows(selected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, row := range t.data {
		id := t.getRowID(row)
		if selected {
			t.selection[id] = true
		} else {
			delete(t.selection, id)
		}
	}
}

// AllPageRowsSelected reports whether every row of the page is selected.
func (t *Table[R]) AllPageRowsSelected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.data) == 0 {
		return false
	}
	for _, row := range t.data {
		if !t.selection[t.getRowID(row)] {
			return false
		}
	}
	return true
}

// SelectedRowIDs returns the selected ids present on the current page, in row order.
func (t *Table[R]) SelectedRowIDs() []string {
	rows := t.SelectedRows()
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, t.getRowID(r))
	}
	return out
}

// SelectedRows returns the selected rows present on the current page.
func (t *Table[R]) SelectedRows() []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]R, 0, len(t.selection))
	for _, row := range t.data {
		if t.selection[t.getRowID(row)] {
			out = append(out, row)
		}
	}
	return out
}

// SelectedCount returns the number of selected rows on the current page.
func (t *Table[R]) SelectedCount() int {
	return len(t.SelectedRows())
}

// ResetRowSelection clears the selection.
func (t *Table[R]) ResetRowSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selection = make(map[string]bool)
}

// SetColumnFilter writes a column filter through the registry. Empty values
// remove the filter; other values are debounced.
func (t *Table[R]) SetColumnFilter(id string, value models.FilterValue, op models.Operator) error {
	t.mu.RLock()
	c, ok := t.column(id)
	t.mu.RUnlock()
	if !ok || !columns.CanFilter(c.ColumnDef) {
		return fmt.Errorf("column %q is not filterable", id)
	}
	if op == "" {
		op = models.DefaultOperator(c.Variant)
	}
	f := models.ActiveFilter{ID: id, Value: value, Operator: op, Variant: c.Variant}
	if f.Empty() {
		t.registry.Remove(id)
		return nil
	}
	t.registry.DebouncedAdd(f)
	return nil
}

// Cell renders one cell of a row.
func (c Column[R]) Cell(row R) string {
	if c.Accessor == nil {
		return ""
	}
	return c.Accessor(row)
}
