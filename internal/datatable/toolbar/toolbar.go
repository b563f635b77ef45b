// Package toolbar composes the filter registry, table and views into the
// interactive controls around a table: filter builder, sort list, column
// menu and the bulk action bar.
package toolbar

import (
	"errors"
	"fmt"
	"sync"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// Mode selects how filters are edited.
type Mode int

const (
	// ModeSimple edits one filter at a time through a column select.
	ModeSimple Mode = iota
	// ModeAdvanced edits a list of filters with explicit operators.
	ModeAdvanced
)

func (m Mode) String() string {
	if m == ModeAdvanced {
		return "advanced"
	}
	return "simple"
}

// Control is the widget used to edit a filter value.
type Control string

const (
	ControlInput       Control = "input"
	ControlNumber      Control = "number"
	ControlFaceted     Control = "faceted"
	ControlSlider      Control = "slider"
	ControlDatePicker  Control = "datePicker"
	ControlDateRange   Control = "dateRangePicker"
	ControlUnsupported Control = ""
)

// ControlFor maps a variant to its control. New variants need a case here.
func ControlFor(v models.Variant) Control {
	switch v {
	case models.VariantText:
		return ControlInput
	case models.VariantNumber:
		return ControlNumber
	case models.VariantRange:
		return ControlSlider
	case models.VariantDate:
		return ControlDatePicker
	case models.VariantDateRange:
		return ControlDateRange
	case models.VariantSelect, models.VariantMultiSelect:
		return ControlFaceted
	default:
		return ControlUnsupported
	}
}

// ErrNoColumn is returned when a simple-mode value is set before a column is chosen.
var ErrNoColumn = errors.New("no filter column selected")

// Toolbar edits the filters of one table. Both modes read and write the
// table's registry; advanced mode additionally keeps draft rows that have
// no value yet.
type Toolbar[R any] struct {
	mu     sync.Mutex
	table  *table.Table[R]
	mode   Mode
	column string
	drafts []models.ActiveFilter
	join   models.JoinOperator
	onJoin func(models.JoinOperator)
}

// New creates a toolbar over the given table. onJoin receives join operator
// changes; it may be nil.
func New[R any](t *table.Table[R], onJoin func(models.JoinOperator)) *Toolbar[R] {
	return &Toolbar[R]{table: t, join: models.JoinAnd, onJoin: onJoin}
}

// Mode returns the current edit mode.
func (tb *Toolbar[R]) Mode() Mode {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.mode
}

// SetMode switches edit mode. The registry is left untouched.
func (tb *Toolbar[R]) SetMode(m Mode) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.mode = m
}

// ToggleMode flips between simple and advanced.
func (tb *Toolbar[R]) ToggleMode() Mode {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.mode == ModeSimple {
		tb.mode = ModeAdvanced
	} else {
		tb.mode = ModeSimple
	}
	return tb.mode
}

// FilterOptions lists the filterable columns.
func (tb *Toolbar[R]) FilterOptions() []models.FilterOption {
	return columns.FilterOptions(tb.table.Defs())
}

// SelectColumn chooses the column edited in simple mode.
func (tb *Toolbar[R]) SelectColumn(id string) error {
	col, ok := columns.Find(tb.table.Defs(), id)
	if !ok || !columns.CanFilter(col) {
		return fmt.Errorf("column %q is not filterable", id)
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.column = id
	return nil
}

// SelectedColumn returns the simple-mode column, or "".
func (tb *Toolbar[R]) SelectedColumn() string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.column
}

// SetValue writes the simple-mode column's value with its default operator.
func (tb *Toolbar[R]) SetValue(value models.FilterValue) error {
	column := tb.SelectedColumn()
	if column == "" {
		return ErrNoColumn
	}
	return tb.table.SetColumnFilter(column, value, "")
}

// Filters returns the registry's filters followed by advanced-mode drafts.
func (tb *Toolbar[R]) Filters() []models.ActiveFilter {
	out := tb.table.Registry().List()
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return append(out, tb.drafts...)
}

// AddFilter starts a filter row for the column with its default operator.
func (tb *Toolbar[R]) AddFilter(columnID string) error {
	col, ok := columns.Find(tb.table.Defs(), columnID)
	if !ok || !columns.CanFilter(col) {
		return fmt.Errorf("column %q is not filterable", columnID)
	}
	if _, exists := tb.table.Registry().Get(columnID); exists {
		return nil
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for _, d := range tb.drafts {
		if d.ID == columnID {
			return nil
		}
	}
	tb.drafts = append(tb.drafts, models.ActiveFilter{
		ID:       columnID,
		Operator: models.DefaultOperator(col.Variant),
		Variant:  col.Variant,
	})
	return nil
}

// UpdateFilter sets a filter row's value and operator. An empty operator
// keeps the current one. Rows without a usable value stay drafts.
func (tb *Toolbar[R]) UpdateFilter(columnID string, value models.FilterValue, op models.Operator) error {
	col, ok := columns.Find(tb.table.Defs(), columnID)
	if !ok || !columns.CanFilter(col) {
		return fmt.Errorf("column %q is not filterable", columnID)
	}
	if op == "" {
		op = tb.operatorFor(columnID, col.Variant)
	}
	if !allowed(col.Variant, op) {
		return fmt.Errorf("operator %q not supported by %s filters", op, col.Variant)
	}
	f := models.ActiveFilter{ID: columnID, Value: value, Operator: op, Variant: col.Variant}
	if f.Empty() {
		tb.table.Registry().Remove(columnID)
		tb.upsertDraft(f)
		return nil
	}
	tb.dropDraft(columnID)
	tb.table.Registry().DebouncedAdd(f)
	return nil
}

// RemoveFilter deletes a filter row.
func (tb *Toolbar[R]) RemoveFilter(columnID string) {
	tb.dropDraft(columnID)
	tb.table.Registry().Remove(columnID)
}

// ClearFilters removes every filter and draft.
func (tb *Toolbar[R]) ClearFilters() {
	tb.mu.Lock()
	tb.drafts = nil
	tb.mu.Unlock()
	tb.table.Registry().Clear()
}

// JoinOperator returns how filters combine.
func (tb *Toolbar[R]) JoinOperator() models.JoinOperator {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.join
}

// SetJoinOperator changes how filters combine.
func (tb *Toolbar[R]) SetJoinOperator(j models.JoinOperator) error {
	if j != models.JoinAnd && j != models.JoinOr {
		return fmt.Errorf("unknown join operator %q", j)
	}
	tb.mu.Lock()
	changed := tb.join != j
	tb.join = j
	tb.mu.Unlock()
	if changed && tb.onJoin != nil {
		tb.onJoin(j)
	}
	return nil
}

// SyncJoinOperator records a join operator loaded from the URL or a view
// without echoing it back.
func (tb *Toolbar[R]) SyncJoinOperator(j models.JoinOperator) {
	if j == "" {
		j = models.JoinAnd
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.join = j
}

func (tb *Toolbar[R]) operatorFor(columnID string, v models.Variant) models.Operator {
	if f, ok := tb.table.Registry().Get(columnID); ok && f.Operator != "" {
		return f.Operator
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for _, d := range tb.drafts {
		if d.ID == columnID && d.Operator != "" {
			return d.Operator
		}
	}
	return models.DefaultOperator(v)
}

func (tb *Toolbar[R]) upsertDraft(f models.ActiveFilter) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for i := range tb.drafts {
		if tb.drafts[i].ID == f.ID {
			tb.drafts[i] = f
			return
		}
	}
	tb.drafts = append(tb.drafts, f)
}

func (tb *Toolbar[R]) dropDraft(id string) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for i := range tb.drafts {
		if tb.drafts[i].ID == id {
			tb.drafts = append(tb.drafts[:i], tb.drafts[i+1:]...)
			return
		}
	}
}

func allowed(v models.Variant, op models.Operator) bool {
	for _, o := range models.OperatorsFor(v) {
		if o == op {
			return true
		}
	}
	return false
}
