package toolbar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// DateThreshold separates plain numbers from millisecond epoch timestamps in
// range values.
const DateThreshold = 1e10

// DefaultDateLayout renders date range bounds.
const DefaultDateLayout = "Jan 2, 2006"

// Formatter renders filter values for badges.
type Formatter struct {
	DateLayout string
	Location   *time.Location
}

var defaultFormatter = Formatter{DateLayout: DefaultDateLayout, Location: time.Local}

// FormatValue renders a value with the default formatter.
func FormatValue(v models.FilterValue) string {
	return defaultFormatter.Format(v)
}

// Badge renders "<label>: <value>" for an active filter with the default formatter.
func Badge(f models.ActiveFilter, col models.ColumnDef) string {
	return defaultFormatter.Badge(f, col)
}

// Badge renders "<label>: <value>" for an active filter.
func (fm Formatter) Badge(f models.ActiveFilter, col models.ColumnDef) string {
	label := col.Label
	if label == "" {
		label = f.ID
	}
	switch f.Operator {
	case models.OpIsEmpty:
		return label + ": is empty"
	case models.OpIsNotEmpty:
		return label + ": is not empty"
	}
	value := fm.Format(f.Value)
	if col.Unit != "" && f.Value.Kind() == models.KindRange {
		value += " " + col.Unit
	}
	return fmt.Sprintf("%s: %s", label, value)
}

// Format renders a filter value: scalars as-is, lists sorted numeric-aware and
// comma-joined, ranges as "min - max" or a date range when both bounds are
// epoch milliseconds.
func (fm Formatter) Format(v models.FilterValue) string {
	switch v.Kind() {
	case models.KindScalar:
		return v.String()
	case models.KindList:
		items := append([]string(nil), v.Items()...)
		sort.SliceStable(items, func(i, j int) bool { return lessNumeric(items[i], items[j]) })
		return strings.Join(items, ", ")
	case models.KindRange:
		b := v.Bounds()
		if b.Min != nil && b.Max != nil && *b.Min > DateThreshold && *b.Max > DateThreshold {
			return fm.date(*b.Min) + " - " + fm.date(*b.Max)
		}
		return bound(b.Min) + " - " + bound(b.Max)
	default:
		return ""
	}
}

func (fm Formatter) date(ms float64) string {
	layout := fm.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	loc := fm.Location
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(int64(ms)).In(loc).Format(layout)
}

func bound(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func lessNumeric(a, b string) bool {
	x, errA := strconv.ParseFloat(a, 64)
	y, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}
