// Package resources declares the table resources served by the gateway and
// browsed by the console, with their column catalogues.
package resources

import (
	"strconv"
	"time"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// Resource names double as URL path segments and view table names.
const (
	Students = "students"
	Teachers = "teachers"
)

// Names lists every table resource.
var Names = []string{Students, Teachers}

// Known reports whether name is a table resource.
func Known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Defs returns the column metadata of a resource.
func Defs(name string) []models.ColumnDef {
	switch name {
	case Students:
		return defsOf(StudentColumns())
	case Teachers:
		return defsOf(TeacherColumns())
	default:
		return nil
	}
}

// Hidden returns the columns a resource hides by default.
func Hidden(name string) []string {
	switch name {
	case Students:
		return StudentHidden
	case Teachers:
		return TeacherHidden
	default:
		return nil
	}
}

// DefaultColumns returns the ids of the columns shown when nothing was toggled.
func DefaultColumns(name string) []string {
	hidden := make(map[string]struct{})
	for _, id := range Hidden(name) {
		hidden[id] = struct{}{}
	}
	var out []string
	for _, def := range Defs(name) {
		if def.Meta {
			continue
		}
		if _, ok := hidden[def.ID]; ok {
			continue
		}
		out = append(out, def.ID)
	}
	return out
}

func defsOf[R any](cols []table.Column[R]) []models.ColumnDef {
	out := make([]models.ColumnDef, len(cols))
	for i, c := range cols {
		out[i] = c.ColumnDef
	}
	return out
}

var (
	selectColumn  = models.ColumnDef{ID: "select", Meta: true}
	actionsColumn = models.ColumnDef{ID: "actions", Meta: true}
	activeOptions = []models.ColumnOption{{Label: "Active", Value: "true"}, {Label: "Inactive", Value: "false"}}
)

func pointerOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
