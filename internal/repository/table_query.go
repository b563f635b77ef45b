package repository

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// dateThreshold separates second epochs from millisecond epochs in date filters.
const dateThreshold = 1e10

// ColumnKind tells the query builder how to bind filter values for a column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumber
	KindDate
	KindBool
)

// TableColumn maps a column id to its SQL expression.
type TableColumn struct {
	Expr  string
	Kind  ColumnKind
	Facet bool
}

// TableSchema describes how a table resource is read and written.
type TableSchema struct {
	// Table is the physical table updated by bulk actions.
	Table string
	// From is the FROM clause, joins included, used by reads.
	From string
	// Select lists the projected columns, aliased to the row struct's db tags.
	Select string
	// Key is the unqualified business key expression used by bulk actions.
	Key string
	// DefaultOrder applies when no sort is requested and breaks ties otherwise.
	DefaultOrder string
	Columns      map[string]TableColumn
}

// FacetColumns returns the ids of columns with value counts, sorted.
func (s TableSchema) FacetColumns() []string {
	var ids []string
	for id, col := range s.Columns {
		if col.Facet {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

type queryArgs struct {
	values []interface{}
}

func (q *queryArgs) bind(v interface{}) string {
	q.values = append(q.values, v)
	return fmt.Sprintf("$%d", len(q.values))
}

// where renders the filters combined with join. The filter on skip is left
// out so facet counts reflect the other filters only.
func (s TableSchema) where(args *queryArgs, filters []models.ActiveFilter, join models.JoinOperator, skip string) (string, error) {
	var conditions []string
	for _, f := range filters {
		if f.ID == skip || f.Empty() {
			continue
		}
		col, ok := s.Columns[f.ID]
		if !ok {
			return "", fmt.Errorf("unknown filter column %q", f.ID)
		}
		cond, err := condition(args, col, f)
		if err != nil {
			return "", fmt.Errorf("filter %s: %w", f.ID, err)
		}
		if cond != "" {
			conditions = append(conditions, cond)
		}
	}
	if len(conditions) == 0 {
		return "", nil
	}
	glue := " AND "
	if join == models.JoinOr {
		glue = " OR "
	}
	return " WHERE (" + strings.Join(conditions, glue) + ")", nil
}

func (s TableSchema) orderBy(items []models.SortItem) (string, error) {
	parts := make([]string, 0, len(items)+1)
	for _, item := range items {
		col, ok := s.Columns[item.ID]
		if !ok {
			return "", fmt.Errorf("unknown sort column %q", item.ID)
		}
		dir := "ASC"
		if item.Desc {
			dir = "DESC"
		}
		parts = append(parts, col.Expr+" "+dir)
	}
	if s.DefaultOrder != "" {
		parts = append(parts, s.DefaultOrder)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches value literally anywhere in the column.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

func condition(args *queryArgs, col TableColumn, f models.ActiveFilter) (string, error) {
	op := f.Operator
	if op == "" {
		op = models.DefaultOperator(f.Variant)
	}
	text := col.Expr
	if col.Kind != KindText {
		text = "CAST(" + col.Expr + " AS TEXT)"
	}

	switch op {
	case models.OpIsEmpty:
		return fmt.Sprintf("(%s IS NULL OR %s = '')", col.Expr, text), nil
	case models.OpIsNotEmpty:
		return fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", col.Expr, text), nil
	case models.OpILike:
		return fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, text, args.bind(containsPattern(f.Value.String()))), nil
	case models.OpNotILike:
		return fmt.Sprintf(`%s NOT ILIKE %s ESCAPE '\'`, text, args.bind(containsPattern(f.Value.String()))), nil
	case models.OpIn, models.OpNotIn:
		items := f.Value.Items()
		if f.Value.Kind() == models.KindScalar {
			items = []string{f.Value.String()}
		}
		cond := fmt.Sprintf("%s = ANY(%s)", text, args.bind(pq.Array(items)))
		if op == models.OpNotIn {
			cond = "NOT (" + cond + ")"
		}
		return cond, nil
	case models.OpIsBetween:
		bounds := f.Value.Bounds()
		var parts []string
		if bounds.Min != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", col.Expr, args.bind(rangeBound(col.Kind, *bounds.Min))))
		}
		if bounds.Max != nil {
			parts = append(parts, fmt.Sprintf("%s <= %s", col.Expr, args.bind(rangeBound(col.Kind, *bounds.Max))))
		}
		if len(parts) == 0 {
			return "", nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	}

	sqlOp, ok := comparisons[op]
	if !ok {
		return "", fmt.Errorf("unsupported operator %q", op)
	}
	value, err := scalarValue(col.Kind, f.Value.String())
	if err != nil {
		return "", err
	}
	if col.Kind == KindDate && (op == models.OpEq || op == models.OpNe) {
		return fmt.Sprintf("CAST(%s AS DATE) %s CAST(%s AS DATE)", col.Expr, sqlOp, args.bind(value)), nil
	}
	return fmt.Sprintf("%s %s %s", col.Expr, sqlOp, args.bind(value)), nil
}

var comparisons = map[models.Operator]string{
	models.OpEq:  "=",
	models.OpNe:  "<>",
	models.OpLt:  "<",
	models.OpLte: "<=",
	models.OpGt:  ">",
	models.OpGte: ">=",
}

func scalarValue(kind ColumnKind, raw string) (interface{}, error) {
	switch kind {
	case KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	case KindDate:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return epochTime(f), nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a date", raw)
		}
		return t, nil
	default:
		return raw, nil
	}
}

func rangeBound(kind ColumnKind, v float64) interface{} {
	if kind == KindDate {
		return epochTime(v)
	}
	return v
}

// epochTime reads values below the threshold as seconds and the rest as milliseconds.
func epochTime(v float64) time.Time {
	if v < dateThreshold {
		return time.Unix(int64(v), 0).UTC()
	}
	return time.UnixMilli(int64(v)).UTC()
}
