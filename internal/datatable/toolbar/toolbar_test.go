package toolbar

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/filters"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
)

type student struct {
	NIS   string
	Name  string
	Grade string
}

func newStudentTable(t *testing.T) *table.Table[student] {
	t.Helper()
	tbl, err := table.New(table.Options[student]{
		Data: []student{
			{NIS: "1001", Name: "Ana", Grade: "10"},
			{NIS: "1002", Name: "Budi", Grade: "11"},
			{NIS: "1003", Name: "Citra", Grade: "12"},
		},
		Columns: []table.Column[student]{
			{ColumnDef: models.ColumnDef{ID: "select", Meta: true}},
			{ColumnDef: models.ColumnDef{ID: "studentName", Label: "Student", Variant: models.VariantText, EnableColumnFilter: true, EnableSorting: true, EnableHiding: true}, Accessor: func(s student) string { return s.Name }},
			{ColumnDef: models.ColumnDef{ID: "grade", Label: "Grade", Variant: models.VariantMultiSelect, EnableColumnFilter: true, EnableSorting: true, EnableHiding: true}, Accessor: func(s student) string { return s.Grade }},
			{ColumnDef: models.ColumnDef{ID: "actions", Meta: true}},
		},
		GetRowID: func(s student) string { return s.NIS },
		Registry: filters.NewRegistry(filters.WithDebounce(5 * time.Millisecond)),
	})
	require.NoError(t, err)
	return tbl
}

func TestControlForCoversEveryVariant(t *testing.T) {
	for _, v := range models.Variants {
		assert.NotEqual(t, ControlUnsupported, ControlFor(v), v)
	}
	assert.Equal(t, ControlFaceted, ControlFor(models.VariantMultiSelect))
	assert.Equal(t, ControlDateRange, ControlFor(models.VariantDateRange))
	assert.Equal(t, ControlUnsupported, ControlFor("color"))
}

func TestModeSwitchKeepsFilters(t *testing.T) {
	tbl := newStudentTable(t)
	tb := New(tbl, nil)

	require.NoError(t, tb.SelectColumn("grade"))
	require.NoError(t, tb.SetValue(models.List("10", "11")))
	tbl.Registry().Flush()
	require.Len(t, tb.Filters(), 1)

	assert.Equal(t, ModeAdvanced, tb.ToggleMode())
	require.NoError(t, tb.AddFilter("grade"))
	require.NoError(t, tb.AddFilter("studentName"))
	filtersNow := tb.Filters()
	require.Len(t, filtersNow, 2)
	assert.Equal(t, "grade", filtersNow[0].ID)
	assert.Equal(t, models.OpILike, filtersNow[1].Operator)
	assert.Equal(t, 1, tbl.Registry().Len())

	tb.SetMode(ModeSimple)
	assert.Equal(t, 1, tbl.Registry().Len())
	assert.Len(t, tb.Filters(), 2)
}

func TestAdvancedUpdatePromotesDraft(t *testing.T) {
	tbl := newStudentTable(t)
	tb := New(tbl, nil)
	tb.SetMode(ModeAdvanced)

	require.NoError(t, tb.AddFilter("studentName"))
	require.NoError(t, tb.UpdateFilter("studentName", models.Scalar("an"), models.OpNotILike))
	tbl.Registry().Flush()

	f, ok := tbl.Registry().Get("studentName")
	require.True(t, ok)
	assert.Equal(t, models.OpNotILike, f.Operator)
	assert.Len(t, tb.Filters(), 1)

	require.NoError(t, tb.UpdateFilter("studentName", models.Scalar(""), ""))
	assert.Equal(t, 0, tbl.Registry().Len())
	require.Len(t, tb.Filters(), 1)
	assert.Equal(t, models.OpNotILike, tb.Filters()[0].Operator)

	assert.Error(t, tb.UpdateFilter("studentName", models.Scalar("x"), models.OpIn))

	tb.RemoveFilter("studentName")
	assert.Empty(t, tb.Filters())
}

func TestSetValueRequiresColumn(t *testing.T) {
	tb := New(newStudentTable(t), nil)
	assert.ErrorIs(t, tb.SetValue(models.Scalar("x")), ErrNoColumn)
	assert.Error(t, tb.SelectColumn("actions"))
}

func TestJoinOperatorCallback(t *testing.T) {
	var got []models.JoinOperator
	tb := New(newStudentTable(t), func(j models.JoinOperator) { got = append(got, j) })

	require.NoError(t, tb.SetJoinOperator(models.JoinOr))
	require.NoError(t, tb.SetJoinOperator(models.JoinOr))
	assert.Error(t, tb.SetJoinOperator("xor"))
	tb.SyncJoinOperator("")
	assert.Equal(t, models.JoinAnd, tb.JoinOperator())
	assert.Equal(t, []models.JoinOperator{models.JoinOr}, got)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "ana", FormatValue(models.Scalar("ana")))
	assert.Equal(t, "2, 9, 10", FormatValue(models.List("10", "9", "2")))
	assert.Equal(t, "IPA, IPS", FormatValue(models.List("IPS", "IPA")))
	assert.Equal(t, "1.5 - 20", FormatValue(models.Between(1.5, 20)))

	fm := Formatter{DateLayout: "2006-01-02", Location: time.UTC}
	from := float64(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	to := float64(time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC).UnixMilli())
	assert.Equal(t, "2024-07-01 - 2024-12-20", fm.Format(models.Between(from, to)))
}

func TestBadge(t *testing.T) {
	col := models.ColumnDef{ID: "grade", Label: "Grade"}
	assert.Equal(t, "Grade: 9, 10", Badge(models.ActiveFilter{ID: "grade", Value: models.List("10", "9")}, col))
	assert.Equal(t, "Grade: is empty", Badge(models.ActiveFilter{ID: "grade", Operator: models.OpIsEmpty}, col))
}

func TestSortList(t *testing.T) {
	tbl := newStudentTable(t)
	sl := NewSortList(tbl)

	require.NoError(t, sl.Add(""))
	require.NoError(t, sl.Add("grade"))
	require.NoError(t, sl.Add("grade"))
	assert.Equal(t, []models.SortItem{{ID: "studentName"}, {ID: "grade"}}, sl.Items())
	assert.Empty(t, sl.Available())
	assert.Error(t, sl.Add(""))

	require.NoError(t, sl.Move(1, 0))
	require.NoError(t, sl.Update(0, models.SortItem{ID: "grade", Desc: true}))
	assert.Equal(t, []models.SortItem{{ID: "grade", Desc: true}, {ID: "studentName"}}, sl.Items())
	assert.Error(t, sl.Update(1, models.SortItem{ID: "grade"}))

	require.NoError(t, sl.Remove("grade"))
	assert.Equal(t, []models.SortItem{{ID: "studentName"}}, sl.Items())
	require.NoError(t, sl.Reset())
	assert.Empty(t, sl.Items())
}

func TestColumnMenuListsHideableColumns(t *testing.T) {
	tbl := newStudentTable(t)
	menu := NewColumnMenu(tbl)
	require.Len(t, menu.Items(), 2)

	assert.True(t, menu.Toggle("grade"))
	assert.False(t, menu.Items()[1].Visible)
	assert.False(t, menu.Toggle("select"))
}

func TestExportCSVExcludesMetaColumns(t *testing.T) {
	tbl := newStudentTable(t)
	bar := NewActionBar(tbl, nil, nil, nil)
	assert.False(t, bar.Visible())

	tbl.ToggleRow("1001")
	tbl.ToggleRow("1003")
	assert.True(t, bar.Visible())

	var buf bytes.Buffer
	require.NoError(t, bar.ExportCSV(&buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"studentName", "grade"}, records[0])
	assert.Equal(t, []string{"Ana", "10"}, records[1])
	assert.Equal(t, []string{"Citra", "12"}, records[2])
}

func TestExportPDF(t *testing.T) {
	tbl := newStudentTable(t)
	tbl.ToggleAllPageRows(true)
	bar := NewActionBar(tbl, nil, nil, nil)

	var buf bytes.Buffer
	require.NoError(t, bar.ExportPDF(&buf, "Students"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestDeleteClearsSelection(t *testing.T) {
	tbl := newStudentTable(t)
	rec := &notify.Recorder{}
	var deleted []string
	bar := NewActionBar(tbl, DeleterFunc(func(_ context.Context, ids []string) error {
		deleted = ids
		return nil
	}), nil, rec)

	tbl.ToggleRow("1002")
	require.NoError(t, bar.Delete(context.Background()))
	assert.Equal(t, []string{"1002"}, deleted)
	assert.False(t, bar.Visible())
}

func TestDeleteFailureKeepsSelection(t *testing.T) {
	tbl := newStudentTable(t)
	rec := &notify.Recorder{}
	bar := NewActionBar(tbl, DeleterFunc(func(context.Context, []string) error {
		return errors.New("forbidden")
	}), nil, rec)

	tbl.ToggleRow("1002")
	require.Error(t, bar.Delete(context.Background()))
	assert.True(t, bar.Visible())
	msg, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, msg.Level)
}
