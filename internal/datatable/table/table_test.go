package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/filters"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

type row struct {
	NIS   string
	Name  string
	Grade string
}

func testColumns() []Column[row] {
	return []Column[row]{
		{ColumnDef: models.ColumnDef{ID: "select", Meta: true}},
		{ColumnDef: models.ColumnDef{ID: "studentName", Label: "Name", Variant: models.VariantText, EnableSorting: true, EnableHiding: true, EnableColumnFilter: true}, Accessor: func(r row) string { return r.Name }},
		{ColumnDef: models.ColumnDef{ID: "grade", Label: "Grade", Variant: models.VariantMultiSelect, EnableHiding: true, EnableColumnFilter: true}, Accessor: func(r row) string { return r.Grade }},
		{ColumnDef: models.ColumnDef{ID: "nis", Label: "NIS", Variant: models.VariantText, EnableHiding: true}, Accessor: func(r row) string { return r.NIS }},
	}
}

func newTable(t *testing.T, data []row) *Table[row] {
	t.Helper()
	tbl, err := New(Options[row]{
		Data:      data,
		Columns:   testColumns(),
		PageCount: 3,
		GetRowID:  func(r row) string { return r.NIS },
		Registry:  filters.NewRegistry(filters.WithDebounce(10 * time.Millisecond)),
	})
	require.NoError(t, err)
	return tbl
}

func TestNewRequiresRowID(t *testing.T) {
	_, err := New(Options[row]{Columns: testColumns()})
	assert.Error(t, err)
}

func TestColumnsExposeCapabilities(t *testing.T) {
	tbl := newTable(t, nil)
	cols := tbl.Columns()
	require.Len(t, cols, 4)

	assert.False(t, cols[0].CanHide)
	assert.False(t, cols[0].CanFilter)
	assert.True(t, cols[1].CanSort)
	assert.True(t, cols[2].CanFilter)
	assert.False(t, cols[2].CanSort)
	assert.False(t, cols[3].CanFilter)
}

func TestSelectionSurvivesRefetch(t *testing.T) {
	tbl := newTable(t, []row{{NIS: "1001", Name: "Ana"}, {NIS: "1002", Name: "Budi"}})
	tbl.ToggleRow("1002")
	assert.Equal(t, []string{"1002"}, tbl.SelectedRowIDs())

	tbl.SetData([]row{{NIS: "1003", Name: "Citra"}, {NIS: "1002", Name: "Budi S."}}, 3)
	selected := tbl.SelectedRows()
	require.Len(t, selected, 1)
	assert.Equal(t, "Budi S.", selected[0].Name)
}

func TestToggleAllPageRows(t *testing.T) {
	tbl := newTable(t, []row{{NIS: "1"}, {NIS: "2"}})
	tbl.ToggleAllPageRows(true)
	assert.True(t, tbl.AllPageRowsSelected())
	assert.Equal(t, 2, tbl.SelectedCount())

	tbl.ToggleRow("1")
	assert.False(t, tbl.AllPageRowsSelected())

	tbl.ResetRowSelection()
	assert.Empty(t, tbl.SelectedRowIDs())
}

func TestVisibilityIgnoresMetaColumns(t *testing.T) {
	tbl := newTable(t, nil)
	assert.False(t, tbl.SetColumnVisibility("select", false))
	assert.True(t, tbl.SetColumnVisibility("nis", false))
	assert.False(t, tbl.SetColumnVisibility("nis", false))
	assert.Equal(t, []string{"studentName", "grade"}, tbl.VisibleColumnIDs())

	tbl.ToggleColumnVisibility("nis")
	assert.Equal(t, []string{"studentName", "grade", "nis"}, tbl.VisibleColumnIDs())

	tbl.ShowOnly([]string{"grade"})
	assert.Equal(t, []string{"grade"}, tbl.VisibleColumnIDs())
}

func TestPinningOrdersVisibleColumns(t *testing.T) {
	tbl := newTable(t, nil)
	tbl.PinColumn("nis", PinLeft)
	tbl.PinColumn("studentName", PinRight)

	cols := tbl.VisibleColumns()
	ids := make([]string, 0, len(cols))
	for _, c := range cols {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"nis", "select", "grade", "studentName"}, ids)

	tbl.PinColumn("nis", PinNone)
	assert.Equal(t, PinNone, tbl.Columns()[3].Pinned)
}

func TestSortingRejectsUnsortableColumns(t *testing.T) {
	tbl := newTable(t, nil)
	tbl.SetPageIndex(2)

	require.NoError(t, tbl.ToggleSort("studentName"))
	assert.Equal(t, []models.SortItem{{ID: "studentName"}}, tbl.Sorting())
	assert.Equal(t, 0, tbl.PageIndex())

	require.NoError(t, tbl.ToggleSort("studentName"))
	assert.True(t, tbl.Sorting()[0].Desc)
	require.NoError(t, tbl.ToggleSort("studentName"))
	assert.Empty(t, tbl.Sorting())

	assert.ErrorIs(t, tbl.SetSorting([]models.SortItem{{ID: "grade"}}), ErrNotSortable)
}

func TestPaginationClamps(t *testing.T) {
	tbl := newTable(t, nil)
	tbl.SetPageIndex(10)
	assert.Equal(t, 2, tbl.PageIndex())
	tbl.SetPageIndex(-1)
	assert.Equal(t, 0, tbl.PageIndex())

	tbl.SetPageIndex(1)
	tbl.SetPageSize(50)
	assert.Equal(t, 50, tbl.PageSize())
	assert.Equal(t, 0, tbl.PageIndex())
}

func TestSetColumnFilterGoesThroughRegistry(t *testing.T) {
	tbl := newTable(t, nil)
	require.NoError(t, tbl.SetColumnFilter("grade", models.List("10"), ""))
	require.Eventually(t, func() bool { return tbl.Registry().Len() == 1 }, time.Second, 5*time.Millisecond)

	f, ok := tbl.Registry().Get("grade")
	require.True(t, ok)
	assert.Equal(t, models.OpIn, f.Operator)
	assert.Equal(t, []string{"10"}, tbl.Columns()[2].FilterValue.Items())

	require.NoError(t, tbl.SetColumnFilter("grade", models.List(), ""))
	assert.Equal(t, 0, tbl.Registry().Len())

	assert.Error(t, tbl.SetColumnFilter("nis", models.Scalar("1"), ""))
}

func TestSetDefsKeepsAccessors(t *testing.T) {
	tbl := newTable(t, nil)
	defs := tbl.Defs()
	defs[2].Options = []models.ColumnOption{{Label: "10", Value: "10", Count: 4}}
	tbl.SetDefs(defs)

	cols := tbl.VisibleColumns()
	assert.Equal(t, "X", cols[2].Cell(row{Grade: "X"}))
	assert.Equal(t, 4, tbl.Columns()[2].Options[0].Count)
}
