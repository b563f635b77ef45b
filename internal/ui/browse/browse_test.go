package browse

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/resources"
	"github.com/noah-isme/sma-adp-datatable/internal/ui"
)

func TestParseFilterValue(t *testing.T) {
	v, err := ParseFilterValue(models.VariantMultiSelect, " 10, 11 ,")
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "11"}, v.Items())

	v, err = ParseFilterValue(models.VariantRange, "5..")
	require.NoError(t, err)
	require.NotNil(t, v.Bounds().Min)
	assert.Equal(t, 5.0, *v.Bounds().Min)
	assert.Nil(t, v.Bounds().Max)

	v, err = ParseFilterValue(models.VariantDateRange, "2008-01-01..2008-12-31")
	require.NoError(t, err)
	require.NotNil(t, v.Bounds().Max)
	assert.Greater(t, *v.Bounds().Max, 1e10)

	_, err = ParseFilterValue(models.VariantRange, "5")
	assert.Error(t, err)
	_, err = ParseFilterValue(models.VariantNumber, "abc")
	assert.Error(t, err)
	_, err = ParseFilterValue(models.VariantDate, "31/12/2008")
	assert.Error(t, err)

	v, err = ParseFilterValue(models.VariantText, "  ani ")
	require.NoError(t, err)
	assert.Equal(t, "ani", v.String())
}

func TestNextOptionCyclesAndClears(t *testing.T) {
	col := models.ColumnDef{ID: "gender", Variant: models.VariantSelect, Options: []models.ColumnOption{{Value: "M"}, {Value: "F"}}}

	first := nextOption(col, models.FilterValue{})
	assert.Equal(t, "M", first.String())
	second := nextOption(col, first)
	assert.Equal(t, "F", second.String())
	assert.True(t, nextOption(col, second).IsEmpty())

	multi := models.ColumnDef{ID: "grade", Variant: models.VariantMultiSelect, Options: []models.ColumnOption{{Value: "10"}, {Value: "11"}}}
	assert.Equal(t, []string{"11"}, nextOption(multi, models.List("10")).Items())
	assert.True(t, nextOption(models.ColumnDef{}, models.Scalar("x")).IsEmpty())
}

func newTestModel(t *testing.T) (*Model[models.Student], *datatable.Controller[models.Student]) {
	t.Helper()
	rows := []models.Student{
		{NIS: "1001", FullName: "Ani", Gender: "F", Grade: "10", BirthDate: time.Date(2008, 1, 2, 0, 0, 0, 0, time.UTC)},
		{NIS: "1002", FullName: "Budi", Gender: "M", Grade: "11"},
	}
	tbl, err := table.New(table.Options[models.Student]{
		Data:         rows,
		Columns:      resources.StudentColumns(),
		PageCount:    3,
		GetRowID:     models.StudentRowID,
		InitialState: table.InitialState{Hidden: resources.StudentHidden},
	})
	require.NoError(t, err)

	fetcher := datatable.FetcherFunc[models.Student](func(context.Context, models.SearchParams) (datatable.Page[models.Student], error) {
		return datatable.Page[models.Student]{Rows: rows, PageCount: 3, Total: 2}, nil
	})
	ctrl, err := datatable.NewController(context.Background(), datatable.Config[models.Student]{Table: tbl, Fetcher: fetcher})
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)

	m := New(context.Background(), Config[models.Student]{Title: "Students", Controller: ctrl, Toasts: ui.NewChanNotifier(8)})
	return m, ctrl
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestSpaceSelectsCursorRow(t *testing.T) {
	m, ctrl := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.True(t, ctrl.Table().IsSelected("1001"))

	m.Update(runeKey('j'))
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Equal(t, []string{"1001", "1002"}, ctrl.Table().SelectedRowIDs())
}

func TestSortKeyTogglesFocusedColumn(t *testing.T) {
	m, ctrl := newTestModel(t)

	m.Update(runeKey('s'))
	ctrl.Wait()
	assert.Equal(t, []models.SortItem{{ID: "nis", Desc: false}}, ctrl.Params().Sort)

	m.Update(runeKey('l'))
	m.Update(runeKey('s'))
	ctrl.Wait()
	sort := ctrl.Params().Sort
	require.NotEmpty(t, sort)
	assert.Contains(t, sort, models.SortItem{ID: "full_name"})
}

func TestFilterPromptAppliesValue(t *testing.T) {
	m, ctrl := newTestModel(t)
	m.Update(runeKey('l'))

	m.Update(runeKey('f'))
	require.Equal(t, modeFilter, m.mode)
	for _, r := range "budi" {
		m.Update(runeKey(r))
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	ctrl.Wait()

	assert.Equal(t, modeNormal, m.mode)
	filters := ctrl.Params().Filters
	require.Len(t, filters, 1)
	assert.Equal(t, "full_name", filters[0].ID)
	assert.Equal(t, "budi", filters[0].Value.String())
	assert.Equal(t, 1, ctrl.Params().Page)
}

func TestNextPageMovesController(t *testing.T) {
	m, ctrl := newTestModel(t)

	m.Update(runeKey('n'))
	ctrl.Wait()
	assert.Equal(t, 2, ctrl.Params().Page)

	m.Update(runeKey('p'))
	ctrl.Wait()
	assert.Equal(t, 1, ctrl.Params().Page)
}

func TestColumnMenuHidesFocusedColumn(t *testing.T) {
	m, ctrl := newTestModel(t)
	before := ctrl.Table().VisibleColumnIDs()

	m.Update(runeKey('c'))
	require.Equal(t, modeColumns, m.mode)
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, modeNormal, m.mode)
	assert.Len(t, ctrl.Table().VisibleColumnIDs(), len(before)-1)
	assert.Contains(t, m.View(), "Students")
}

func TestJoinKeyFlipsOperator(t *testing.T) {
	m, ctrl := newTestModel(t)

	m.Update(runeKey('m'))
	ctrl.Wait()
	assert.Equal(t, models.JoinOr, ctrl.JoinOperator())

	m.Update(runeKey('m'))
	ctrl.Wait()
	assert.Equal(t, models.JoinAnd, ctrl.JoinOperator())
}

func TestPinKeyCyclesFocusedColumn(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(runeKey('l'))
	m.Update(runeKey('P'))
	cols := m.dataColumns()
	assert.Equal(t, "full_name", cols[0].ID)
	assert.Equal(t, 0, m.col)

	m.Update(runeKey('P'))
	cols = m.dataColumns()
	assert.Equal(t, "full_name", cols[len(cols)-1].ID)
	assert.Equal(t, len(cols)-1, m.col)

	m.Update(runeKey('P'))
	assert.Equal(t, "full_name", m.dataColumns()[1].ID)
	assert.Equal(t, 1, m.col)
}
