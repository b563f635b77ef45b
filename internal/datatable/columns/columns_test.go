package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

func sampleColumns() []models.ColumnDef {
	return []models.ColumnDef{
		{ID: "select", Meta: true},
		{ID: "full_name", Label: "Name", Variant: models.VariantText, EnableColumnFilter: true, EnableSorting: true},
		{ID: "grade", Label: "Grade", Variant: models.VariantMultiSelect, EnableColumnFilter: true, EnableHiding: true,
			Options: []models.ColumnOption{{Label: "X", Value: "10"}, {Label: "XI", Value: "11"}}},
		{ID: "phone", Label: "Phone", EnableHiding: true},
		{ID: "actions", Meta: true, EnableHiding: true},
	}
}

func TestFilterOptionsSkipsMetaAndUnfilterable(t *testing.T) {
	opts := FilterOptions(sampleColumns())
	require.Len(t, opts, 2)
	assert.Equal(t, "full_name-filter", opts[0].ID)
	assert.Equal(t, "full_name", opts[0].Value)
	assert.False(t, opts[0].IsMulti)
	assert.True(t, opts[1].IsMulti)
	assert.Len(t, opts[1].Options, 2)
}

func TestCapabilities(t *testing.T) {
	defs := sampleColumns()
	assert.False(t, CanHide(defs[4]))
	assert.True(t, CanHide(defs[3]))
	assert.True(t, CanSort(defs[1]))
	assert.Contains(t, Sortable(defs), "full_name")
	assert.NotContains(t, Filterable(defs), "phone")
}

func TestApplyFacets(t *testing.T) {
	defs := ApplyFacets(sampleColumns(), models.Facets{
		"grade": {{Value: "10", Count: 4}, {Value: "12", Count: 1}, {Value: "11", Count: 7}},
	})
	grade, ok := Find(defs, "grade")
	require.True(t, ok)
	require.Len(t, grade.Options, 3)
	assert.Equal(t, 4, grade.Options[0].Count)
	assert.Equal(t, 7, grade.Options[1].Count)
	assert.Equal(t, "12", grade.Options[2].Value)

	original := sampleColumns()
	assert.Equal(t, 0, original[2].Options[0].Count)
}
