package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-adp-datatable/internal/datatable/columns"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

func TestCatalogueVariantsHaveOperators(t *testing.T) {
	for _, name := range Names {
		for _, def := range Defs(name) {
			if !columns.CanFilter(def) {
				continue
			}
			assert.NotEmpty(t, models.OperatorsFor(def.Variant), "%s.%s", name, def.ID)
		}
	}
}

func TestStudentAccessors(t *testing.T) {
	class := "X IPA 1"
	s := models.Student{NIS: "1001", FullName: "Ana", Grade: "10", ClassName: &class, Active: true}
	cells := map[string]string{}
	for _, c := range StudentColumns() {
		cells[c.ID] = c.Cell(s)
	}
	assert.Equal(t, "1001", cells["nis"])
	assert.Equal(t, "X IPA 1", cells["class_name"])
	assert.Equal(t, "true", cells["active"])
	assert.Equal(t, "", cells["birth_date"])
	assert.Equal(t, "", cells["select"])
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(Students))
	assert.False(t, Known("grades"))
	assert.Nil(t, Defs("grades"))
}

func TestDefaultColumnsSkipHiddenAndMeta(t *testing.T) {
	cols := DefaultColumns(Students)
	assert.Contains(t, cols, "nis")
	assert.NotContains(t, cols, "phone")
	assert.NotContains(t, cols, "select")
	assert.NotContains(t, cols, "actions")
	assert.Nil(t, DefaultColumns("grades"))
}
