package resources

import (
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// TeacherColumns is the teacher table's column catalogue.
func TeacherColumns() []table.Column[models.Teacher] {
	return []table.Column[models.Teacher]{
		{ColumnDef: selectColumn},
		{
			ColumnDef: models.ColumnDef{ID: "nip", Label: "NIP", Variant: models.VariantText, EnableSorting: true, EnableColumnFilter: true},
			Accessor:  func(t models.Teacher) string { return pointerOr(t.NIP, "-") },
		},
		{
			ColumnDef: models.ColumnDef{ID: "full_name", Label: "Name", Variant: models.VariantText, Placeholder: "Search names...", EnableSorting: true, EnableHiding: true, EnableColumnFilter: true},
			Accessor:  func(t models.Teacher) string { return t.FullName },
		},
		{
			ColumnDef: models.ColumnDef{ID: "email", Label: "Email", Variant: models.VariantText, EnableSorting: true, EnableHiding: true, EnableColumnFilter: true},
			Accessor:  func(t models.Teacher) string { return t.Email },
		},
		{
			ColumnDef: models.ColumnDef{ID: "expertise", Label: "Expertise", Variant: models.VariantMultiSelect, EnableHiding: true, EnableColumnFilter: true},
			Accessor:  func(t models.Teacher) string { return pointerOr(t.Expertise, "") },
		},
		{
			ColumnDef: models.ColumnDef{ID: "phone", Label: "Phone", Variant: models.VariantText, EnableHiding: true},
			Accessor:  func(t models.Teacher) string { return pointerOr(t.Phone, "") },
		},
		{
			ColumnDef: models.ColumnDef{ID: "active", Label: "Status", Variant: models.VariantSelect, EnableHiding: true, EnableColumnFilter: true, Options: activeOptions},
			Accessor:  func(t models.Teacher) string { return formatBool(t.Active) },
		},
		{ColumnDef: actionsColumn},
	}
}

// TeacherHidden lists columns hidden until the user shows them.
var TeacherHidden = []string{"phone"}
