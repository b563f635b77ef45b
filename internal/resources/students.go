package resources

import (
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/table"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// StudentColumns is the student table's column catalogue.
func StudentColumns() []table.Column[models.Student] {
	return []table.Column[models.Student]{
		{ColumnDef: selectColumn},
		{
			ColumnDef: models.ColumnDef{ID: "nis", Label: "NIS", Variant: models.VariantText, Placeholder: "Search NIS...", EnableSorting: true, EnableColumnFilter: true},
			Accessor:  func(s models.Student) string { return s.NIS },
		},
		{
			ColumnDef: models.ColumnDef{ID: "full_name", Label: "Student name", Variant: models.VariantText, Placeholder: "Search names...", EnableSorting: true, EnableHiding: true, EnableColumnFilter: true},
			Accessor:  func(s models.Student) string { return s.FullName },
		},
		{
			ColumnDef: models.ColumnDef{ID: "gender", Label: "Gender", Variant: models.VariantSelect, EnableHiding: true, EnableColumnFilter: true,
				Options: []models.ColumnOption{{Label: "Male", Value: "M"}, {Label: "Female", Value: "F"}}},
			Accessor: func(s models.Student) string { return s.Gender },
		},
		{
			ColumnDef: models.ColumnDef{ID: "grade", Label: "Grade", Variant: models.VariantMultiSelect, EnableSorting: true, EnableHiding: true, EnableColumnFilter: true,
				Options: []models.ColumnOption{{Label: "10", Value: "10"}, {Label: "11", Value: "11"}, {Label: "12", Value: "12"}}},
			Accessor: func(s models.Student) string { return s.Grade },
		},
		{
			ColumnDef: models.ColumnDef{ID: "class_name", Label: "Class", Variant: models.VariantText, EnableSorting: true, EnableHiding: true, EnableColumnFilter: true},
			Accessor:  func(s models.Student) string { return pointerOr(s.ClassName, "-") },
		},
		{
			ColumnDef: models.ColumnDef{ID: "birth_date", Label: "Birth date", Variant: models.VariantDateRange, EnableSorting: true, EnableHiding: true, EnableColumnFilter: true},
			Accessor:  func(s models.Student) string { return formatDate(s.BirthDate) },
		},
		{
			ColumnDef: models.ColumnDef{ID: "phone", Label: "Phone", Variant: models.VariantText, EnableHiding: true},
			Accessor:  func(s models.Student) string { return s.Phone },
		},
		{
			ColumnDef: models.ColumnDef{ID: "active", Label: "Status", Variant: models.VariantSelect, EnableHiding: true, EnableColumnFilter: true, Options: activeOptions},
			Accessor:  func(s models.Student) string { return formatBool(s.Active) },
		},
		{ColumnDef: actionsColumn},
	}
}

// StudentHidden lists columns hidden until the user shows them.
var StudentHidden = []string{"phone"}
