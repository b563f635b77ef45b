package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// StudentSchema maps the student table columns to SQL.
var StudentSchema = TableSchema{
	Table: "students",
	From:  "students s LEFT JOIN classes c ON c.id = s.class_id",
	Select: `s.id, s.nis, s.full_name, s.gender, s.grade, c.name AS class_name, s.birth_date, s.phone, s.active,
        s.created_at, s.updated_at`,
	Key:          "nis",
	DefaultOrder: "s.created_at DESC, s.id",
	Columns: map[string]TableColumn{
		"nis":        {Expr: "s.nis"},
		"full_name":  {Expr: "s.full_name"},
		"gender":     {Expr: "s.gender", Facet: true},
		"grade":      {Expr: "s.grade", Facet: true},
		"class_name": {Expr: "c.name"},
		"birth_date": {Expr: "s.birth_date", Kind: KindDate},
		"phone":      {Expr: "s.phone"},
		"active":     {Expr: "s.active", Kind: KindBool, Facet: true},
	},
}

// StudentRepository reads the student table.
type StudentRepository = RowRepository[models.Student]

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return NewRowRepository[models.Student](db, StudentSchema)
}
