package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// TeacherSchema maps the teacher table columns to SQL. Teachers without a
// NIP are keyed by email.
var TeacherSchema = TableSchema{
	Table:        "teachers",
	From:         "teachers t",
	Select:       "t.id, t.nip, t.email, t.full_name, t.phone, t.expertise, t.active, t.created_at, t.updated_at",
	Key:          "COALESCE(NULLIF(nip, ''), email)",
	DefaultOrder: "t.created_at DESC, t.id",
	Columns: map[string]TableColumn{
		"nip":       {Expr: "t.nip"},
		"full_name": {Expr: "t.full_name"},
		"email":     {Expr: "t.email"},
		"expertise": {Expr: "t.expertise", Facet: true},
		"phone":     {Expr: "t.phone"},
		"active":    {Expr: "t.active", Kind: KindBool, Facet: true},
	},
}

// TeacherRepository reads the teacher table.
type TeacherRepository = RowRepository[models.Teacher]

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return NewRowRepository[models.Teacher](db, TeacherSchema)
}
