package models

import "time"

// Student represents a learner row in the student table.
type Student struct {
	ID        string    `db:"id" json:"id"`
	NIS       string    `db:"nis" json:"nis"`
	FullName  string    `db:"full_name" json:"full_name"`
	Gender    string    `db:"gender" json:"gender"`
	Grade     string    `db:"grade" json:"grade"`
	ClassName *string   `db:"class_name" json:"class_name,omitempty"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	Phone     string    `db:"phone" json:"phone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentRowID keys student rows by their NIS so selection survives refetches.
func StudentRowID(s Student) string {
	return s.NIS
}
