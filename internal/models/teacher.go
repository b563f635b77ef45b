package models

import "time"

// Teacher represents an instructor row in the teacher table.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	NIP       *string   `db:"nip" json:"nip,omitempty"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Expertise *string   `db:"expertise" json:"expertise,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherRowID keys teacher rows by NIP, falling back to email for staff without one.
func TeacherRowID(t Teacher) string {
	if t.NIP != nil && *t.NIP != "" {
		return *t.NIP
	}
	return t.Email
}
