package models

import "time"

// Student is the profile of a learner. StudentID is the institutional
// identifier (mYY-DDCC-NNN) and Email is always derived from it.
type Student struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	Email          string    `db:"email" json:"email"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Department     string    `db:"department" json:"department"`
	YearLevel      int       `db:"year_level" json:"year_level"`
	EnrollmentYear int       `db:"enrollment_year" json:"enrollment_year"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Department string
	YearLevel  int
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
