package models

import (
	"time"

	"github.com/lib/pq"
)

// Subject represents a course offering with its unit load and prerequisites.
type Subject struct {
	ID            string         `db:"id" json:"id"`
	Code          string         `db:"code" json:"code"`
	Name          string         `db:"name" json:"name"`
	Units         int            `db:"units" json:"units"`
	LabUnits      int            `db:"lab_units" json:"lab_units"`
	Prerequisites pq.StringArray `db:"prerequisites" json:"prerequisites"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// TotalUnits returns lecture plus laboratory units.
func (s Subject) TotalUnits() int {
	return s.Units + s.LabUnits
}
