package models

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentStatus represents the approval lifecycle of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusPending  EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected EnrollmentStatus = "REJECTED"
)

// SubjectStatus tracks a single subject registration.
type SubjectStatus string

const (
	SubjectStatusEnrolled   SubjectStatus = "ENROLLED"
	SubjectStatusDropped    SubjectStatus = "DROPPED"
	SubjectStatusIncomplete SubjectStatus = "INCOMPLETE"
	SubjectStatusCompleted  SubjectStatus = "COMPLETED"
)

var subjectTransitions = map[SubjectStatus][]SubjectStatus{
	SubjectStatusEnrolled:   {SubjectStatusDropped, SubjectStatusIncomplete, SubjectStatusCompleted},
	SubjectStatusIncomplete: {SubjectStatusCompleted, SubjectStatusDropped},
}

// Terminal reports whether no further transition is possible.
func (s SubjectStatus) Terminal() bool {
	return len(subjectTransitions[s]) == 0
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s SubjectStatus) CanTransitionTo(next SubjectStatus) bool {
	for _, candidate := range subjectTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ScheduleSlot is one meeting of a section. Times are 24h "HH:MM".
type ScheduleSlot struct {
	Day       string `json:"day" validate:"required,oneof=MON TUE WED THU FRI SAT SUN"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Room      string `json:"room,omitempty"`
}

// GradeComponents holds the raw percentages a final grade is derived from.
type GradeComponents struct {
	Attendance  float64 `json:"attendance" validate:"gte=0,lte=100"`
	Quizzes     float64 `json:"quizzes" validate:"gte=0,lte=100"`
	Assignments float64 `json:"assignments" validate:"gte=0,lte=100"`
	Projects    float64 `json:"projects" validate:"gte=0,lte=100"`
	Midterm     float64 `json:"midterm" validate:"gte=0,lte=100"`
	Finals      float64 `json:"finals" validate:"gte=0,lte=100"`
}

// SubjectRegistration is one subject taken within an enrollment.
type SubjectRegistration struct {
	SubjectID   string          `json:"subject_id"`
	SubjectCode string          `json:"subject_code"`
	Units       int             `json:"units"`
	Section     string          `json:"section"`
	TeacherID   string          `json:"teacher_id,omitempty"`
	Schedule    []ScheduleSlot  `json:"schedule"`
	Grades      GradeComponents `json:"grades"`
	FinalGrade  float64         `json:"final_grade"`
	Status      SubjectStatus   `json:"status"`
}

// SubjectRegistrations is stored as a JSONB array.
type SubjectRegistrations []SubjectRegistration

// Value implements driver.Valuer.
func (s SubjectRegistrations) Value() (driver.Value, error) {
	if s == nil {
		return jsonValue([]SubjectRegistration{})
	}
	return jsonValue([]SubjectRegistration(s))
}

// Scan implements sql.Scanner.
func (s *SubjectRegistrations) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// EnrollmentRecord aggregates a student's registrations for one term together
// with a lightweight fee ledger. TotalFees and Balance are derived fields.
type EnrollmentRecord struct {
	ID              string               `db:"id" json:"id"`
	StudentID       string               `db:"student_id" json:"student_id"`
	AcademicYear    string               `db:"academic_year" json:"academic_year"`
	Semester        Semester             `db:"semester" json:"semester"`
	YearLevel       int                  `db:"year_level" json:"year_level"`
	Subjects        SubjectRegistrations `db:"subjects" json:"subjects"`
	Status          EnrollmentStatus     `db:"status" json:"status"`
	ApprovedBy      *string              `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time           `db:"approved_at" json:"approved_at,omitempty"`
	Remarks         string               `db:"remarks" json:"remarks,omitempty"`
	TuitionFee      decimal.Decimal      `db:"tuition_fee" json:"tuition_fee"`
	MiscFees        decimal.Decimal      `db:"misc_fees" json:"misc_fees"`
	LabFees         decimal.Decimal      `db:"lab_fees" json:"lab_fees"`
	TotalFees       decimal.Decimal      `db:"total_fees" json:"total_fees"`
	Discount        decimal.Decimal      `db:"discount" json:"discount"`
	ScholarshipType string               `db:"scholarship_type" json:"scholarship_type"`
	Payments        Payments             `db:"payments" json:"payments"`
	Balance         decimal.Decimal      `db:"balance" json:"balance"`
	Version         int                  `db:"version" json:"version"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at" json:"updated_at"`
}

// SubjectIndex returns the position of subjectID within the registrations.
func (r EnrollmentRecord) SubjectIndex(subjectID string) (int, bool) {
	for i, subject := range r.Subjects {
		if subject.SubjectID == subjectID {
			return i, true
		}
	}
	return -1, false
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID    string
	AcademicYear string
	Semester     Semester
	Status       EnrollmentStatus
	Page         int
	PageSize     int
}
