// Package identifier formats, parses and validates student and employee IDs.
//
// Student IDs look like m23-1470-578: the letter m, the two digit enrollment
// year, a four digit block made of the department code and campus code, and a
// three digit sequence. Employee IDs look like T1425-1001: T, department code,
// two digit hiring year and a four digit sequence.
package identifier

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sequence bounds.
const (
	StudentSequenceStart  = 100
	StudentSequenceMax    = 999
	EmployeeSequenceStart = 1001
	EmployeeSequenceMax   = 9999
)

// Sequence scope kinds.
const (
	KindStudent  = "student"
	KindEmployee = "employee"
)

var (
	ErrInvalidStudentID       = errors.New("invalid student id")
	ErrInvalidEmployeeID      = errors.New("invalid employee id")
	ErrInvalidCampusCode      = errors.New("campus code must be two digits")
	ErrEmailMismatch          = errors.New("email does not match student id")
	ErrEnrollmentYearMismatch = errors.New("enrollment year does not match student id")
	ErrSequenceExhausted      = errors.New("identifier sequence exhausted")
)

var (
	studentIDPattern  = regexp.MustCompile(`^m(\d{2})-(\d{2})(\d{2})-(\d{3})$`)
	employeeIDPattern = regexp.MustCompile(`^T(\d{2})(\d{2})-(\d{4})$`)
	campusPattern     = regexp.MustCompile(`^\d{2}$`)
)

// StudentID is the decoded form of a student identifier.
type StudentID struct {
	Year       int
	Department int
	Campus     string
	Sequence   int
}

// String renders the identifier in canonical form.
func (id StudentID) String() string {
	return fmt.Sprintf("m%02d-%02d%s-%03d", id.Year, id.Department, id.Campus, id.Sequence)
}

// EmployeeID is the decoded form of an employee identifier.
type EmployeeID struct {
	Department int
	Year       int
	Sequence   int
}

// String renders the identifier in canonical form.
func (id EmployeeID) String() string {
	return fmt.Sprintf("T%02d%02d-%04d", id.Department, id.Year, id.Sequence)
}

// YearSuffix returns the two digit year of t.
func YearSuffix(t time.Time) int {
	return t.Year() % 100
}

// ValidateCampusCode checks the configured campus segment.
func ValidateCampusCode(campus string) error {
	if !campusPattern.MatchString(campus) {
		return ErrInvalidCampusCode
	}
	return nil
}

// StudentPrefix is the part of a student ID shared by one department+year
// cohort, e.g. "m25-1470-".
func StudentPrefix(year, department int, campus string) string {
	return fmt.Sprintf("m%02d-%02d%s-", year%100, department, campus)
}

// EmployeePrefix is the part of an employee ID shared by one department+year
// cohort, e.g. "T1425-".
func EmployeePrefix(department, year int) string {
	return fmt.Sprintf("T%02d%02d-", department, year%100)
}

// StudentScope names the sequence counter for a student cohort.
func StudentScope(year, department int) string {
	return fmt.Sprintf("%s:%02d:%02d", KindStudent, year%100, department)
}

// EmployeeScope names the sequence counter for an employee cohort.
func EmployeeScope(year, department int) string {
	return fmt.Sprintf("%s:%02d:%02d", KindEmployee, year%100, department)
}

// FormatStudentID assembles a student ID, enforcing sequence bounds.
func FormatStudentID(year, department int, campus string, sequence int) (string, error) {
	if err := ValidateCampusCode(campus); err != nil {
		return "", err
	}
	if sequence > StudentSequenceMax {
		return "", ErrSequenceExhausted
	}
	if sequence < StudentSequenceStart {
		return "", fmt.Errorf("%w: sequence %d below %d", ErrInvalidStudentID, sequence, StudentSequenceStart)
	}
	return StudentID{Year: year % 100, Department: department, Campus: campus, Sequence: sequence}.String(), nil
}

// ParseStudentID decodes a student ID.
func ParseStudentID(raw string) (StudentID, error) {
	match := studentIDPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return StudentID{}, ErrInvalidStudentID
	}
	year, _ := strconv.Atoi(match[1])
	department, _ := strconv.Atoi(match[2])
	sequence, _ := strconv.Atoi(match[4])
	return StudentID{Year: year, Department: department, Campus: match[3], Sequence: sequence}, nil
}

// ValidateStudentID checks the format of a student ID.
func ValidateStudentID(raw string) error {
	_, err := ParseStudentID(raw)
	return err
}

// CanonicalStudentID returns the stored form of a student ID, so "M25-1470-001"
// resolves to "m25-1470-001". Input that is not a student ID is returned
// trimmed but otherwise unchanged.
func CanonicalStudentID(raw string) string {
	raw = strings.TrimSpace(raw)
	if lower := strings.ToLower(raw); studentIDPattern.MatchString(lower) {
		return lower
	}
	return raw
}

// FormatEmployeeID assembles an employee ID, enforcing sequence bounds.
func FormatEmployeeID(department, year, sequence int) (string, error) {
	if sequence > EmployeeSequenceMax {
		return "", ErrSequenceExhausted
	}
	if sequence < EmployeeSequenceStart {
		return "", fmt.Errorf("%w: sequence %d below %d", ErrInvalidEmployeeID, sequence, EmployeeSequenceStart)
	}
	return EmployeeID{Department: department, Year: year % 100, Sequence: sequence}.String(), nil
}

// ParseEmployeeID decodes an employee ID.
func ParseEmployeeID(raw string) (EmployeeID, error) {
	match := employeeIDPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return EmployeeID{}, ErrInvalidEmployeeID
	}
	department, _ := strconv.Atoi(match[1])
	year, _ := strconv.Atoi(match[2])
	sequence, _ := strconv.Atoi(match[3])
	return EmployeeID{Department: department, Year: year, Sequence: sequence}, nil
}

// StudentEmail derives the institutional email of a student.
func StudentEmail(studentID, domain string) string {
	return studentID + "@" + domain
}

// ValidateStudentEmail rejects any email that differs from the derived one.
// The comparison is exact; no normalisation is attempted.
func ValidateStudentEmail(studentID, email, domain string) error {
	if email != StudentEmail(studentID, domain) {
		return ErrEmailMismatch
	}
	return nil
}

// ValidateEnrollmentYear checks that the four digit enrollment year matches
// the YY segment of the student ID.
func ValidateEnrollmentYear(studentID string, enrollmentYear int) error {
	id, err := ParseStudentID(studentID)
	if err != nil {
		return err
	}
	if enrollmentYear%100 != id.Year {
		return ErrEnrollmentYearMismatch
	}
	return nil
}

// NextSequence returns the sequence following the last issued ID, never below
// start. An empty or unparsable last ID yields start.
func NextSequence(last string, start int, parse func(string) (int, error)) int {
	if last == "" {
		return start
	}
	seq, err := parse(last)
	if err != nil || seq+1 < start {
		return start
	}
	return seq + 1
}

// StudentSequence extracts the trailing sequence of a student ID.
func StudentSequence(raw string) (int, error) {
	id, err := ParseStudentID(raw)
	if err != nil {
		return 0, err
	}
	return id.Sequence, nil
}

// EmployeeSequence extracts the trailing sequence of an employee ID.
func EmployeeSequence(raw string) (int, error) {
	id, err := ParseEmployeeID(raw)
	if err != nil {
		return 0, err
	}
	return id.Sequence, nil
}
