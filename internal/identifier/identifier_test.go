package identifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentCodeFallsBackForUnknown(t *testing.T) {
	assert.Equal(t, 14, DepartmentCode("BSIT"))
	assert.Equal(t, 15, DepartmentCode(" bscs "))
	assert.Equal(t, 19, DepartmentCode("BSCE"))
	assert.Equal(t, DefaultDepartmentCode, DepartmentCode("BSARCH"))
	assert.False(t, NormalizeDepartment("AB").Known())
}

func TestFormatStudentID(t *testing.T) {
	id, err := FormatStudentID(2025, 14, "70", 100)
	require.NoError(t, err)
	assert.Equal(t, "m25-1470-100", id)

	id, err = FormatStudentID(23, 14, "70", 578)
	require.NoError(t, err)
	assert.Equal(t, "m23-1470-578", id)

	_, err = FormatStudentID(25, 14, "70", 1000)
	assert.ErrorIs(t, err, ErrSequenceExhausted)

	_, err = FormatStudentID(25, 14, "7", 100)
	assert.ErrorIs(t, err, ErrInvalidCampusCode)

	_, err = FormatStudentID(25, 14, "70", 99)
	assert.ErrorIs(t, err, ErrInvalidStudentID)
}

func TestParseStudentID(t *testing.T) {
	id, err := ParseStudentID("m23-1470-578")
	require.NoError(t, err)
	assert.Equal(t, StudentID{Year: 23, Department: 14, Campus: "70", Sequence: 578}, id)
	assert.Equal(t, "m23-1470-578", id.String())

	for _, raw := range []string{"", "M23-1470-578", "m23-147-578", "m23-1470-57", "m2a-1470-578", "m23-1470-5781"} {
		assert.ErrorIs(t, ValidateStudentID(raw), ErrInvalidStudentID, raw)
	}
}

func TestEmployeeIDRoundTrip(t *testing.T) {
	id, err := FormatEmployeeID(14, 2025, 1001)
	require.NoError(t, err)
	assert.Equal(t, "T1425-1001", id)

	parsed, err := ParseEmployeeID(id)
	require.NoError(t, err)
	assert.Equal(t, EmployeeID{Department: 14, Year: 25, Sequence: 1001}, parsed)

	_, err = FormatEmployeeID(14, 25, 10000)
	assert.ErrorIs(t, err, ErrSequenceExhausted)

	_, err = ParseEmployeeID("T14-1001")
	assert.ErrorIs(t, err, ErrInvalidEmployeeID)
}

func TestStudentEmail(t *testing.T) {
	domain := "manila.uphsl.edu.ph"
	assert.Equal(t, "m23-1470-578@manila.uphsl.edu.ph", StudentEmail("m23-1470-578", domain))
	assert.NoError(t, ValidateStudentEmail("m23-1470-578", "m23-1470-578@manila.uphsl.edu.ph", domain))
	assert.ErrorIs(t, ValidateStudentEmail("m23-1470-578", "m23-1470-579@manila.uphsl.edu.ph", domain), ErrEmailMismatch)
	assert.ErrorIs(t, ValidateStudentEmail("m23-1470-578", "M23-1470-578@manila.uphsl.edu.ph", domain), ErrEmailMismatch)
}

func TestValidateEnrollmentYear(t *testing.T) {
	assert.NoError(t, ValidateEnrollmentYear("m23-1470-578", 2023))
	assert.ErrorIs(t, ValidateEnrollmentYear("m23-1470-578", 2024), ErrEnrollmentYearMismatch)
	assert.ErrorIs(t, ValidateEnrollmentYear("bad", 2023), ErrInvalidStudentID)
}

func TestNextSequence(t *testing.T) {
	assert.Equal(t, StudentSequenceStart, NextSequence("", StudentSequenceStart, StudentSequence))
	assert.Equal(t, 579, NextSequence("m23-1470-578", StudentSequenceStart, StudentSequence))
	assert.Equal(t, StudentSequenceStart, NextSequence("garbage", StudentSequenceStart, StudentSequence))
	assert.Equal(t, 1002, NextSequence("T1425-1001", EmployeeSequenceStart, EmployeeSequence))
}

func TestPrefixesAndScopes(t *testing.T) {
	assert.Equal(t, "m25-1470-", StudentPrefix(2025, 14, "70"))
	assert.Equal(t, "T1425-", EmployeePrefix(14, 2025))
	assert.Equal(t, "student:25:14", StudentScope(2025, 14))
	assert.Equal(t, "employee:25:10", EmployeeScope(25, 10))
	assert.Equal(t, 26, YearSuffix(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCanonicalStudentID(t *testing.T) {
	assert.Equal(t, "m25-1470-100", CanonicalStudentID(" M25-1470-100 "))
	assert.Equal(t, "m25-1470-100", CanonicalStudentID("m25-1470-100"))
	assert.Equal(t, "row-1", CanonicalStudentID("row-1"))
	assert.Equal(t, "T1425-1005", CanonicalStudentID("T1425-1005"))
}
