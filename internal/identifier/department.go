package identifier

import "strings"

// Department is a program code from the closed set the registrar recognises.
type Department string

const (
	DepartmentBSIT Department = "BSIT"
	DepartmentBSCS Department = "BSCS"
	DepartmentBSBA Department = "BSBA"
	DepartmentBSN  Department = "BSN"
	DepartmentBSED Department = "BSED"
	DepartmentBSCE Department = "BSCE"
)

// DefaultDepartmentCode is used for departments outside the known set.
const DefaultDepartmentCode = 10

var departmentCodes = map[Department]int{
	DepartmentBSIT: 14,
	DepartmentBSCS: 15,
	DepartmentBSBA: 16,
	DepartmentBSN:  17,
	DepartmentBSED: 18,
	DepartmentBSCE: 19,
}

// NormalizeDepartment upper-cases and trims a department name.
func NormalizeDepartment(raw string) Department {
	return Department(strings.ToUpper(strings.TrimSpace(raw)))
}

// Known reports whether d belongs to the enumerated set.
func (d Department) Known() bool {
	_, ok := departmentCodes[d]
	return ok
}

// Code returns the two digit department code, falling back to
// DefaultDepartmentCode for unknown departments.
func (d Department) Code() int {
	if code, ok := departmentCodes[d]; ok {
		return code
	}
	return DefaultDepartmentCode
}

// DepartmentCode resolves a raw department string to its numeric code.
func DepartmentCode(raw string) int {
	return NormalizeDepartment(raw).Code()
}
