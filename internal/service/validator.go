package service

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/uphsl-enrollment-api/internal/identifier"
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

var academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// NewValidator returns a validator with the institution specific tags
// registered. Field errors are reported under their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("student_id", func(fl validator.FieldLevel) bool {
		return identifier.ValidateStudentID(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("employee_id", func(fl validator.FieldLevel) bool {
		_, err := identifier.ParseEmployeeID(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("semester", func(fl validator.FieldLevel) bool {
		return models.Semester(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("academic_year", func(fl validator.FieldLevel) bool {
		return validAcademicYear(fl.Field().String())
	})
	return v
}

// validAcademicYear accepts "2024-2025" style spans of consecutive years.
func validAcademicYear(raw string) bool {
	match := academicYearPattern.FindStringSubmatch(raw)
	if match == nil {
		return false
	}
	start, _ := strconv.Atoi(match[1])
	end, _ := strconv.Atoi(match[2])
	return end == start+1
}
