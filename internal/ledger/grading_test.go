package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

func TestFinalGradeUsesWeights(t *testing.T) {
	policy := DefaultGradingPolicy()
	require.NoError(t, policy.Validate())

	grade := policy.FinalGrade(models.GradeComponents{
		Attendance:  100,
		Quizzes:     88,
		Assignments: 92,
		Projects:    85,
		Midterm:     79,
		Finals:      83.5,
	})
	// 10 + 13.2 + 13.8 + 8.5 + 15.8 + 25.05
	assert.Equal(t, 86.35, grade)
}

func TestValidateRejectsWeightsNotTotallingHundred(t *testing.T) {
	policy := DefaultGradingPolicy()
	policy.Weights.Finals = 25
	assert.ErrorIs(t, policy.Validate(), ErrInvalidWeights)
}

func TestGradePointBands(t *testing.T) {
	policy := DefaultGradingPolicy()
	cases := map[float64]float64{
		100:   4.0,
		95:    4.0,
		94.99: 3.75,
		90:    3.75,
		85:    3.5,
		80:    3.0,
		75:    2.5,
		74.99: 0,
		0:     0,
	}
	for grade, expected := range cases {
		assert.Equal(t, expected, policy.GradePoint(grade), "grade %v", grade)
	}
}

func TestGPAWeightsCompletedSubjectsByUnits(t *testing.T) {
	policy := DefaultGradingPolicy()
	subjects := []models.SubjectRegistration{
		{SubjectCode: "IT101", Units: 3, FinalGrade: 96, Status: models.SubjectStatusCompleted},
		{SubjectCode: "IT102", Units: 2, FinalGrade: 81, Status: models.SubjectStatusCompleted},
		{SubjectCode: "GE1", Units: 1, FinalGrade: 70, Status: models.SubjectStatusCompleted},
		{SubjectCode: "PE1", Units: 2, FinalGrade: 99, Status: models.SubjectStatusEnrolled},
		{SubjectCode: "NSTP", Units: 3, FinalGrade: 99, Status: models.SubjectStatusDropped},
	}
	// (4*3 + 3*2 + 0*1) / 6 = 3.0
	assert.Equal(t, 3.0, policy.GPA(subjects))

	subjects[2].FinalGrade = 91
	// (12 + 6 + 3.75) / 6 = 3.625
	assert.Equal(t, 3.63, policy.GPA(subjects))
}

func TestGPAZeroWithoutUnits(t *testing.T) {
	policy := DefaultGradingPolicy()
	assert.Equal(t, 0.0, policy.GPA(nil))
	assert.Equal(t, 0.0, policy.GPA([]models.SubjectRegistration{{Units: 3, FinalGrade: 99, Status: models.SubjectStatusEnrolled}}))
}

func TestMissingPrerequisitesIsConjunctive(t *testing.T) {
	policy := DefaultGradingPolicy()
	history := []models.EnrollmentRecord{
		{
			Status: models.EnrollmentStatusApproved,
			Subjects: models.SubjectRegistrations{
				{SubjectID: "s-101", SubjectCode: "IT101", FinalGrade: 80},
				{SubjectID: "s-102", SubjectCode: "IT102", FinalGrade: 74.5},
			},
		},
		{
			Status: models.EnrollmentStatusPending,
			Subjects: models.SubjectRegistrations{
				{SubjectID: "s-103", SubjectCode: "IT103", FinalGrade: 99},
			},
		},
	}

	assert.Empty(t, policy.MissingPrerequisites([]string{"s-101"}, history))
	assert.Empty(t, policy.MissingPrerequisites([]string{"IT101"}, history))
	assert.Equal(t, []string{"s-102"}, policy.MissingPrerequisites([]string{"s-101", "s-102"}, history))
	assert.Equal(t, []string{"IT103"}, policy.MissingPrerequisites([]string{"IT103"}, history))
	assert.Equal(t, []string{"IT102"}, policy.WithPassingMark(74).MissingPrerequisites([]string{"IT102"}, nil))
	assert.Empty(t, policy.WithPassingMark(74).MissingPrerequisites([]string{"IT102"}, history))
}

func TestRecomputeEnrollmentDerivesGrades(t *testing.T) {
	record := models.EnrollmentRecord{
		TuitionFee: dec("1000"),
		Subjects: models.SubjectRegistrations{
			{SubjectID: "s-1", Grades: models.GradeComponents{Attendance: 100, Quizzes: 100, Assignments: 100, Projects: 100, Midterm: 100, Finals: 100}},
		},
	}
	out := RecomputeEnrollment(record, DefaultGradingPolicy())

	assert.Equal(t, 100.0, out.Subjects[0].FinalGrade)
	assert.Equal(t, 0.0, record.Subjects[0].FinalGrade)
	assertDecimal(t, "1000", out.Balance)
}

func TestCheckScheduleConflicts(t *testing.T) {
	subjects := []models.SubjectRegistration{
		{SubjectID: "a", SubjectCode: "IT101", Schedule: []models.ScheduleSlot{{Day: "MON", StartTime: "08:00", EndTime: "09:30"}}},
		{SubjectID: "b", SubjectCode: "IT102", Schedule: []models.ScheduleSlot{{Day: "MON", StartTime: "09:30", EndTime: "11:00"}}},
		{SubjectID: "c", SubjectCode: "IT103", Schedule: []models.ScheduleSlot{{Day: "TUE", StartTime: "08:00", EndTime: "09:30"}}},
	}
	require.NoError(t, CheckScheduleConflicts(subjects))

	clash := append(subjects, models.SubjectRegistration{
		SubjectID: "d", SubjectCode: "IT104",
		Schedule: []models.ScheduleSlot{{Day: "MON", StartTime: "09:00", EndTime: "10:00"}},
	})
	err := CheckScheduleConflicts(clash)
	assert.True(t, errors.Is(err, ErrScheduleConflict))

	clash[3].Status = models.SubjectStatusDropped
	assert.NoError(t, CheckScheduleConflicts(clash))

	bad := []models.SubjectRegistration{{SubjectID: "x", Schedule: []models.ScheduleSlot{{Day: "MON", StartTime: "10:00", EndTime: "09:00"}}}}
	assert.ErrorIs(t, CheckScheduleConflicts(bad), ErrInvalidSlot)

	unparsable := []models.SubjectRegistration{{SubjectID: "y", Schedule: []models.ScheduleSlot{{Day: "MON", StartTime: "8am", EndTime: "09:00"}}}}
	assert.ErrorIs(t, CheckScheduleConflicts(unparsable), ErrInvalidSlot)
}
