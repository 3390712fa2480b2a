package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

// GradeWeights are percentage weights per component and must total 100.
type GradeWeights struct {
	Attendance  float64 `json:"attendance"`
	Quizzes     float64 `json:"quizzes"`
	Assignments float64 `json:"assignments"`
	Projects    float64 `json:"projects"`
	Midterm     float64 `json:"midterm"`
	Finals      float64 `json:"finals"`
}

func (w GradeWeights) total() float64 {
	return w.Attendance + w.Quizzes + w.Assignments + w.Projects + w.Midterm + w.Finals
}

// GradeBand maps a minimum final grade to grade points.
type GradeBand struct {
	MinGrade float64 `json:"min_grade"`
	Points   float64 `json:"points"`
}

// GradingPolicy is the institution specific grading configuration.
type GradingPolicy struct {
	Weights     GradeWeights
	Bands       []GradeBand
	PassingMark float64
}

// DefaultGradingPolicy returns the UPHSL weights and grade-point bands.
func DefaultGradingPolicy() GradingPolicy {
	return GradingPolicy{
		Weights: GradeWeights{
			Attendance:  10,
			Quizzes:     15,
			Assignments: 15,
			Projects:    10,
			Midterm:     20,
			Finals:      30,
		},
		Bands: []GradeBand{
			{MinGrade: 95, Points: 4.0},
			{MinGrade: 90, Points: 3.75},
			{MinGrade: 85, Points: 3.5},
			{MinGrade: 80, Points: 3.0},
			{MinGrade: 75, Points: 2.5},
		},
		PassingMark: 75,
	}
}

// WithPassingMark overrides the passing mark when mark is positive.
func (p GradingPolicy) WithPassingMark(mark float64) GradingPolicy {
	if mark > 0 {
		p.PassingMark = mark
	}
	return p
}

// Validate checks that the weights total 100.
func (p GradingPolicy) Validate() error {
	if !decimal.NewFromFloat(p.Weights.total()).Round(4).Equal(hundred) {
		return ErrInvalidWeights
	}
	return nil
}

// FinalGrade is the weighted sum of the components, rounded to 2 decimals.
func (p GradingPolicy) FinalGrade(g models.GradeComponents) float64 {
	w := p.Weights
	sum := decimal.Zero
	for _, part := range [][2]float64{
		{g.Attendance, w.Attendance},
		{g.Quizzes, w.Quizzes},
		{g.Assignments, w.Assignments},
		{g.Projects, w.Projects},
		{g.Midterm, w.Midterm},
		{g.Finals, w.Finals},
	} {
		sum = sum.Add(decimal.NewFromFloat(part[0]).Mul(decimal.NewFromFloat(part[1])))
	}
	return sum.Div(hundred).Round(2).InexactFloat64()
}

// GradePoint maps a final grade through the band table; grades below every
// band earn 0.
func (p GradingPolicy) GradePoint(grade float64) float64 {
	bands := append([]GradeBand(nil), p.Bands...)
	sort.Slice(bands, func(i, j int) bool { return bands[i].MinGrade > bands[j].MinGrade })
	for _, band := range bands {
		if grade >= band.MinGrade {
			return band.Points
		}
	}
	return 0
}

// Passed reports whether grade reaches the passing mark.
func (p GradingPolicy) Passed(grade float64) bool {
	return grade >= p.PassingMark
}

// GPA is the unit-weighted mean grade point of COMPLETED registrations,
// rounded to 2 decimals. It is 0 when no units are counted.
func (p GradingPolicy) GPA(subjects []models.SubjectRegistration) float64 {
	points := decimal.Zero
	units := 0
	for _, subject := range subjects {
		if subject.Status != models.SubjectStatusCompleted || subject.Units <= 0 {
			continue
		}
		gp := decimal.NewFromFloat(p.GradePoint(subject.FinalGrade))
		points = points.Add(gp.Mul(decimal.NewFromInt(int64(subject.Units))))
		units += subject.Units
	}
	if units == 0 {
		return 0
	}
	return points.Div(decimal.NewFromInt(int64(units))).Round(2).InexactFloat64()
}

// MissingPrerequisites returns the prerequisites not yet satisfied. A
// prerequisite is satisfied by an APPROVED enrollment holding a registration
// of that subject, matched by id or code, with a passing final grade. All
// prerequisites must be satisfied.
func (p GradingPolicy) MissingPrerequisites(prerequisites []string, history []models.EnrollmentRecord) []string {
	passed := make(map[string]struct{})
	for _, record := range history {
		if record.Status != models.EnrollmentStatusApproved {
			continue
		}
		for _, subject := range record.Subjects {
			if !p.Passed(subject.FinalGrade) {
				continue
			}
			passed[subject.SubjectID] = struct{}{}
			if subject.SubjectCode != "" {
				passed[subject.SubjectCode] = struct{}{}
			}
		}
	}

	var missing []string
	for _, prerequisite := range prerequisites {
		if _, ok := passed[prerequisite]; !ok {
			missing = append(missing, prerequisite)
		}
	}
	return missing
}
