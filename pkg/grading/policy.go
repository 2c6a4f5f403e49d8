package grading

import "math"

// Policy bundles the tables a school grades with.
type Policy struct {
	// Grades maps a subject total (class + exam, 0-100) to a letter grade.
	Grades Table
	// Remarks maps the same total to a coarser textual remark.
	Remarks Table
	// Course maps an assignment percentage to a course letter.
	Course Table
}

// DefaultPolicy is used when no policy file is configured.
func DefaultPolicy() Policy {
	return Policy{
		Grades: MustTable(
			Band{Lower: 90, Upper: 100, Label: "A1"},
			Band{Lower: 80, Upper: 89.99, Label: "B2"},
			Band{Lower: 70, Upper: 79.99, Label: "B3"},
			Band{Lower: 60, Upper: 69.99, Label: "C4"},
			Band{Lower: 55, Upper: 59.99, Label: "C5"},
			Band{Lower: 50, Upper: 54.99, Label: "C6"},
			Band{Lower: 45, Upper: 49.99, Label: "D7"},
			Band{Lower: 40, Upper: 44.99, Label: "E8"},
			Band{Lower: 0, Upper: 39.99, Label: "F9"},
		),
		Remarks: MustTable(
			Band{Lower: 80, Upper: 100, Label: "Excellent"},
			Band{Lower: 70, Upper: 79.99, Label: "Very Good"},
			Band{Lower: 60, Upper: 69.99, Label: "Good"},
			Band{Lower: 50, Upper: 59.99, Label: "Credit"},
			Band{Lower: 40, Upper: 49.99, Label: "Pass"},
			Band{Lower: 0, Upper: 39.99, Label: "Fail"},
		),
		Course: MustTable(
			Band{Lower: 90, Upper: 100, Label: "A"},
			Band{Lower: 80, Upper: 89.99, Label: "B"},
			Band{Lower: 70, Upper: 79.99, Label: "C"},
			Band{Lower: 60, Upper: 69.99, Label: "D"},
			Band{Lower: 0, Upper: 59.99, Label: "F"},
		),
	}
}

// LetterGrade returns the report letter grade for a subject total.
func (p Policy) LetterGrade(total float64) string {
	return p.Grades.Grade(total)
}

// Remark returns the textual remark for a subject total.
func (p Policy) Remark(total float64) string {
	return p.Remarks.Grade(total)
}

// CourseLetter returns the course letter for a percentage.
func (p Policy) CourseLetter(percentage float64) string {
	return p.Course.Grade(percentage)
}

// SubjectTotal adds class and exam scores. Missing components (NaN) count as zero
// so a half-entered row still grades, at worst, to the lowest band.
func SubjectTotal(classScore, examScore float64) float64 {
	total := 0.0
	if !math.IsNaN(classScore) && !math.IsInf(classScore, 0) {
		total += classScore
	}
	if !math.IsNaN(examScore) && !math.IsInf(examScore, 0) {
		total += examScore
	}
	return Round(total)
}
