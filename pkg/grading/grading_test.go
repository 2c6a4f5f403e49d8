package grading

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLetterGradeBoundaries(t *testing.T) {
	p := DefaultPolicy()
	cases := map[float64]string{
		100:   "A1",
		90:    "A1",
		89.99: "B2",
		89.5:  "B2",
		80:    "B2",
		79:    "B3",
		60:    "C4",
		55:    "C5",
		54.99: "C6",
		50:    "C6",
		45:    "D7",
		40:    "E8",
		39.99: "F9",
		0:     "F9",
	}
	for score, want := range cases {
		assert.Equal(t, want, p.LetterGrade(score), "score %v", score)
	}
}

func TestGradeInvalidScoresTakeLowestBand(t *testing.T) {
	p := DefaultPolicy()
	for _, score := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1), ParseScore("abc")} {
		assert.Equal(t, "F9", p.LetterGrade(score))
		assert.Equal(t, "Fail", p.Remark(score))
	}
	assert.Equal(t, "A1", p.LetterGrade(150))
}

func TestGradeIsMonotonic(t *testing.T) {
	p := DefaultPolicy()
	prev := p.Grades.Rank(p.LetterGrade(0))
	for s := 0.0; s <= 100; s += 0.25 {
		rank := p.Grades.Rank(p.LetterGrade(s))
		require.NotEqual(t, -1, rank)
		assert.LessOrEqual(t, rank, prev, "score %v", s)
		prev = rank
	}
}

func TestRemarksAndCourseLetters(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, "Excellent", p.Remark(85))
	assert.Equal(t, "Very Good", p.Remark(70))
	assert.Equal(t, "Good", p.Remark(65))
	assert.Equal(t, "Credit", p.Remark(50))
	assert.Equal(t, "Pass", p.Remark(40))
	assert.Equal(t, "Fail", p.Remark(39))

	assert.Equal(t, "A", p.CourseLetter(90))
	assert.Equal(t, "B", p.CourseLetter(85))
	assert.Equal(t, "D", p.CourseLetter(60))
	assert.Equal(t, "F", p.CourseLetter(59.99))
}

func TestNewTableRejectsOverlapAndBlankLabels(t *testing.T) {
	_, err := NewTable([]Band{{Lower: 50, Upper: 100, Label: "P"}, {Lower: 0, Upper: 60, Label: "F"}})
	assert.Error(t, err)

	_, err = NewTable([]Band{{Lower: 0, Upper: 100, Label: " "}})
	assert.Error(t, err)

	_, err = NewTable(nil)
	assert.Error(t, err)
}

func TestPointsAverageAndMeanOfPercentagesDiffer(t *testing.T) {
	entries := []Entry{
		{Earned: 5, Possible: 10, Graded: true},
		{Earned: 90, Possible: 100, Graded: true},
		{Earned: 50, Possible: 100, Graded: false},
	}
	points := PointsAverage(entries)
	require.True(t, points.Valid)
	assert.Equal(t, 86.36, points.Value)
	assert.Equal(t, 2, points.Count)

	mean := MeanOfPercentages(entries)
	require.True(t, mean.Valid)
	assert.Equal(t, 70.0, mean.Value)
}

func TestAverageWithoutEntriesIsNotApplicable(t *testing.T) {
	res := PointsAverage([]Entry{{Earned: 1, Possible: 0, Graded: true}})
	assert.False(t, res.Valid)
	assert.Equal(t, "N/A", res.String())

	raw, err := json.Marshal(MeanOfPercentages(nil))
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestMeanSkipsNaN(t *testing.T) {
	res := Mean([]float64{80, math.NaN(), 70})
	assert.True(t, res.Valid)
	assert.Equal(t, 75.0, res.Value)
	assert.Equal(t, 33.33, Percentage(1, 3))
	assert.Equal(t, 0.0, Percentage(1, 0))
}

func TestSubjectTotal(t *testing.T) {
	assert.Equal(t, 72.5, SubjectTotal(30, 42.5))
	assert.Equal(t, 42.0, SubjectTotal(math.NaN(), 42))
}

func TestDecodePolicyOverridesOnlyGivenTables(t *testing.T) {
	doc := `
grades:
  - {lower: 70, upper: 100, label: "Distinction"}
  - {lower: 50, upper: 69.99, label: "Merit"}
  - {lower: 0, upper: 49.99, label: "Unclassified"}
`
	p, err := DecodePolicy(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Distinction", p.LetterGrade(75))
	assert.Equal(t, "Unclassified", p.LetterGrade(-5))
	assert.Equal(t, "Very Good", p.Remark(75))
}

func TestDecodePolicyInvalidTable(t *testing.T) {
	_, err := DecodePolicy(strings.NewReader("remarks:\n  - {lower: 10, upper: 5, label: x}\n"))
	assert.Error(t, err)
}

func TestLoadPolicyEmptyPathIsDefault(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, "A1", p.LetterGrade(95))
}

func TestAveragesAgreeOnEqualDenominators(t *testing.T) {
	single := []Entry{{Earned: 80, Possible: 100, Graded: true}}
	assert.Equal(t, 80.0, PointsAverage(single).Value)
	assert.Equal(t, 80.0, MeanOfPercentages(single).Value)

	pair := []Entry{
		{Earned: 90, Possible: 100, Graded: true},
		{Earned: 70, Possible: 100, Graded: true},
	}
	assert.Equal(t, 80.0, PointsAverage(pair).Value)
	assert.Equal(t, 80.0, MeanOfPercentages(pair).Value)

	empty := PointsAverage(nil)
	assert.False(t, empty.Valid)
	assert.Equal(t, 0.0, empty.Value)
}
