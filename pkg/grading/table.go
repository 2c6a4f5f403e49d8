// Package grading holds the single grading policy every score-to-grade call site uses.
package grading

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Band maps the inclusive score range [Lower, Upper] to a label.
type Band struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
	Label string  `yaml:"label" json:"label"`
}

// Table is an ordered set of non-overlapping bands, highest band first.
type Table struct {
	bands []Band
}

// NewTable validates bands and returns them ordered from the highest lower bound down.
func NewTable(bands []Band) (Table, error) {
	if len(bands) == 0 {
		return Table{}, fmt.Errorf("grade table requires at least one band")
	}
	ordered := make([]Band, len(bands))
	copy(ordered, bands)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Lower > ordered[j].Lower })

	seen := make(map[string]bool, len(ordered))
	for i, band := range ordered {
		label := strings.TrimSpace(band.Label)
		if label == "" {
			return Table{}, fmt.Errorf("band %d: label required", i)
		}
		if seen[label] {
			return Table{}, fmt.Errorf("band %q: duplicate label", label)
		}
		seen[label] = true
		if math.IsNaN(band.Lower) || math.IsNaN(band.Upper) || band.Lower > band.Upper {
			return Table{}, fmt.Errorf("band %q: invalid range %v-%v", label, band.Lower, band.Upper)
		}
		if i > 0 && band.Upper >= ordered[i-1].Lower {
			return Table{}, fmt.Errorf("band %q overlaps band %q", label, ordered[i-1].Label)
		}
		ordered[i].Label = label
	}
	return Table{bands: ordered}, nil
}

// MustTable is NewTable for package level literals.
func MustTable(bands ...Band) Table {
	t, err := NewTable(bands)
	if err != nil {
		panic(err)
	}
	return t
}

// Grade returns the label for score. A score falling in the gap between two
// bands takes the lower band, a score above the top band takes the top label,
// and NaN, infinities or anything below the lowest band take the lowest label.
func (t Table) Grade(score float64) string {
	if len(t.bands) == 0 {
		return ""
	}
	lowest := t.bands[len(t.bands)-1]
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return lowest.Label
	}
	for _, band := range t.bands {
		if score >= band.Lower {
			return band.Label
		}
	}
	return lowest.Label
}

// Rank returns the position of label in the table, 0 being the best grade, or -1 when unknown.
func (t Table) Rank(label string) int {
	for i, band := range t.bands {
		if band.Label == label {
			return i
		}
	}
	return -1
}

// Lowest returns the label assigned to missing or invalid scores.
func (t Table) Lowest() string {
	if len(t.bands) == 0 {
		return ""
	}
	return t.bands[len(t.bands)-1].Label
}

// Bands returns a copy of the ordered bands.
func (t Table) Bands() []Band {
	out := make([]Band, len(t.bands))
	copy(out, t.bands)
	return out
}

// ParseScore converts user input to a score; anything unparsable becomes NaN.
func ParseScore(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
