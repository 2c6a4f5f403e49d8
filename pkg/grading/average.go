package grading

import (
	"encoding/json"
	"math"
	"strconv"
)

// Entry is one earned/possible pair, e.g. a graded submission.
type Entry struct {
	Earned   float64
	Possible float64
	Graded   bool
}

// Result is an average that may be undefined when nothing contributed.
type Result struct {
	Value float64
	Valid bool
	Count int
}

// String renders the result, using "N/A" when no entry contributed.
func (r Result) String() string {
	if !r.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON encodes an undefined result as null.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// PointsAverage weights every entry by its possible points: sum(earned)/sum(possible)*100.
func PointsAverage(entries []Entry) Result {
	var earned, possible float64
	count := 0
	for _, e := range entries {
		if !contributes(e) {
			continue
		}
		earned += e.Earned
		possible += e.Possible
		count++
	}
	if count == 0 {
		return Result{}
	}
	return Result{Value: Round(earned / possible * 100), Valid: true, Count: count}
}

// MeanOfPercentages averages each entry's own percentage, weighting entries equally.
func MeanOfPercentages(entries []Entry) Result {
	sum := 0.0
	count := 0
	for _, e := range entries {
		if !contributes(e) {
			continue
		}
		sum += e.Earned / e.Possible * 100
		count++
	}
	if count == 0 {
		return Result{}
	}
	return Result{Value: Round(sum / float64(count)), Valid: true, Count: count}
}

// Mean averages plain values, skipping NaN.
func Mean(values []float64) Result {
	sum := 0.0
	count := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return Result{}
	}
	return Result{Value: Round(sum / float64(count)), Valid: true, Count: count}
}

// Percentage returns part/whole*100 rounded, or 0 when whole is zero.
func Percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return Round(float64(part) / float64(whole) * 100)
}

// Round rounds half away from zero to two decimals.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

func contributes(e Entry) bool {
	if !e.Graded || e.Possible <= 0 {
		return false
	}
	return !math.IsNaN(e.Earned) && !math.IsInf(e.Earned, 0) && !math.IsInf(e.Possible, 0)
}

// UnmarshalJSON accepts null as an undefined result.
func (r *Result) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Result{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Result{Value: v, Valid: true}
	return nil
}
