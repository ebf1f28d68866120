// Package scoring holds the pure grade and attendance computations.
package scoring

import (
	"errors"
	"math"
)

// ErrInvalidMaxScore is returned when a max score is not positive.
var ErrInvalidMaxScore = errors.New("max score must be greater than zero")

// Derivation is the percentage and letter grade derived from a score pair.
type Derivation struct {
	Percentage  int
	LetterGrade string
}

type letterThreshold struct {
	min    int
	letter string
}

// letterTable is ordered by descending threshold; first match wins.
var letterTable = []letterThreshold{
	{97, "A+"},
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{67, "D+"},
	{63, "D"},
	{60, "D-"},
}

// Derive computes round-half-up(score/maxScore*100) and its letter grade.
// Scores above maxScore are not clamped.
func Derive(score, maxScore float64) (Derivation, error) {
	if maxScore <= 0 || math.IsNaN(maxScore) || math.IsInf(maxScore, 0) {
		return Derivation{}, ErrInvalidMaxScore
	}
	percentage := roundHalfUp(score / maxScore * 100)
	return Derivation{Percentage: percentage, LetterGrade: LetterGrade(percentage)}, nil
}

// LetterGrade maps a percentage to its letter.
func LetterGrade(percentage int) string {
	for _, row := range letterTable {
		if percentage >= row.min {
			return row.letter
		}
	}
	return "F"
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// round2 rounds half-up to two decimals.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
