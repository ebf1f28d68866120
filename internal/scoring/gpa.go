package scoring

import "github.com/noah-isme/classroom-api/internal/models"

var gradePoints = map[string]float64{
	"A+": 4.0,
	"A":  4.0,
	"A-": 3.7,
	"B+": 3.3,
	"B":  3.0,
	"B-": 2.7,
	"C+": 2.3,
	"C":  2.0,
	"C-": 1.7,
	"D+": 1.3,
	"D":  1.0,
	"D-": 0.7,
	"F":  0.0,
}

// GradePoint returns the point value of a letter; unknown letters score 0.
func GradePoint(letter string) float64 {
	return gradePoints[letter]
}

// ComputeGPA is the mean grade point of grades rounded to two decimals.
// An empty set yields 0.
func ComputeGPA(grades []models.Grade) float64 {
	if len(grades) == 0 {
		return 0
	}
	var total float64
	for _, g := range grades {
		total += GradePoint(g.LetterGrade)
	}
	return round2(total / float64(len(grades)))
}

// Average is the mean of the non-zero values rounded to two decimals, or 0.
func Average(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}
