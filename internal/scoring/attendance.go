package scoring

import "github.com/noah-isme/classroom-api/internal/models"

// EmptyRate is reported when no records fall inside the window.
const EmptyRate = 100

// ComputeRate returns the share of favorable records (Present or Tardy) as
// a rounded percentage. Bounds are inclusive and compared by day; an empty
// window yields EmptyRate.
func ComputeRate(records []models.AttendanceRecord, start, end *models.Date) int {
	var total, favorable int
	for _, rec := range records {
		if start != nil && rec.Date.Before(*start) {
			continue
		}
		if end != nil && rec.Date.After(*end) {
			continue
		}
		total++
		if rec.Status.Favorable() {
			favorable++
		}
	}
	if total == 0 {
		return EmptyRate
	}
	return roundHalfUp(float64(favorable) / float64(total) * 100)
}

// AverageRate is the rounded mean of the non-zero rates, or 0.
func AverageRate(rates []int) int {
	var sum, n int
	for _, r := range rates {
		if r > 0 {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return roundHalfUp(float64(sum) / float64(n))
}
