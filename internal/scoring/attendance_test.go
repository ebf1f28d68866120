package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/classroom-api/internal/models"
)

func day(raw string) models.Date {
	d, err := models.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func record(date string, status models.AttendanceStatus) models.AttendanceRecord {
	return models.AttendanceRecord{Date: day(date), Status: status}
}

func TestComputeRateEmptyIsOptimistic(t *testing.T) {
	assert.Equal(t, 100, ComputeRate(nil, nil, nil))
	assert.Equal(t, 100, ComputeRate([]models.AttendanceRecord{}, nil, nil))
}

func TestComputeRateCountsTardyAsFavorable(t *testing.T) {
	records := []models.AttendanceRecord{
		record("2024-03-01", models.AttendanceStatusPresent),
		record("2024-03-02", models.AttendanceStatusAbsent),
		record("2024-03-03", models.AttendanceStatusTardy),
	}
	assert.Equal(t, 67, ComputeRate(records, nil, nil))
}

func TestComputeRateBoundsAreInclusive(t *testing.T) {
	records := []models.AttendanceRecord{
		record("2024-02-29", models.AttendanceStatusAbsent),
		record("2024-03-01", models.AttendanceStatusPresent),
		record("2024-03-15", models.AttendanceStatusAbsent),
		record("2024-03-31", models.AttendanceStatusPresent),
		record("2024-04-01", models.AttendanceStatusAbsent),
	}
	start := day("2024-03-01")
	end := day("2024-03-31")
	assert.Equal(t, 67, ComputeRate(records, &start, &end))

	onlyStart := day("2024-03-16")
	assert.Equal(t, 50, ComputeRate(records, &onlyStart, nil))

	future := models.NewDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 100, ComputeRate(records, &future, nil), "empty window is optimistic")
}

func TestAverageRate(t *testing.T) {
	assert.Equal(t, 85, AverageRate([]int{90, 0, 80}))
	assert.Equal(t, 0, AverageRate([]int{0}))
}
