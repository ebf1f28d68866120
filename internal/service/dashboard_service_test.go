package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
)

type fakeStudentMetrics struct {
	mu       sync.Mutex
	gpas     map[int64]float64
	rates    map[int64]int
	failGPA  map[int64]bool
	failRate map[int64]bool
	asked    []int64
}

func (f *fakeStudentMetrics) GPA(_ context.Context, id int64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, id)
	if f.failGPA[id] {
		return 0, errors.New("timeout")
	}
	return f.gpas[id], nil
}

func (f *fakeStudentMetrics) AttendanceRate(_ context.Context, id int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRate[id] {
		return 0, errors.New("timeout")
	}
	return f.rates[id], nil
}

type fakeActivities struct {
	items  []models.Activity
	filter models.ActivityFilter
}

func (f *fakeActivities) List(_ context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	f.filter = filter
	return f.items, nil
}

func rosterOf(n int) *fakeRoster {
	roster := &fakeRoster{}
	for i := 1; i <= n; i++ {
		status := models.StudentStatusActive
		if i%4 == 0 {
			status = models.StudentStatusInactive
		}
		roster.students = append(roster.students, models.Student{ID: int64(i), Status: status})
	}
	return roster
}

func TestDashboardSummarySamplesFirstStudents(t *testing.T) {
	metrics := &fakeStudentMetrics{
		gpas:  map[int64]float64{1: 3.5, 2: 3.0, 3: 0, 4: 2.5, 5: 4.0, 6: 1.0},
		rates: map[int64]int{1: 90, 2: 80, 3: 0, 4: 70, 5: 100, 6: 10},
	}
	activities := &fakeActivities{items: []models.Activity{{ID: 1, Title: "Parent call"}}}
	svc := NewDashboardService(DashboardServiceParams{
		Students:   rosterOf(6),
		Metrics:    metrics,
		Activities: activities,
	})

	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 6, summary.TotalStudents)
	assert.Equal(t, 5, summary.ActiveStudents)
	assert.Equal(t, 5, summary.SampleSize)
	// zeros are ignored: (3.5+3.0+2.5+4.0)/4 and (90+80+70+100)/4
	assert.Equal(t, 3.25, summary.AverageGPA)
	assert.Equal(t, 85, summary.AverageAttendance)
	assert.NotContains(t, metrics.asked, int64(6))
	assert.Len(t, summary.RecentActivities, 1)
	assert.Equal(t, 5, activities.filter.Limit)
}

func TestDashboardSummaryCoercesFailedFetches(t *testing.T) {
	metrics := &fakeStudentMetrics{
		gpas:     map[int64]float64{1: 4.0, 2: 2.0},
		rates:    map[int64]int{1: 100, 2: 50},
		failGPA:  map[int64]bool{2: true},
		failRate: map[int64]bool{1: true},
	}
	svc := NewDashboardService(DashboardServiceParams{
		Students: rosterOf(2),
		Metrics:  metrics,
		Config:   DashboardServiceConfig{Concurrency: 1},
	})

	summary, _, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4.0, summary.AverageGPA)
	assert.Equal(t, 50, summary.AverageAttendance)
	assert.NotNil(t, summary.RecentActivities)
}

func TestDashboardSummaryCaches(t *testing.T) {
	roster := rosterOf(3)
	cache := NewCacheService(newMapCacheRepo(), nil, time.Minute, nil, true)
	svc := NewDashboardService(DashboardServiceParams{
		Students: roster,
		Metrics:  &fakeStudentMetrics{},
		Cache:    cache,
	})

	_, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 3, summary.TotalStudents)
	assert.Equal(t, int32(1), roster.calls)
}

func TestDashboardSummaryRosterFailure(t *testing.T) {
	roster := &fakeRoster{err: errors.New("boom")}
	svc := NewDashboardService(DashboardServiceParams{Students: roster, Metrics: &fakeStudentMetrics{}})

	_, _, err := svc.Summary(context.Background())
	assert.Error(t, err)
}
