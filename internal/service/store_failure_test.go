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
	"github.com/noah-isme/classroom-api/internal/repository"
	"github.com/noah-isme/classroom-api/pkg/apper"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

// flakyBackend is a memory backend whose reads can be made to fail per
// table, optionally only for one student.
type flakyBackend struct {
	*apper.MemoryBackend

	mu          sync.Mutex
	failTable   string
	failStudent int64
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: apper.NewMemoryBackend()}
}

func (b *flakyBackend) failReads(table string, studentID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failTable, b.failStudent = table, studentID
}

func (b *flakyBackend) FetchRecords(ctx context.Context, table string, params apper.FetchParams) (*apper.FetchResponse, error) {
	if b.shouldFail(table, params) {
		return nil, &apper.NetworkError{Op: "fetch", Err: errors.New("connection reset by peer")}
	}
	return b.MemoryBackend.FetchRecords(ctx, table, params)
}

func (b *flakyBackend) shouldFail(table string, params apper.FetchParams) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failTable == "" || b.failTable != table {
		return false
	}
	if b.failStudent == 0 {
		return true
	}
	for _, cond := range params.Where {
		if cond.FieldName != "student_id_c" || len(cond.Values) == 0 {
			continue
		}
		if id, ok := apper.LookupID(cond.Values[0]); ok && id == b.failStudent {
			return true
		}
	}
	return false
}

func flakyTables(backend *flakyBackend) repository.Tables {
	return repository.NewTables(apper.NewStaticHandle(backend), nil, nil, nil)
}

func TestAttendanceRateIsZeroWhenFetchFails(t *testing.T) {
	backend := newFlakyBackend()
	tables := flakyTables(backend)
	svc := NewAttendanceService(repository.NewAttendanceRepository(tables.Attendance), nil, nil)
	svc.now = func() time.Time { return attendanceToday }
	ctx := context.Background()

	_, err := svc.Mark(ctx, MarkAttendanceRequest{StudentID: 3, Date: day(t, "2024-03-14"), Status: models.AttendanceStatusAbsent})
	require.NoError(t, err)

	rate, err := svc.Rate(ctx, 3, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rate)

	empty, err := svc.Rate(ctx, 4, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, empty)

	backend.failReads(repository.TableAttendance, 0)
	rate, err = svc.Rate(ctx, 4, nil, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnavailable)
	assert.Equal(t, 0, rate)

	stats := NewStatsService(repository.NewGradeRepository(tables.Grades), repository.NewAttendanceRepository(tables.Attendance), nil, nil)
	rate, err = stats.AttendanceRate(ctx, 4)
	assert.ErrorIs(t, err, appErrors.ErrUnavailable)
	assert.Equal(t, 0, rate)
}

func TestAttendanceMarkAbortsWhenLookupFails(t *testing.T) {
	backend := newFlakyBackend()
	svc := NewAttendanceService(repository.NewAttendanceRepository(flakyTables(backend).Attendance), nil, nil)
	svc.now = func() time.Time { return attendanceToday }
	ctx := context.Background()
	date := day(t, "2024-03-14")

	_, err := svc.Mark(ctx, MarkAttendanceRequest{StudentID: 3, Date: date, Status: models.AttendanceStatusAbsent})
	require.NoError(t, err)

	backend.failReads(repository.TableAttendance, 0)
	_, err = svc.Mark(ctx, MarkAttendanceRequest{StudentID: 3, Date: date, Status: models.AttendanceStatusPresent})
	assert.ErrorIs(t, err, appErrors.ErrUnavailable)

	res, err := svc.Toggle(ctx, 3, date)
	assert.ErrorIs(t, err, appErrors.ErrUnavailable)
	assert.Nil(t, res)

	backend.failReads("", 0)
	stored := storedAttendance(t, backend.MemoryBackend)
	require.Len(t, stored, 1)
	assert.Equal(t, "Absent", stored[0]["status_c"])
}

func TestDashboardIgnoresStudentWhoseFetchFailed(t *testing.T) {
	backend := newFlakyBackend()
	backend.Seed(repository.TableStudents,
		apper.Record{"first_name_c": "Ada", "student_id_c": "S1", "status_c": "Active"},
		apper.Record{"first_name_c": "Alan", "student_id_c": "S2", "status_c": "Active"},
	)
	backend.Seed(repository.TableGrades,
		apper.Record{"student_id_c": float64(1), "letter_grade_c": "A", "percentage_c": 95.0, "date_c": "2024-03-01"},
		apper.Record{"student_id_c": float64(2), "letter_grade_c": "C", "percentage_c": 75.0, "date_c": "2024-03-01"},
	)
	backend.Seed(repository.TableAttendance,
		apper.Record{"student_id_c": float64(1), "date_c": "2024-03-01", "status_c": "Present"},
		apper.Record{"student_id_c": float64(2), "date_c": "2024-03-01", "status_c": "Present"},
		apper.Record{"student_id_c": float64(2), "date_c": "2024-03-02", "status_c": "Absent"},
	)
	tables := flakyTables(backend)
	stats := NewStatsService(repository.NewGradeRepository(tables.Grades), repository.NewAttendanceRepository(tables.Attendance), nil, nil)
	svc := NewDashboardService(DashboardServiceParams{
		Students: repository.NewStudentRepository(tables.Students),
		Metrics:  stats,
	})

	backend.failReads(repository.TableAttendance, 2)
	summary, _, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalStudents)
	// student 2's rate slot is 0 and left out of the average
	assert.Equal(t, 100, summary.AverageAttendance)
	assert.Equal(t, 3.0, summary.AverageGPA)

	backend.failReads("", 0)
	summary, _, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 75, summary.AverageAttendance)
}
