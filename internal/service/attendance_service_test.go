package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	"github.com/noah-isme/classroom-api/pkg/apper"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

var attendanceToday = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newMemoryAttendanceService(t *testing.T) (*AttendanceService, *apper.MemoryBackend) {
	t.Helper()
	backend := apper.NewMemoryBackend()
	table := repository.NewTable(apper.NewStaticHandle(backend), repository.TableConfig{
		Name:         repository.TableAttendance,
		Lookups:      repository.AttendanceLookups,
		StudentField: "student_id_c",
	})
	svc := NewAttendanceService(repository.NewAttendanceRepository(table), nil, zap.NewNop())
	svc.now = func() time.Time { return attendanceToday }
	return svc, backend
}

func day(t *testing.T, raw string) models.Date {
	t.Helper()
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func storedAttendance(t *testing.T, backend *apper.MemoryBackend) []apper.Record {
	t.Helper()
	resp, err := backend.FetchRecords(context.Background(), repository.TableAttendance, apper.FetchParams{})
	require.NoError(t, err)
	return resp.Data
}

func TestAttendanceToggleCyclesBackToNone(t *testing.T) {
	svc, backend := newMemoryAttendanceService(t)
	ctx := context.Background()
	date := day(t, "2024-03-14")

	expected := []models.AttendanceStatus{
		models.AttendanceStatusPresent,
		models.AttendanceStatusAbsent,
		models.AttendanceStatusTardy,
		models.AttendanceStatusNone,
	}
	for _, want := range expected {
		res, err := svc.Toggle(ctx, 3, date)
		require.NoError(t, err)
		assert.Equal(t, want, res.Status)
		if want == models.AttendanceStatusNone {
			assert.Empty(t, storedAttendance(t, backend))
		} else {
			assert.Len(t, storedAttendance(t, backend), 1)
		}
	}
}

func TestAttendanceToggleFutureDateIsBlocked(t *testing.T) {
	svc, backend := newMemoryAttendanceService(t)

	_, err := svc.Toggle(context.Background(), 3, day(t, "2024-03-16"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, storedAttendance(t, backend))

	res, err := svc.Toggle(context.Background(), 3, day(t, "2024-03-15"))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, res.Status)
}

func TestAttendanceMarkUpsertsSingleRecord(t *testing.T) {
	svc, backend := newMemoryAttendanceService(t)
	ctx := context.Background()
	date := day(t, "2024-03-11")

	first, err := svc.Mark(ctx, MarkAttendanceRequest{StudentID: 8, Date: date, Status: models.AttendanceStatusAbsent})
	require.NoError(t, err)
	second, err := svc.Mark(ctx, MarkAttendanceRequest{StudentID: 8, Date: date, Status: models.AttendanceStatusTardy, Notes: "bus"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.AttendanceStatusTardy, second.Status)
	assert.Len(t, storedAttendance(t, backend), 1)
}

func TestAttendanceMarkRejectsInvalidStatus(t *testing.T) {
	svc, _ := newMemoryAttendanceService(t)
	_, err := svc.Mark(context.Background(), MarkAttendanceRequest{StudentID: 8, Date: day(t, "2024-03-11"), Status: "Excused"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceToggleConflictWhileInFlight(t *testing.T) {
	svc, _ := newMemoryAttendanceService(t)
	date := day(t, "2024-03-14")

	release, err := svc.acquire(3, date)
	require.NoError(t, err)

	_, err = svc.Toggle(context.Background(), 3, date)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	release()
	_, err = svc.Toggle(context.Background(), 3, date)
	assert.NoError(t, err)
}

type failingAttendanceRepo struct {
	attendanceRepository
	existing *models.AttendanceRecord
}

func (f *failingAttendanceRepo) FindByStudentDate(ctx context.Context, studentID int64, date models.Date) (*models.AttendanceRecord, error) {
	return f.existing, nil
}

func (f *failingAttendanceRepo) Update(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	return nil, appErrors.Clone(appErrors.ErrUnavailable, "record store unavailable")
}

func TestAttendanceToggleFailureKeepsConfirmedState(t *testing.T) {
	existing := &models.AttendanceRecord{ID: 4, StudentID: 3, Date: day(t, "2024-03-14"), Status: models.AttendanceStatusPresent}
	svc := NewAttendanceService(&failingAttendanceRepo{existing: existing}, nil, zap.NewNop())
	svc.now = func() time.Time { return attendanceToday }

	res, err := svc.Toggle(context.Background(), 3, existing.Date)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnavailable))
	require.NotNil(t, res)
	assert.Equal(t, models.AttendanceStatusPresent, res.Status)
	assert.Equal(t, models.AttendanceStatusPresent, existing.Status)
}

func TestAttendanceRateWindow(t *testing.T) {
	svc, backend := newMemoryAttendanceService(t)
	backend.Seed(repository.TableAttendance,
		apper.Record{"student_id_c": float64(1), "date_c": "2024-03-01", "status_c": "Present"},
		apper.Record{"student_id_c": float64(1), "date_c": "2024-03-02", "status_c": "Absent"},
		apper.Record{"student_id_c": float64(1), "date_c": "2024-03-03", "status_c": "Tardy"},
		apper.Record{"student_id_c": float64(2), "date_c": "2024-03-03", "status_c": "Absent"},
	)
	ctx := context.Background()

	rate, err := svc.Rate(ctx, 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 67, rate)

	from := day(t, "2024-03-02")
	to := day(t, "2024-03-02")
	rate, err = svc.Rate(ctx, 1, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, 0, rate)

	rate, err = svc.Rate(ctx, 99, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, rate)

	later := day(t, "2024-03-05")
	_, err = svc.Rate(ctx, 1, &later, &from)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceCalendarMonth(t *testing.T) {
	svc, backend := newMemoryAttendanceService(t)
	backend.Seed(repository.TableAttendance,
		apper.Record{"student_id_c": float64(1), "date_c": "2024-03-01", "status_c": "Present"},
		apper.Record{"student_id_c": float64(1), "date_c": "2024-02-29", "status_c": "Absent"},
	)

	cal, err := svc.Calendar(context.Background(), 1, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", cal.Month)
	require.Len(t, cal.Days, 31)
	assert.Equal(t, models.AttendanceStatusPresent, cal.Days[0].Status)
	assert.NotZero(t, cal.Days[0].RecordID)
	assert.True(t, cal.Days[14].IsToday)
	assert.True(t, cal.Days[14].Editable)
	assert.False(t, cal.Days[15].Editable)
	assert.Equal(t, 100, cal.Rate)

	_, err = svc.Calendar(context.Background(), 1, "March")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceDeleteMissing(t *testing.T) {
	svc, _ := newMemoryAttendanceService(t)
	err := svc.Delete(context.Background(), 77)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
