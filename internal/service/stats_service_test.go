package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/events"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	"github.com/noah-isme/classroom-api/pkg/apper"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

func TestStatsServiceCompute(t *testing.T) {
	_, grades, attendance := classFixture()
	svc := NewStatsService(grades, attendance, nil, nil)

	stats, err := svc.Compute(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.StudentID)
	assert.Equal(t, 2.5, stats.GPA)
	assert.Equal(t, 50, stats.AttendanceRate)
	assert.Equal(t, 2, stats.GradeCount)
	assert.Equal(t, 2, stats.AttendanceDays)

	gpa, err := svc.GPA(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, gpa)

	rate, err := svc.AttendanceRate(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, 100, rate)
}

func TestStatsServiceComputeFailure(t *testing.T) {
	_, grades, attendance := classFixture()
	attendance.err = appErrors.Clone(appErrors.ErrUnavailable, "record store unavailable")
	svc := NewStatsService(grades, attendance, nil, nil)

	_, err := svc.Compute(context.Background(), 1)
	assert.ErrorIs(t, err, appErrors.ErrUnavailable)
}

func TestStatsServiceRecomputesOnGradeWrite(t *testing.T) {
	bus := events.NewBus(nil)
	table := repository.NewTable(apper.NewStaticHandle(apper.NewMemoryBackend()), repository.TableConfig{
		Name:         repository.TableGrades,
		Lookups:      repository.GradeLookups,
		StudentField: "student_id_c",
		Bus:          bus,
	})
	grades := repository.NewGradeRepository(table)
	metrics := NewMetricsService()
	svc := NewStatsService(grades, &fakeAttendanceLister{}, metrics, nil)
	detach := svc.Attach(bus)
	defer detach()

	updates, unsubscribe := svc.Subscribe(4)
	defer unsubscribe()

	_, err := grades.Create(context.Background(), &models.Grade{
		StudentID:      7,
		AssignmentName: "Quiz 1",
		Category:       models.GradeCategoryQuiz,
		Score:          9,
		MaxScore:       10,
		Percentage:     90,
		LetterGrade:    "A-",
		Date:           mustDate("2024-03-01"),
	})
	require.NoError(t, err)

	select {
	case stats := <-updates:
		assert.Equal(t, int64(7), stats.StudentID)
		assert.Equal(t, 3.7, stats.GPA)
		assert.Equal(t, 1, stats.GradeCount)
	case <-time.After(time.Second):
		t.Fatal("no stats update published")
	}
}

func TestStatsServiceIgnoresOtherTables(t *testing.T) {
	_, grades, attendance := classFixture()
	svc := NewStatsService(grades, attendance, nil, nil)
	updates, unsubscribe := svc.Subscribe(1)
	defer unsubscribe()

	svc.onRecordsChanged(context.Background(), events.RecordsChanged{Table: repository.TableActivities, StudentIDs: []int64{1}})
	select {
	case <-updates:
		t.Fatal("unexpected update")
	default:
	}

	svc.onRecordsChanged(context.Background(), events.RecordsChanged{Table: repository.TableAttendance, StudentIDs: []int64{1}})
	stats := <-updates
	assert.Equal(t, 100, stats.AttendanceRate)
}

func TestStatsServiceUnsubscribeClosesChannel(t *testing.T) {
	svc := NewStatsService(&fakeGradeLister{}, &fakeAttendanceLister{}, nil, nil)
	updates, unsubscribe := svc.Subscribe(1)
	unsubscribe()
	unsubscribe()
	_, open := <-updates
	assert.False(t, open)
}

type blockingGrades struct {
	release chan struct{}
}

func (b *blockingGrades) List(ctx context.Context, _ models.GradeFilter) ([]models.Grade, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []models.Grade{{StudentID: 5, LetterGrade: "B"}}, nil
}

func TestStatsServiceRecomputeDoesNotBlockWriter(t *testing.T) {
	bus := events.NewBus(nil)
	grades := &blockingGrades{release: make(chan struct{})}
	svc := NewStatsService(grades, &fakeAttendanceLister{}, nil, nil)
	detach := svc.Attach(bus)
	updates, unsubscribe := svc.Subscribe(1)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	published := make(chan struct{})
	go func() {
		bus.Publish(ctx, events.RecordsChanged{Table: repository.TableGrades, StudentIDs: []int64{5}})
		close(published)
	}()
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish waited for the recompute")
	}

	// the request that triggered the write is gone; the recompute carries on
	cancel()
	close(grades.release)
	stats := <-updates
	assert.Equal(t, 3.0, stats.GPA)
	detach()
}
