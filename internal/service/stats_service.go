package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/classroom-api/internal/events"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	"github.com/noah-isme/classroom-api/internal/scoring"
)

// StatsService derives per-student GPA and attendance rate and pushes fresh
// figures to listeners whenever grades or attendance change.
type StatsService struct {
	grades     gradeLister
	attendance attendanceLister
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.RWMutex
	listeners map[int]chan models.StudentStats
	nextID    int
	inflight  sync.WaitGroup
}

// NewStatsService constructs a StatsService.
func NewStatsService(grades gradeLister, attendance attendanceLister, metrics *MetricsService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		grades:     grades,
		attendance: attendance,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		listeners:  make(map[int]chan models.StudentStats),
	}
}

// Compute fetches a student's grades and attendance concurrently and reduces
// them to StudentStats.
func (s *StatsService) Compute(ctx context.Context, studentID int64) (*models.StudentStats, error) {
	var (
		grades  []models.Grade
		records []models.AttendanceRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		grades, err = s.grades.List(gctx, models.GradeFilter{StudentID: studentID})
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.attendance.List(gctx, models.AttendanceFilter{StudentID: studentID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(err, "failed to load student records")
	}
	return &models.StudentStats{
		StudentID:      studentID,
		GPA:            scoring.ComputeGPA(grades),
		AttendanceRate: scoring.ComputeRate(records, nil, nil),
		GradeCount:     len(grades),
		AttendanceDays: len(records),
		ComputedAt:     s.now().UTC(),
	}, nil
}

// GPA returns the student's grade point average.
func (s *StatsService) GPA(ctx context.Context, studentID int64) (float64, error) {
	grades, err := s.grades.List(ctx, models.GradeFilter{StudentID: studentID})
	if err != nil {
		return 0, storeError(err, "failed to load grades")
	}
	return scoring.ComputeGPA(grades), nil
}

// AttendanceRate returns the student's all-time attendance rate.
func (s *StatsService) AttendanceRate(ctx context.Context, studentID int64) (int, error) {
	records, err := s.attendance.List(ctx, models.AttendanceFilter{StudentID: studentID})
	if err != nil {
		return 0, storeError(err, "failed to load attendance")
	}
	return scoring.ComputeRate(records, nil, nil), nil
}

// Subscribe registers a listener. Updates are dropped for listeners whose
// buffer is full. The returned func unsubscribes and closes the channel.
func (s *StatsService) Subscribe(buffer int) (<-chan models.StudentStats, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.StudentStats, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Attach recomputes stats for every student touched by a grade or
// attendance write published on bus. Recomputes run off the publishing
// goroutine so writes return without waiting for the re-fetch; the returned
// func detaches and waits for recomputes already started.
func (s *StatsService) Attach(bus *events.Bus) func() {
	detach := bus.Subscribe(func(ctx context.Context, evt events.RecordsChanged) {
		if !affectsStats(evt.Table) {
			return
		}
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.onRecordsChanged(context.WithoutCancel(ctx), evt)
		}()
	})
	return func() {
		detach()
		s.inflight.Wait()
	}
}

func affectsStats(table string) bool {
	return table == repository.TableGrades || table == repository.TableAttendance
}

func (s *StatsService) onRecordsChanged(ctx context.Context, evt events.RecordsChanged) {
	if !affectsStats(evt.Table) {
		return
	}
	recomputed := 0
	for _, studentID := range evt.StudentIDs {
		if studentID <= 0 {
			continue
		}
		stats, err := s.Compute(ctx, studentID)
		if err != nil {
			s.logger.Warn("stats recompute failed",
				zap.Int64("student_id", studentID),
				zap.String("table", evt.Table),
				zap.Error(err),
			)
			continue
		}
		recomputed++
		s.broadcast(*stats)
	}
	s.metrics.RecordStatsRecomputed(recomputed)
}

func (s *StatsService) broadcast(stats models.StudentStats) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.listeners {
		select {
		case ch <- stats:
		default:
		}
	}
}
