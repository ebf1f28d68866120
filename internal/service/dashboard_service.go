package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/scoring"
)

const dashboardCacheKey = "dash:summary"

type studentMetricsSource interface {
	GPA(ctx context.Context, studentID int64) (float64, error)
	AttendanceRate(ctx context.Context, studentID int64) (int, error)
}

type activityLister interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	SampleSize       int
	Concurrency      int
	RecentActivities int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students   rosterLister
	Metrics    studentMetricsSource
	Activities activityLister
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// DashboardService composes the class overview.
type DashboardService struct {
	students   rosterLister
	metrics    studentMetricsSource
	activities activityLister
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 5
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.RecentActivities <= 0 {
		cfg.RecentActivities = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students:   params.Students,
		metrics:    params.Metrics,
		activities: params.Activities,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Summary returns the dashboard summary and indicates cache utilisation.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, bool, error) {
	if s.cache != nil {
		var cached dto.DashboardSummary
		hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", dashboardCacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context) (*dto.DashboardSummary, error) {
	students, err := s.students.ListAll(ctx, models.StudentFilter{})
	if err != nil {
		return nil, storeError(err, "failed to load students")
	}

	active := 0
	for _, st := range students {
		if st.IsActive() {
			active++
		}
	}

	sample := firstStudents(students, s.cfg.SampleSize)
	gpas := make([]float64, len(sample))
	rates := make([]int, len(sample))

	// each fetch is independent; a failure only zeroes its own slot
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, st := range sample {
		i, id := i, st.ID
		g.Go(func() error {
			gpa, err := s.metrics.GPA(ctx, id)
			if err != nil {
				s.logger.Warn("dashboard gpa fetch failed", zap.Int64("student_id", id), zap.Error(err))
				gpa = 0
			}
			gpas[i] = gpa
			return nil
		})
		g.Go(func() error {
			rate, err := s.metrics.AttendanceRate(ctx, id)
			if err != nil {
				s.logger.Warn("dashboard attendance fetch failed", zap.Int64("student_id", id), zap.Error(err))
				rate = 0
			}
			rates[i] = rate
			return nil
		})
	}
	_ = g.Wait()

	recent := []models.Activity{}
	if s.activities != nil {
		list, err := s.activities.List(ctx, models.ActivityFilter{Limit: s.cfg.RecentActivities})
		if err != nil {
			s.logger.Warn("dashboard activities fetch failed", zap.Error(err))
		} else if list != nil {
			recent = list
		}
		if len(recent) > s.cfg.RecentActivities {
			recent = recent[:s.cfg.RecentActivities]
		}
	}

	return &dto.DashboardSummary{
		TotalStudents:     len(students),
		ActiveStudents:    active,
		AverageGPA:        scoring.Average(gpas),
		AverageAttendance: scoring.AverageRate(rates),
		SampleSize:        len(sample),
		RecentActivities:  recent,
		GeneratedAt:       s.now().UTC(),
	}, nil
}
