package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/scoring"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

const monthLayout = "2006-01"

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	FindByID(ctx context.Context, id int64) (*models.AttendanceRecord, error)
	FindByStudentDate(ctx context.Context, studentID int64, date models.Date) (*models.AttendanceRecord, error)
	Create(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	Update(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, id, studentID int64) error
}

// MarkAttendanceRequest sets an explicit status for one student on one day.
type MarkAttendanceRequest struct {
	StudentID int64                   `json:"student_id" validate:"required,gt=0"`
	Date      models.Date             `json:"date"`
	Status    models.AttendanceStatus `json:"status" validate:"required,attendance_status"`
	Notes     string                  `json:"notes"`
}

// ToggleResult is the state of a calendar cell after a toggle.
type ToggleResult struct {
	StudentID int64                    `json:"student_id"`
	Date      models.Date              `json:"date"`
	Status    models.AttendanceStatus  `json:"status"`
	Record    *models.AttendanceRecord `json:"record,omitempty"`
}

// AttendanceService coordinates attendance workflows. At most one record
// exists per (student, date); writes to the same cell never overlap.
type AttendanceService struct {
	repo      attendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		pending:   make(map[string]struct{}),
	}
}

// List returns attendance records, newest day first.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status filter")
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list attendance")
	}
	return records, nil
}

// Get returns a single record.
func (s *AttendanceService) Get(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load attendance")
	}
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}
	return record, nil
}

// Mark upserts the record for the cell with an explicit status.
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance date is required")
	}
	if err := s.ensureNotFuture(req.Date); err != nil {
		return nil, err
	}
	release, err := s.acquire(req.StudentID, req.Date)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.repo.FindByStudentDate(ctx, req.StudentID, req.Date)
	if err != nil {
		return nil, storeError(err, "failed to load attendance")
	}
	recordedAt := s.now().UTC()
	if existing != nil {
		existing.Status = req.Status
		existing.Notes = req.Notes
		existing.RecordedAt = &recordedAt
		updated, err := s.repo.Update(ctx, existing)
		if err != nil {
			return nil, storeError(err, "failed to update attendance")
		}
		return updated, nil
	}
	created, err := s.repo.Create(ctx, &models.AttendanceRecord{
		StudentID:  req.StudentID,
		Date:       req.Date,
		Status:     req.Status,
		Notes:      req.Notes,
		RecordedAt: &recordedAt,
	})
	if err != nil {
		return nil, storeError(err, "failed to record attendance")
	}
	return created, nil
}

// Toggle advances the cell one step through None, Present, Absent, Tardy.
// On a failed write the last confirmed state is returned with the error.
func (s *AttendanceService) Toggle(ctx context.Context, studentID int64, date models.Date) (*ToggleResult, error) {
	if studentID <= 0 || date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student and date are required")
	}
	if err := s.ensureNotFuture(date); err != nil {
		return nil, err
	}
	release, err := s.acquire(studentID, date)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.repo.FindByStudentDate(ctx, studentID, date)
	if err != nil {
		return nil, storeError(err, "failed to load attendance")
	}
	confirmed := &ToggleResult{StudentID: studentID, Date: date, Record: existing}
	if existing != nil {
		confirmed.Status = existing.Status
	}

	next := confirmed.Status.Next()
	result := &ToggleResult{StudentID: studentID, Date: date, Status: next}
	recordedAt := s.now().UTC()
	switch {
	case next == models.AttendanceStatusNone:
		if err := s.repo.Delete(ctx, existing.ID, studentID); err != nil {
			return confirmed, storeError(err, "failed to clear attendance")
		}
	case existing == nil:
		created, err := s.repo.Create(ctx, &models.AttendanceRecord{
			StudentID:  studentID,
			Date:       date,
			Status:     next,
			RecordedAt: &recordedAt,
		})
		if err != nil {
			return confirmed, storeError(err, "failed to record attendance")
		}
		result.Record = created
	default:
		changed := *existing
		changed.Status = next
		changed.RecordedAt = &recordedAt
		updated, err := s.repo.Update(ctx, &changed)
		if err != nil {
			return confirmed, storeError(err, "failed to update attendance")
		}
		result.Record = updated
	}
	s.logger.Debug("attendance toggled",
		zap.Int64("student_id", studentID),
		zap.String("date", date.String()),
		zap.String("from", string(confirmed.Status)),
		zap.String("to", string(next)),
	)
	return result, nil
}

// Delete removes a record by id.
func (s *AttendanceService) Delete(ctx context.Context, id int64) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, record.StudentID); err != nil {
		return storeError(err, "failed to delete attendance")
	}
	return nil
}

// Rate returns the student's attendance rate inside the optional window.
func (s *AttendanceService) Rate(ctx context.Context, studentID int64, from, to *models.Date) (int, error) {
	if from != nil && to != nil && from.After(*to) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	records, err := s.repo.List(ctx, models.AttendanceFilter{StudentID: studentID})
	if err != nil {
		return 0, storeError(err, "failed to load attendance")
	}
	return scoring.ComputeRate(records, from, to), nil
}

// Calendar builds the month grid for a student. month is YYYY-MM; empty
// means the current month.
func (s *AttendanceService) Calendar(ctx context.Context, studentID int64, month string) (*models.AttendanceCalendar, error) {
	today := models.NewDate(s.now())
	start := models.NewDate(time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC))
	if month != "" {
		parsed, err := time.Parse(monthLayout, month)
		if err != nil {
			return nil, validationError(err, "month must be formatted as YYYY-MM")
		}
		start = models.NewDate(parsed)
	}
	end := models.NewDate(start.AddDate(0, 1, -1))

	records, err := s.repo.List(ctx, models.AttendanceFilter{StudentID: studentID, From: &start, To: &end})
	if err != nil {
		return nil, storeError(err, "failed to load attendance")
	}
	byDay := make(map[string]models.AttendanceRecord, len(records))
	for _, rec := range records {
		byDay[rec.Date.String()] = rec
	}

	calendar := &models.AttendanceCalendar{
		StudentID: studentID,
		Month:     start.Format(monthLayout),
		Rate:      scoring.ComputeRate(records, &start, &end),
	}
	for d := start; !d.After(end); d = models.NewDate(d.AddDate(0, 0, 1)) {
		day := models.CalendarDay{
			Date:     d,
			IsToday:  d.Equal(today),
			Editable: !d.After(today),
		}
		if rec, ok := byDay[d.String()]; ok {
			day.Status = rec.Status
			day.RecordID = rec.ID
		}
		calendar.Days = append(calendar.Days, day)
	}
	return calendar, nil
}

func (s *AttendanceService) ensureNotFuture(date models.Date) error {
	if date.After(models.NewDate(s.now())) {
		return appErrors.Clone(appErrors.ErrValidation, "attendance cannot be recorded for a future date")
	}
	return nil
}

func (s *AttendanceService) acquire(studentID int64, date models.Date) (func(), error) {
	key := fmt.Sprintf("%d:%s", studentID, date.String())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.pending[key]; busy {
		return nil, appErrors.Clone(appErrors.ErrConflict, "attendance update already in progress")
	}
	s.pending[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
	}, nil
}
