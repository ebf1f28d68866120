package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/scoring"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
	FindByID(ctx context.Context, id int64) (*models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) (*models.Grade, error)
	CreateBatch(ctx context.Context, grades []models.Grade) ([]models.Grade, []string, error)
	Update(ctx context.Context, grade *models.Grade) (*models.Grade, error)
	Delete(ctx context.Context, id, studentID int64) error
}

// CreateGradeRequest represents a single grade entry payload.
type CreateGradeRequest struct {
	StudentID      int64                `json:"student_id" validate:"required,gt=0"`
	AssignmentName string               `json:"assignment_name" validate:"required"`
	Category       models.GradeCategory `json:"category" validate:"required,grade_category"`
	Score          float64              `json:"score" validate:"gte=0"`
	MaxScore       float64              `json:"max_score" validate:"gt=0"`
	Notes          string               `json:"notes"`
	Date           *models.Date         `json:"date"`
	Tags           []string             `json:"tags"`
}

// UpdateGradeRequest carries the fields to change. Nil fields are kept.
type UpdateGradeRequest struct {
	StudentID      *int64                `json:"student_id" validate:"omitempty,gt=0"`
	AssignmentName *string               `json:"assignment_name" validate:"omitempty,min=1"`
	Category       *models.GradeCategory `json:"category" validate:"omitempty,grade_category"`
	Score          *float64              `json:"score" validate:"omitempty,gte=0"`
	MaxScore       *float64              `json:"max_score" validate:"omitempty,gt=0"`
	Notes          *string               `json:"notes"`
	Date           *models.Date          `json:"date"`
	Tags           []string              `json:"tags"`
}

// BulkGradeResult reports what a bulk entry stored and what it rejected.
type BulkGradeResult struct {
	Created []models.Grade `json:"created"`
	Errors  []string       `json:"errors,omitempty"`
}

// GradeService handles grade entry and derivation.
type GradeService struct {
	repo      gradeRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGradeService constructs the grade service.
func NewGradeService(repo gradeRepository, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns grades for the filter, newest first.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid grade category filter")
	}
	grades, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list grades")
	}
	return grades, nil
}

// Get returns a single grade.
func (s *GradeService) Get(ctx context.Context, id int64) (*models.Grade, error) {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load grade")
	}
	if grade == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
	}
	return grade, nil
}

// Create derives percentage and letter grade and stores the entry.
func (s *GradeService) Create(ctx context.Context, req CreateGradeRequest) (*models.Grade, error) {
	grade, err := s.buildGrade(req)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, grade)
	if err != nil {
		return nil, storeError(err, "failed to create grade")
	}
	return created, nil
}

// BulkCreate stores several entries at once. Invalid rows and rows the store
// rejects are reported while the rest are kept.
func (s *GradeService) BulkCreate(ctx context.Context, reqs []CreateGradeRequest) (*BulkGradeResult, error) {
	if len(reqs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no grades supplied")
	}
	result := &BulkGradeResult{}
	grades := make([]models.Grade, 0, len(reqs))
	for i, req := range reqs {
		grade, err := s.buildGrade(req)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", i+1, appErrors.FromError(err).Message))
			continue
		}
		grades = append(grades, *grade)
	}
	if len(grades) > 0 {
		created, messages, err := s.repo.CreateBatch(ctx, grades)
		if err != nil {
			return nil, storeError(err, "failed to create grades")
		}
		result.Created = created
		result.Errors = append(result.Errors, messages...)
	}
	if len(result.Created) == 0 {
		return result, appErrors.WithDetails(appErrors.ErrBatchFailed, "no grades were stored", result.Errors)
	}
	if len(result.Errors) > 0 {
		s.logger.Warn("bulk grade entry partially failed", zap.Int("created", len(result.Created)), zap.Strings("errors", result.Errors))
	}
	return result, nil
}

// Update applies changes. Touching score or max score re-derives from the
// merged pair; otherwise the stored derivation is kept.
func (s *GradeService) Update(ctx context.Context, id int64, req UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grade payload")
	}
	grade, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.StudentID != nil {
		grade.StudentID = *req.StudentID
	}
	if req.AssignmentName != nil {
		grade.AssignmentName = strings.TrimSpace(*req.AssignmentName)
	}
	if req.Category != nil {
		grade.Category = *req.Category
	}
	if req.Notes != nil {
		grade.Notes = *req.Notes
	}
	if req.Date != nil && !req.Date.IsZero() {
		grade.Date = *req.Date
	}
	if req.Tags != nil {
		grade.Tags = req.Tags
	}
	if req.Score != nil || req.MaxScore != nil {
		if req.Score != nil {
			grade.Score = *req.Score
		}
		if req.MaxScore != nil {
			grade.MaxScore = *req.MaxScore
		}
		derived, err := scoring.Derive(grade.Score, grade.MaxScore)
		if err != nil {
			return nil, validationError(err, "invalid grade score")
		}
		grade.Percentage = derived.Percentage
		grade.LetterGrade = derived.LetterGrade
	}
	updated, err := s.repo.Update(ctx, grade)
	if err != nil {
		return nil, storeError(err, "failed to update grade")
	}
	return updated, nil
}

// Delete removes a grade.
func (s *GradeService) Delete(ctx context.Context, id int64) error {
	grade, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, grade.StudentID); err != nil {
		return storeError(err, "failed to delete grade")
	}
	return nil
}

// GPA recomputes the student's grade point average from all stored grades.
func (s *GradeService) GPA(ctx context.Context, studentID int64) (float64, error) {
	grades, err := s.repo.List(ctx, models.GradeFilter{StudentID: studentID})
	if err != nil {
		return 0, storeError(err, "failed to load grades")
	}
	return scoring.ComputeGPA(grades), nil
}

func (s *GradeService) buildGrade(req CreateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grade payload")
	}
	derived, err := scoring.Derive(req.Score, req.MaxScore)
	if err != nil {
		return nil, validationError(err, "invalid grade score")
	}
	date := models.NewDate(s.now())
	if req.Date != nil && !req.Date.IsZero() {
		date = *req.Date
	}
	return &models.Grade{
		StudentID:      req.StudentID,
		AssignmentName: strings.TrimSpace(req.AssignmentName),
		Category:       req.Category,
		Score:          req.Score,
		MaxScore:       req.MaxScore,
		Percentage:     derived.Percentage,
		LetterGrade:    derived.LetterGrade,
		Notes:          req.Notes,
		Date:           date,
		Tags:           req.Tags,
	}, nil
}
