package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/apper"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type activityRepository interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
	FindByID(ctx context.Context, id int64) (*models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) (*models.Activity, error)
	Update(ctx context.Context, activity *models.Activity) (*models.Activity, error)
	Delete(ctx context.Context, id int64) error
}

// CreateActivityRequest is the payload for logging an activity.
type CreateActivityRequest struct {
	Title       string                  `json:"title" validate:"required"`
	Type        models.ActivityType     `json:"type" validate:"required,activity_type"`
	DueDate     *models.Date            `json:"due_date"`
	Status      models.ActivityStatus   `json:"status" validate:"omitempty,activity_status"`
	Priority    models.ActivityPriority `json:"priority" validate:"omitempty,activity_priority"`
	Description string                  `json:"description"`
	RelatedTo   *int64                  `json:"related_to" validate:"omitempty,gt=0"`
}

// UpdateActivityRequest carries the fields to change. Nil fields are kept;
// a related_to of 0 clears the link.
type UpdateActivityRequest struct {
	Title       *string                  `json:"title" validate:"omitempty,min=1"`
	Type        *models.ActivityType     `json:"type" validate:"omitempty,activity_type"`
	DueDate     *models.Date             `json:"due_date"`
	Status      *models.ActivityStatus   `json:"status" validate:"omitempty,activity_status"`
	Priority    *models.ActivityPriority `json:"priority" validate:"omitempty,activity_priority"`
	Description *string                  `json:"description"`
	RelatedTo   *int64                   `json:"related_to" validate:"omitempty,gte=0"`
}

// ActivityService manages the teacher's activity log.
type ActivityService struct {
	repo      activityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs the activity service.
func NewActivityService(repo activityRepository, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, validator: validate, logger: logger}
}

// List returns activities by due date, latest first.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	activities, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list activities")
	}
	return activities, nil
}

// Get returns one activity.
func (s *ActivityService) Get(ctx context.Context, id int64) (*models.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load activity")
	}
	if activity == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	return activity, nil
}

// Create logs a new activity, Planned and Medium priority unless given.
func (s *ActivityService) Create(ctx context.Context, req CreateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid activity payload")
	}
	activity := &models.Activity{
		Title:       strings.TrimSpace(req.Title),
		Type:        req.Type,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
		Description: req.Description,
	}
	if activity.Status == "" {
		activity.Status = models.ActivityStatusPlanned
	}
	if activity.Priority == "" {
		activity.Priority = models.ActivityPriorityMedium
	}
	if req.RelatedTo != nil {
		activity.RelatedTo = &apper.Lookup{ID: *req.RelatedTo}
	}
	created, err := s.repo.Create(ctx, activity)
	if err != nil {
		return nil, storeError(err, "failed to create activity")
	}
	return created, nil
}

// Update applies changes to an activity.
func (s *ActivityService) Update(ctx context.Context, id int64, req UpdateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid activity payload")
	}
	activity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		activity.Title = strings.TrimSpace(*req.Title)
	}
	if req.Type != nil {
		activity.Type = *req.Type
	}
	if req.DueDate != nil {
		activity.DueDate = req.DueDate
	}
	if req.Status != nil {
		activity.Status = *req.Status
	}
	if req.Priority != nil {
		activity.Priority = *req.Priority
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.RelatedTo != nil {
		activity.RelatedTo = nil
		if *req.RelatedTo > 0 {
			activity.RelatedTo = &apper.Lookup{ID: *req.RelatedTo}
		}
	}
	updated, err := s.repo.Update(ctx, activity)
	if err != nil {
		return nil, storeError(err, "failed to update activity")
	}
	return updated, nil
}

// Delete removes an activity.
func (s *ActivityService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "failed to delete activity")
	}
	return nil
}
