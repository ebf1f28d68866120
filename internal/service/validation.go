package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

// NewValidator returns a validator with the classroom enum tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("student_status", func(fl validator.FieldLevel) bool {
		return models.StudentStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("grade_category", func(fl validator.FieldLevel) bool {
		return models.GradeCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("activity_type", func(fl validator.FieldLevel) bool {
		switch models.ActivityType(fl.Field().String()) {
		case models.ActivityTypeMeeting, models.ActivityTypeCall, models.ActivityTypeEmail, models.ActivityTypeTask, models.ActivityTypeOther:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("activity_status", func(fl validator.FieldLevel) bool {
		switch models.ActivityStatus(fl.Field().String()) {
		case models.ActivityStatusPlanned, models.ActivityStatusCompleted, models.ActivityStatusCancelled:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("activity_priority", func(fl validator.FieldLevel) bool {
		switch models.ActivityPriority(fl.Field().String()) {
		case models.ActivityPriorityHigh, models.ActivityPriorityMedium, models.ActivityPriorityLow:
			return true
		}
		return false
	})
	return v
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// storeError keeps typed store errors (unavailable, batch failures) and wraps
// anything else as internal.
func storeError(err error, message string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
