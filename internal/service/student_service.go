package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByCode(ctx context.Context, code string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) (*models.Student, error)
	Delete(ctx context.Context, id int64) error
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	FirstName      string               `json:"first_name" validate:"required"`
	LastName       string               `json:"last_name" validate:"required"`
	StudentCode    string               `json:"student_code" validate:"required"`
	Email          string               `json:"email" validate:"required,email"`
	Phone          string               `json:"phone"`
	GradeLevel     string               `json:"grade_level" validate:"required"`
	Status         models.StudentStatus `json:"status" validate:"omitempty,student_status"`
	EnrollmentDate *models.Date         `json:"enrollment_date"`
	PhotoURL       string               `json:"photo_url" validate:"omitempty,url"`
	Tags           []string             `json:"tags"`
}

// UpdateStudentRequest holds payload for updating students. Nil fields are kept.
type UpdateStudentRequest struct {
	FirstName      *string               `json:"first_name" validate:"omitempty,min=1"`
	LastName       *string               `json:"last_name" validate:"omitempty,min=1"`
	StudentCode    *string               `json:"student_code" validate:"omitempty,min=1"`
	Email          *string               `json:"email" validate:"omitempty,email"`
	Phone          *string               `json:"phone"`
	GradeLevel     *string               `json:"grade_level" validate:"omitempty,min=1"`
	Status         *models.StudentStatus `json:"status" validate:"omitempty,student_status"`
	EnrollmentDate *models.Date          `json:"enrollment_date"`
	PhotoURL       *string               `json:"photo_url" validate:"omitempty,url"`
	Tags           []string              `json:"tags"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid student status filter")
	}
	pagination := paginate(filter.Page, filter.PageSize, 0)
	filter.Page, filter.PageSize = pagination.Page, pagination.PageSize
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list students")
	}
	pagination.TotalCount = total
	return students, pagination, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// Create registers a new student. New students are Active unless told otherwise.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	code := strings.TrimSpace(req.StudentCode)
	if err := s.ensureCodeFree(ctx, code, 0); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = models.StudentStatusActive
	}
	student := &models.Student{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		StudentCode:    code,
		Email:          strings.TrimSpace(req.Email),
		Phone:          req.Phone,
		GradeLevel:     req.GradeLevel,
		Status:         status,
		EnrollmentDate: req.EnrollmentDate,
		PhotoURL:       req.PhotoURL,
		Tags:           req.Tags,
	}
	created, err := s.repo.Create(ctx, student)
	if err != nil {
		return nil, storeError(err, "failed to create student")
	}
	s.logger.Info("student created", zap.Int64("student_id", created.ID), zap.String("student_code", created.StudentCode))
	return created, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id int64, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.StudentCode != nil {
		code := strings.TrimSpace(*req.StudentCode)
		if code != student.StudentCode {
			if err := s.ensureCodeFree(ctx, code, id); err != nil {
				return nil, err
			}
		}
		student.StudentCode = code
	}
	if req.FirstName != nil {
		student.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		student.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		student.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.GradeLevel != nil {
		student.GradeLevel = *req.GradeLevel
	}
	if req.Status != nil {
		student.Status = *req.Status
	}
	if req.EnrollmentDate != nil {
		student.EnrollmentDate = req.EnrollmentDate
	}
	if req.PhotoURL != nil {
		student.PhotoURL = *req.PhotoURL
	}
	if req.Tags != nil {
		student.Tags = req.Tags
	}
	updated, err := s.repo.Update(ctx, student)
	if err != nil {
		return nil, storeError(err, "failed to update student")
	}
	return updated, nil
}

// SetStatus switches a student between Active and Inactive.
func (s *StudentService) SetStatus(ctx context.Context, id int64, status models.StudentStatus) (*models.Student, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student status")
	}
	return s.Update(ctx, id, UpdateStudentRequest{Status: &status})
}

// Delete removes a student. Grades and attendance are left in place.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "failed to delete student")
	}
	return nil
}

func (s *StudentService) ensureCodeFree(ctx context.Context, code string, excludeID int64) error {
	existing, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return storeError(err, "failed to validate student code")
	}
	if existing != nil && existing.ID != excludeID {
		return appErrors.Clone(appErrors.ErrConflict, "student code already used")
	}
	return nil
}
