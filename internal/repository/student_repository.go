package repository

import (
	"context"
	"strings"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

// TableStudents holds the class roster.
const TableStudents = "students_c"

const (
	studentFirstName      = "first_name_c"
	studentLastName       = "last_name_c"
	studentCode           = "student_id_c"
	studentEmail          = "email_c"
	studentPhone          = "phone_c"
	studentGradeLevel     = "grade_level_c"
	studentStatus         = "status_c"
	studentEnrollmentDate = "enrollment_date_c"
	studentPhotoURL       = "photo_url_c"
)

var studentSortColumns = map[string]string{
	"first_name":      studentFirstName,
	"last_name":       studentLastName,
	"student_code":    studentCode,
	"grade_level":     studentGradeLevel,
	"enrollment_date": studentEnrollmentDate,
	"created_on":      apper.FieldCreatedOn,
}

// StudentRepository maps roster records to models.
type StudentRepository struct {
	table *Table
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(table *Table) *StudentRepository {
	return &StudentRepository{table: table}
}

// List returns a page of students plus the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	params := studentParams(filter)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		params.PagingInfo = &apper.PagingInfo{Limit: filter.PageSize, Offset: (page - 1) * filter.PageSize}
	}
	records, total, err := r.table.Fetch(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	students, err := decodeStudents(records)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// ListAll returns every student matching the filter, ignoring paging.
func (r *StudentRepository) ListAll(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	records, err := r.table.FetchAll(ctx, studentParams(filter), 0)
	if err != nil {
		return nil, err
	}
	return decodeStudents(records)
}

// FindByID returns the student or nil when missing.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	rec, err := r.table.GetByID(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	var student models.Student
	if err := decodeRecord(rec, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByCode returns the student holding the human-readable code.
func (r *StudentRepository) FindByCode(ctx context.Context, code string) (*models.Student, error) {
	records, _, err := r.table.Fetch(ctx, apper.FetchParams{
		Where:      []apper.Condition{apper.Where(studentCode, apper.OpEqualTo, code)},
		PagingInfo: &apper.PagingInfo{Limit: 1},
	})
	if err != nil {
		return nil, err
	}
	students, err := decodeStudents(records)
	if err != nil || len(students) == 0 {
		return nil, err
	}
	return &students[0], nil
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	res := r.table.Create(ctx, studentRecord(student))
	if err := writeError(res, "create student"); err != nil {
		return nil, err
	}
	var created models.Student
	if err := decodeRecord(res.Data, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update persists changed student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) (*models.Student, error) {
	rec := studentRecord(student)
	rec[apper.FieldID] = student.ID
	res := r.table.Update(ctx, rec)
	if err := writeError(res, "update student"); err != nil {
		return nil, err
	}
	var updated models.Student
	if err := decodeRecord(res.Data, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a student. Grades and attendance keep their dangling reference.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	return writeError(r.table.Delete(ctx, []int64{id}), "delete student")
}

func studentParams(filter models.StudentFilter) apper.FetchParams {
	params := apper.FetchParams{}
	if filter.Status != "" {
		params.Where = append(params.Where, apper.Where(studentStatus, apper.OpEqualTo, string(filter.Status)))
	}
	if filter.GradeLevel != "" {
		params.Where = append(params.Where, apper.Where(studentGradeLevel, apper.OpEqualTo, filter.GradeLevel))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		fields := []string{studentFirstName, studentLastName, studentCode, studentEmail}
		subs := make([]apper.SubGroup, len(fields))
		for i, f := range fields {
			subs[i] = apper.SubGroup{
				Conditions: []apper.Condition{apper.Where(f, apper.OpContains, search)},
				Operator:   apper.LogicOr,
			}
		}
		params.WhereGroups = []apper.WhereGroup{{Operator: apper.LogicOr, SubGroups: subs}}
	}

	column, ok := studentSortColumns[filter.SortBy]
	if !ok {
		column = studentLastName
	}
	direction := apper.SortAsc
	if strings.EqualFold(filter.SortOrder, "desc") {
		direction = apper.SortDesc
	}
	params.OrderBy = []apper.OrderBy{{FieldName: column, SortType: direction}}
	return params
}

func studentRecord(s *models.Student) apper.Record {
	rec := apper.Record{
		apper.FieldName:  strings.TrimSpace(s.FirstName + " " + s.LastName),
		studentFirstName: s.FirstName,
		studentLastName:  s.LastName,
		studentCode:      s.StudentCode,
		studentEmail:     s.Email,
		studentStatus:    string(s.Status),
	}
	setIfPresent(rec, "Tags", joinTags(s.Tags))
	setIfPresent(rec, studentPhone, s.Phone)
	setIfPresent(rec, studentGradeLevel, s.GradeLevel)
	setIfPresent(rec, studentEnrollmentDate, formatDatePtr(s.EnrollmentDate))
	setIfPresent(rec, studentPhotoURL, s.PhotoURL)
	return rec
}

func decodeStudents(records []apper.Record) ([]models.Student, error) {
	students := make([]models.Student, 0, len(records))
	for _, rec := range records {
		var s models.Student
		if err := decodeRecord(rec, &s); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, nil
}
