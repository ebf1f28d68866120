package repository

import (
	"context"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

// TableGrades holds scored assessments.
const TableGrades = "grades_c"

const (
	gradeStudent    = "student_id_c"
	gradeAssignment = "assignment_name_c"
	gradeCategory   = "category_c"
	gradeScore      = "score_c"
	gradeMaxScore   = "max_score_c"
	gradePercentage = "percentage_c"
	gradeLetter     = "letter_grade_c"
	gradeNotes      = "notes_c"
	gradeDate       = "date_c"
)

// GradeLookups are the lookup fields of the grades table.
var GradeLookups = []string{gradeStudent}

// GradeRepository maps grade records to models.
type GradeRepository struct {
	table *Table
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(table *Table) *GradeRepository {
	return &GradeRepository{table: table}
}

// List returns grades matching the filter, newest assignment first.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	params := apper.FetchParams{
		OrderBy: []apper.OrderBy{{FieldName: gradeDate, SortType: apper.SortDesc}},
	}
	if filter.StudentID > 0 {
		params.Where = append(params.Where, apper.Where(gradeStudent, apper.OpEqualTo, filter.StudentID))
	}
	if filter.Category != "" {
		params.Where = append(params.Where, apper.Where(gradeCategory, apper.OpEqualTo, string(filter.Category)))
	}
	records, err := r.table.FetchAll(ctx, params, 0)
	if err != nil {
		return nil, err
	}
	return decodeGrades(records)
}

// FindByID returns the grade or nil when missing.
func (r *GradeRepository) FindByID(ctx context.Context, id int64) (*models.Grade, error) {
	rec, err := r.table.GetByID(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	var grade models.Grade
	if err := decodeRecord(rec, &grade); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Create persists one grade.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) (*models.Grade, error) {
	res := r.table.Create(ctx, gradeRecord(grade))
	if err := writeError(res, "create grade"); err != nil {
		return nil, err
	}
	var created models.Grade
	if err := decodeRecord(res.Data, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateBatch persists several grades in one call. Grades the store rejects
// are reported through the returned messages while the rest are kept.
func (r *GradeRepository) CreateBatch(ctx context.Context, grades []models.Grade) ([]models.Grade, []string, error) {
	records := make([]apper.Record, len(grades))
	for i := range grades {
		records[i] = gradeRecord(&grades[i])
	}
	res := r.table.Create(ctx, records...)
	if res.Unavailable {
		return nil, res.Messages, writeError(res, "create grades")
	}
	created := make([]models.Grade, 0, len(res.Successful))
	for _, ok := range res.Successful {
		var g models.Grade
		if err := decodeRecord(ok.Data, &g); err != nil {
			return nil, res.Messages, err
		}
		created = append(created, g)
	}
	return created, res.Messages, nil
}

// Update persists a grade including its derived fields.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) (*models.Grade, error) {
	rec := gradeRecord(grade)
	rec[apper.FieldID] = grade.ID
	res := r.table.Update(ctx, rec)
	if err := writeError(res, "update grade"); err != nil {
		return nil, err
	}
	var updated models.Grade
	if err := decodeRecord(res.Data, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a grade belonging to studentID.
func (r *GradeRepository) Delete(ctx context.Context, id, studentID int64) error {
	return writeError(r.table.Delete(ctx, []int64{id}, studentID), "delete grade")
}

func gradeRecord(g *models.Grade) apper.Record {
	rec := apper.Record{
		apper.FieldName: g.AssignmentName,
		gradeStudent:    g.StudentID,
		gradeAssignment: g.AssignmentName,
		gradeCategory:   string(g.Category),
		gradeScore:      g.Score,
		gradeMaxScore:   g.MaxScore,
		gradePercentage: g.Percentage,
		gradeLetter:     g.LetterGrade,
		gradeNotes:      g.Notes,
	}
	setIfPresent(rec, "Tags", joinTags(g.Tags))
	if !g.Date.IsZero() {
		rec[gradeDate] = g.Date.String()
	}
	return rec
}

func decodeGrades(records []apper.Record) ([]models.Grade, error) {
	grades := make([]models.Grade, 0, len(records))
	for _, rec := range records {
		var g models.Grade
		if err := decodeRecord(rec, &g); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, nil
}
