package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/apper"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

func TestGradeRepositoryListDecodesLookupObjects(t *testing.T) {
	backend := apper.NewMemoryBackend()
	backend.Seed(TableGrades,
		apper.Record{"student_id_c": map[string]interface{}{"Id": float64(1), "Name": "Ada"}, "score_c": 85.0, "max_score_c": 100.0, "percentage_c": 85.0, "letter_grade_c": "B", "category_c": "Quiz", "date_c": "2024-02-01"},
		apper.Record{"student_id_c": float64(1), "score_c": 40.0, "max_score_c": 50.0, "percentage_c": 80.0, "letter_grade_c": "B-", "category_c": "Test", "date_c": "2024-03-01"},
		apper.Record{"student_id_c": float64(2), "score_c": 10.0, "max_score_c": 10.0, "category_c": "Quiz", "date_c": "2024-01-01"},
	)
	repo := NewGradeRepository(newGradesTable(t, backend, nil, nil))

	grades, err := repo.List(context.Background(), models.GradeFilter{StudentID: 1})
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Equal(t, "2024-03-01", grades[0].Date.String())
	assert.Equal(t, int64(1), grades[1].StudentID)
	assert.Equal(t, 85, grades[1].Percentage)

	quizzes, err := repo.List(context.Background(), models.GradeFilter{Category: models.GradeCategoryQuiz})
	require.NoError(t, err)
	assert.Len(t, quizzes, 2)
}

func TestGradeRepositoryCreateBatchKeepsSuccesses(t *testing.T) {
	backend := apper.NewMemoryBackend(apper.WithValidator(TableGrades, func(rec apper.Record) []apper.FieldError {
		if rec["assignment_name_c"] == "" {
			return []apper.FieldError{{FieldLabel: "Assignment Name", Message: "cannot be blank"}}
		}
		return nil
	}))
	repo := NewGradeRepository(newGradesTable(t, backend, nil, nil))

	created, messages, err := repo.CreateBatch(context.Background(), []models.Grade{
		{StudentID: 1, AssignmentName: "Essay 1", Score: 9, MaxScore: 10, Percentage: 90, LetterGrade: "A-"},
		{StudentID: 1, AssignmentName: "", Score: 5, MaxScore: 10, Percentage: 50, LetterGrade: "F"},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Essay 1", created[0].AssignmentName)
	assert.Equal(t, []string{"Assignment Name: cannot be blank"}, messages)
}

func TestGradeRepositoryDeleteMissing(t *testing.T) {
	repo := NewGradeRepository(newGradesTable(t, apper.NewMemoryBackend(), nil, nil))

	err := repo.Delete(context.Background(), 5, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrBatchFailed)
}
