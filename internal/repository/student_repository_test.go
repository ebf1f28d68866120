package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

func newStudentRepo(t *testing.T) (*StudentRepository, *apper.MemoryBackend) {
	t.Helper()
	backend := apper.NewMemoryBackend()
	backend.Seed(TableStudents,
		apper.Record{
			"Id": int64(1), "first_name_c": "Ada", "last_name_c": "Lovelace", "student_id_c": "S-001",
			"email_c": "ada@example.com", "status_c": "Active", "Tags": "math, honors",
			"enrollment_date_c": "2023-09-01",
			"Owner":             map[string]interface{}{"Id": float64(12), "Name": "Ms. Byron"},
			"CreatedOn":         "2023-09-01T08:00:00Z",
		},
		apper.Record{"Id": int64(2), "first_name_c": "Alan", "last_name_c": "Turing", "student_id_c": "S-002", "email_c": "alan@example.com", "status_c": "Inactive"},
		apper.Record{"Id": int64(3), "first_name_c": "Grace", "last_name_c": "Hopper", "student_id_c": "S-003", "email_c": "grace@navy.mil", "status_c": "Active"},
	)
	table := NewTable(apper.NewStaticHandle(backend), TableConfig{Name: TableStudents, StudentField: apper.FieldID})
	return NewStudentRepository(table), backend
}

func TestStudentRepositoryFindByIDDecodesRecord(t *testing.T) {
	repo, _ := newStudentRepo(t)

	student, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "Ada Lovelace", student.FullName())
	assert.Equal(t, []string{"math", "honors"}, student.Tags)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	require.NotNil(t, student.EnrollmentDate)
	assert.Equal(t, "2023-09-01", student.EnrollmentDate.String())
	require.NotNil(t, student.Owner)
	assert.Equal(t, apper.Lookup{ID: 12, Name: "Ms. Byron"}, *student.Owner)
	require.NotNil(t, student.CreatedOn)
	assert.Equal(t, 2023, student.CreatedOn.Year())

	missing, err := repo.FindByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStudentRepositoryListSearchesAcrossFields(t *testing.T) {
	repo, _ := newStudentRepo(t)

	students, total, err := repo.List(context.Background(), models.StudentFilter{Search: "navy"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Grace", students[0].FirstName)

	students, total, err = repo.List(context.Background(), models.StudentFilter{Status: models.StudentStatusActive, Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Hopper", students[0].LastName)
}

func TestStudentRepositoryCreateAndFindByCode(t *testing.T) {
	repo, _ := newStudentRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Student{
		FirstName:   "Katherine",
		LastName:    "Johnson",
		StudentCode: "S-004",
		Email:       "kj@example.com",
		Status:      models.StudentStatusActive,
		Tags:        []string{"science"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, "Katherine Johnson", created.Name)
	assert.Equal(t, []string{"science"}, created.Tags)

	found, err := repo.FindByCode(ctx, "S-004")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
}

func TestStudentRepositoryUpdateMissingReturnsBatchError(t *testing.T) {
	repo, _ := newStudentRepo(t)

	_, err := repo.Update(context.Background(), &models.Student{ID: 42, FirstName: "Nobody", Status: models.StudentStatusActive})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Record 42 does not exist")
}
