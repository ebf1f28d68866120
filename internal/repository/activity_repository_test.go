package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

func TestActivityRepositoryListFiltersAndOrders(t *testing.T) {
	backend := apper.NewMemoryBackend()
	backend.Seed(TableActivities,
		apper.Record{"title_c": "Parent call", "activity_type_c": "Call", "status_c": "Planned", "due_date_c": "2024-03-10"},
		apper.Record{"title_c": "Grade essays", "activity_type_c": "Task", "status_c": "Planned", "due_date_c": "2024-03-12", "related_to_c": map[string]interface{}{"Id": float64(3), "Name": "Grace"}},
		apper.Record{"title_c": "Staff meeting", "activity_type_c": "Meeting", "status_c": "Completed", "due_date_c": "2024-03-01"},
	)
	repo := NewActivityRepository(NewTable(apper.NewStaticHandle(backend), TableConfig{Name: TableActivities, Lookups: ActivityLookups, StudentField: activityRelatedTo}))
	ctx := context.Background()

	all, err := repo.List(ctx, models.ActivityFilter{Status: models.FilterAll, Type: models.FilterAll})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Grade essays", all[0].Title)
	require.NotNil(t, all[0].RelatedTo)
	assert.Equal(t, int64(3), all[0].RelatedTo.ID)
	assert.Nil(t, all[1].RelatedTo)

	planned, err := repo.List(ctx, models.ActivityFilter{Status: "Planned", Type: "Call"})
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, models.ActivityTypeCall, planned[0].Type)
}

func TestActivityRepositoryCreateWithRelatedStudent(t *testing.T) {
	backend := apper.NewMemoryBackend()
	repo := NewActivityRepository(NewTable(apper.NewStaticHandle(backend), TableConfig{Name: TableActivities, Lookups: ActivityLookups}))

	due := models.NewDate(mustDate(t, "2024-04-01").Time)
	created, err := repo.Create(context.Background(), &models.Activity{
		Title:     "Email guardian",
		Type:      models.ActivityTypeEmail,
		Status:    models.ActivityStatusPlanned,
		Priority:  models.ActivityPriorityHigh,
		DueDate:   &due,
		RelatedTo: &apper.Lookup{ID: 5},
	})
	require.NoError(t, err)
	require.NotNil(t, created.RelatedTo)
	assert.Equal(t, int64(5), created.RelatedTo.ID)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2024-04-01", created.DueDate.String())
}
