package repository

import (
	"context"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

// TableActivities holds teacher tasks and contacts.
const TableActivities = "activities_c"

const (
	activityTitle       = "title_c"
	activityType        = "activity_type_c"
	activityDueDate     = "due_date_c"
	activityStatus      = "status_c"
	activityPriority    = "priority_c"
	activityDescription = "description_c"
	activityRelatedTo   = "related_to_c"
)

// ActivityLookups are the lookup fields of the activities table.
var ActivityLookups = []string{activityRelatedTo}

// DefaultActivityLimit caps activity listings.
const DefaultActivityLimit = 100

// ActivityRepository maps activity records to models.
type ActivityRepository struct {
	table *Table
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(table *Table) *ActivityRepository {
	return &ActivityRepository{table: table}
}

// List returns activities by due date descending. "All" disables a filter.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	params := apper.FetchParams{
		OrderBy:    []apper.OrderBy{{FieldName: activityDueDate, SortType: apper.SortDesc}},
		PagingInfo: &apper.PagingInfo{Limit: limit},
	}
	if filter.Status != "" && filter.Status != models.FilterAll {
		params.Where = append(params.Where, apper.Where(activityStatus, apper.OpEqualTo, filter.Status))
	}
	if filter.Type != "" && filter.Type != models.FilterAll {
		params.Where = append(params.Where, apper.Where(activityType, apper.OpEqualTo, filter.Type))
	}
	if filter.StudentID > 0 {
		params.Where = append(params.Where, apper.Where(activityRelatedTo, apper.OpEqualTo, filter.StudentID))
	}
	records, _, err := r.table.Fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	activities := make([]models.Activity, 0, len(records))
	for _, rec := range records {
		var a models.Activity
		if err := decodeRecord(rec, &a); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// FindByID returns the activity or nil when missing.
func (r *ActivityRepository) FindByID(ctx context.Context, id int64) (*models.Activity, error) {
	rec, err := r.table.GetByID(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	var a models.Activity
	if err := decodeRecord(rec, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create persists a new activity.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) (*models.Activity, error) {
	res := r.table.Create(ctx, activityRecord(activity))
	if err := writeError(res, "create activity"); err != nil {
		return nil, err
	}
	var created models.Activity
	if err := decodeRecord(res.Data, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update persists changed activity fields.
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) (*models.Activity, error) {
	rec := activityRecord(activity)
	rec[apper.FieldID] = activity.ID
	res := r.table.Update(ctx, rec)
	if err := writeError(res, "update activity"); err != nil {
		return nil, err
	}
	var updated models.Activity
	if err := decodeRecord(res.Data, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an activity.
func (r *ActivityRepository) Delete(ctx context.Context, id int64) error {
	return writeError(r.table.Delete(ctx, []int64{id}), "delete activity")
}

func activityRecord(a *models.Activity) apper.Record {
	rec := apper.Record{
		apper.FieldName:     a.Title,
		activityTitle:       a.Title,
		activityType:        string(a.Type),
		activityStatus:      string(a.Status),
		activityPriority:    string(a.Priority),
		activityDescription: a.Description,
	}
	setIfPresent(rec, activityDueDate, formatDatePtr(a.DueDate))
	if a.RelatedTo != nil {
		rec[activityRelatedTo] = a.RelatedTo.ID
	}
	return rec
}
