package models

import (
	"time"

	"github.com/noah-isme/classroom-api/pkg/apper"
)

type ActivityType string

const (
	ActivityTypeMeeting ActivityType = "Meeting"
	ActivityTypeCall    ActivityType = "Call"
	ActivityTypeEmail   ActivityType = "Email"
	ActivityTypeTask    ActivityType = "Task"
	ActivityTypeOther   ActivityType = "Other"
)

type ActivityStatus string

const (
	ActivityStatusPlanned   ActivityStatus = "Planned"
	ActivityStatusCompleted ActivityStatus = "Completed"
	ActivityStatusCancelled ActivityStatus = "Cancelled"
)

type ActivityPriority string

const (
	ActivityPriorityHigh   ActivityPriority = "High"
	ActivityPriorityMedium ActivityPriority = "Medium"
	ActivityPriorityLow    ActivityPriority = "Low"
)

// FilterAll disables a list filter.
const FilterAll = "All"

// Activity is a logged or planned teacher task, optionally tied to a student.
type Activity struct {
	ID          int64            `store:"Id" json:"id"`
	Name        string           `store:"Name" json:"name,omitempty"`
	Title       string           `store:"title_c" json:"title"`
	Type        ActivityType     `store:"activity_type_c" json:"type"`
	DueDate     *Date            `store:"due_date_c" json:"due_date,omitempty"`
	Status      ActivityStatus   `store:"status_c" json:"status"`
	Priority    ActivityPriority `store:"priority_c" json:"priority"`
	Description string           `store:"description_c" json:"description,omitempty"`
	RelatedTo   *apper.Lookup    `store:"related_to_c" json:"related_to,omitempty"`
	CreatedOn   *time.Time       `store:"CreatedOn" json:"created_on,omitempty"`
	ModifiedOn  *time.Time       `store:"ModifiedOn" json:"modified_on,omitempty"`
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	Status    string
	Type      string
	StudentID int64
	Limit     int
}
