package models

import (
	"strings"
	"time"

	"github.com/noah-isme/classroom-api/pkg/apper"
)

// StudentStatus marks whether a student is on the active roster.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "Active"
	StudentStatusInactive StudentStatus = "Inactive"
)

// Valid returns true when the status is a supported value.
func (s StudentStatus) Valid() bool {
	return s == StudentStatusActive || s == StudentStatusInactive
}

// Student represents a learner on the class roster.
type Student struct {
	ID             int64         `store:"Id" json:"id"`
	Name           string        `store:"Name" json:"name,omitempty"`
	Tags           []string      `store:"Tags" json:"tags,omitempty"`
	FirstName      string        `store:"first_name_c" json:"first_name"`
	LastName       string        `store:"last_name_c" json:"last_name"`
	StudentCode    string        `store:"student_id_c" json:"student_code"`
	Email          string        `store:"email_c" json:"email"`
	Phone          string        `store:"phone_c" json:"phone,omitempty"`
	GradeLevel     string        `store:"grade_level_c" json:"grade_level"`
	Status         StudentStatus `store:"status_c" json:"status"`
	EnrollmentDate *Date         `store:"enrollment_date_c" json:"enrollment_date,omitempty"`
	PhotoURL       string        `store:"photo_url_c" json:"photo_url,omitempty"`
	Owner          *apper.Lookup `store:"Owner" json:"owner,omitempty"`
	CreatedOn      *time.Time    `store:"CreatedOn" json:"created_on,omitempty"`
	CreatedBy      *apper.Lookup `store:"CreatedBy" json:"created_by,omitempty"`
	ModifiedOn     *time.Time    `store:"ModifiedOn" json:"modified_on,omitempty"`
	ModifiedBy     *apper.Lookup `store:"ModifiedBy" json:"modified_by,omitempty"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// IsActive reports whether the student counts toward class statistics.
func (s Student) IsActive() bool {
	return s.Status == StudentStatusActive
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Status     StudentStatus
	GradeLevel string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
