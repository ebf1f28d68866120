package models

import "time"

// AttendanceStatus is the state of one calendar cell. The empty value means
// no record exists for the (student, date) pair.
type AttendanceStatus string

const (
	AttendanceStatusNone    AttendanceStatus = ""
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
	AttendanceStatusTardy   AttendanceStatus = "Tardy"
)

// Valid returns true when the status can be persisted.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusTardy:
		return true
	default:
		return false
	}
}

// Next advances the calendar cycle None → Present → Absent → Tardy → None.
// Unknown values restart the cycle at Present.
func (s AttendanceStatus) Next() AttendanceStatus {
	switch s {
	case AttendanceStatusPresent:
		return AttendanceStatusAbsent
	case AttendanceStatusAbsent:
		return AttendanceStatusTardy
	case AttendanceStatusTardy:
		return AttendanceStatusNone
	default:
		return AttendanceStatusPresent
	}
}

// Favorable reports whether the status counts toward the attendance rate.
func (s AttendanceStatus) Favorable() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusTardy
}

// AttendanceRecord is the single record for one student on one day.
type AttendanceRecord struct {
	ID         int64            `store:"Id" json:"id"`
	StudentID  int64            `store:"student_id_c" json:"student_id"`
	Date       Date             `store:"date_c" json:"date"`
	Status     AttendanceStatus `store:"status_c" json:"status"`
	Notes      string           `store:"notes_c" json:"notes,omitempty"`
	RecordedAt *time.Time       `store:"recorded_at_c" json:"recorded_at,omitempty"`
	CreatedOn  *time.Time       `store:"CreatedOn" json:"created_on,omitempty"`
	ModifiedOn *time.Time       `store:"ModifiedOn" json:"modified_on,omitempty"`
}

// AttendanceFilter narrows attendance listings. From and To are inclusive.
type AttendanceFilter struct {
	StudentID int64
	Date      *Date
	From      *Date
	To        *Date
	Status    AttendanceStatus
}

// CalendarDay is one cell of a student's attendance calendar.
type CalendarDay struct {
	Date     Date             `json:"date"`
	Status   AttendanceStatus `json:"status"`
	RecordID int64            `json:"record_id,omitempty"`
	IsToday  bool             `json:"is_today"`
	Editable bool             `json:"editable"`
}

// AttendanceCalendar is the month view of a student's attendance.
type AttendanceCalendar struct {
	StudentID int64         `json:"student_id"`
	Month     string        `json:"month"`
	Days      []CalendarDay `json:"days"`
	Rate      int           `json:"rate"`
}
