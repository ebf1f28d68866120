package repository

import (
	"context"
	"time"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

// TableAttendance holds one record per student per day.
const TableAttendance = "attendance_c"

const (
	attendanceStudent    = "student_id_c"
	attendanceDate       = "date_c"
	attendanceStatus     = "status_c"
	attendanceNotes      = "notes_c"
	attendanceRecordedAt = "recorded_at_c"
)

// AttendanceLookups are the lookup fields of the attendance table.
var AttendanceLookups = []string{attendanceStudent}

// AttendanceRepository maps attendance records to models.
type AttendanceRepository struct {
	table *Table
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(table *Table) *AttendanceRepository {
	return &AttendanceRepository{table: table}
}

// List returns attendance matching the filter, newest day first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	params := apper.FetchParams{
		OrderBy: []apper.OrderBy{{FieldName: attendanceDate, SortType: apper.SortDesc}},
	}
	if filter.StudentID > 0 {
		params.Where = append(params.Where, apper.Where(attendanceStudent, apper.OpEqualTo, filter.StudentID))
	}
	if filter.Date != nil {
		params.Where = append(params.Where, apper.Where(attendanceDate, apper.OpEqualTo, filter.Date.String()))
	}
	if filter.From != nil {
		params.Where = append(params.Where, apper.Where(attendanceDate, apper.OpGreaterThanOrEqualTo, filter.From.String()))
	}
	if filter.To != nil {
		params.Where = append(params.Where, apper.Where(attendanceDate, apper.OpLessThanOrEqualTo, filter.To.String()))
	}
	if filter.Status != models.AttendanceStatusNone {
		params.Where = append(params.Where, apper.Where(attendanceStatus, apper.OpEqualTo, string(filter.Status)))
	}
	records, err := r.table.FetchAll(ctx, params, 0)
	if err != nil {
		return nil, err
	}
	return decodeAttendance(records)
}

// FindByID returns the record or nil when missing.
func (r *AttendanceRepository) FindByID(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	rec, err := r.table.GetByID(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	var out models.AttendanceRecord
	if err := decodeRecord(rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByStudentDate returns the single record for the cell or nil. A failed
// lookup is an error, never a nil record.
func (r *AttendanceRepository) FindByStudentDate(ctx context.Context, studentID int64, date models.Date) (*models.AttendanceRecord, error) {
	records, _, err := r.table.Fetch(ctx, apper.FetchParams{
		Where: []apper.Condition{
			apper.Where(attendanceStudent, apper.OpEqualTo, studentID),
			apper.Where(attendanceDate, apper.OpEqualTo, date.String()),
		},
		PagingInfo: &apper.PagingInfo{Limit: 1},
	})
	if err != nil {
		return nil, err
	}
	found, err := decodeAttendance(records)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

// Create persists a new record.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	res := r.table.Create(ctx, attendanceRecord(record))
	if err := writeError(res, "record attendance"); err != nil {
		return nil, err
	}
	var created models.AttendanceRecord
	if err := decodeRecord(res.Data, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update rewrites status, notes and recorded-at of an existing record.
func (r *AttendanceRepository) Update(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	rec := attendanceRecord(record)
	rec[apper.FieldID] = record.ID
	res := r.table.Update(ctx, rec)
	if err := writeError(res, "update attendance"); err != nil {
		return nil, err
	}
	var updated models.AttendanceRecord
	if err := decodeRecord(res.Data, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a record belonging to studentID.
func (r *AttendanceRepository) Delete(ctx context.Context, id, studentID int64) error {
	return writeError(r.table.Delete(ctx, []int64{id}, studentID), "delete attendance")
}

func attendanceRecord(a *models.AttendanceRecord) apper.Record {
	recordedAt := time.Now().UTC()
	if a.RecordedAt != nil && !a.RecordedAt.IsZero() {
		recordedAt = a.RecordedAt.UTC()
	}
	return apper.Record{
		apper.FieldName:      a.Date.String(),
		attendanceStudent:    a.StudentID,
		attendanceDate:       a.Date.String(),
		attendanceStatus:     string(a.Status),
		attendanceNotes:      a.Notes,
		attendanceRecordedAt: recordedAt.Format(time.RFC3339),
	}
}

func decodeAttendance(records []apper.Record) ([]models.AttendanceRecord, error) {
	out := make([]models.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		var a models.AttendanceRecord
		if err := decodeRecord(rec, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
