package repository

import (
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/events"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

// Tables groups the class tables that share one store handle.
type Tables struct {
	Students   *Table
	Grades     *Table
	Attendance *Table
	Activities *Table
}

// NewTables builds every class table on handle. Writes publish to bus and
// calls report to metrics; both may be nil.
func NewTables(handle StoreHandle, bus *events.Bus, metrics StoreObserver, logger *zap.Logger) Tables {
	table := func(name, studentField string, lookups []string) *Table {
		return NewTable(handle, TableConfig{
			Name:         name,
			Lookups:      lookups,
			StudentField: studentField,
			Bus:          bus,
			Metrics:      metrics,
			Logger:       logger,
		})
	}
	return Tables{
		Students:   table(TableStudents, apper.FieldID, nil),
		Grades:     table(TableGrades, gradeStudent, GradeLookups),
		Attendance: table(TableAttendance, attendanceStudent, AttendanceLookups),
		Activities: table(TableActivities, activityRelatedTo, ActivityLookups),
	}
}

// Names lists the remote table names.
func (t Tables) Names() []string {
	return []string{TableStudents, TableGrades, TableAttendance, TableActivities}
}
