package dto

import (
	"time"

	"github.com/noah-isme/classroom-api/internal/models"
)

// Performance tiers assigned to each student row.
const (
	TierExcellent      = "Excellent"
	TierGood           = "Good"
	TierNeedsAttention = "Needs Attention"
)

// ClassReport aggregates the class performance report.
type ClassReport struct {
	Overview           ReportOverview       `json:"overview"`
	GradeDistribution  []GradeBucket        `json:"gradeDistribution"`
	CategoryAnalysis   []CategoryAverage    `json:"categoryAnalysis"`
	MonthlyAttendance  []MonthlyAttendance  `json:"monthlyAttendance"`
	StudentPerformance []StudentPerformance `json:"studentPerformance"`
	GeneratedAt        time.Time            `json:"generatedAt"`
}

// ReportOverview holds the headline numbers. TotalStudents counts the active
// roster; RosterSize includes inactive students.
type ReportOverview struct {
	TotalStudents     int     `json:"totalStudents"`
	RosterSize        int     `json:"rosterSize"`
	AverageGPA        float64 `json:"averageGpa"`
	AverageAttendance int     `json:"averageAttendance"`
	TotalGrades       int     `json:"totalGrades"`
}

// GradeBucket counts grades sharing a leading letter.
type GradeBucket struct {
	Grade string `json:"grade"`
	Count int    `json:"count"`
}

// CategoryAverage is the rounded mean percentage for one category.
type CategoryAverage struct {
	Category models.GradeCategory `json:"category"`
	Average  int                  `json:"average"`
	Count    int                  `json:"count"`
}

// MonthlyAttendance is the present share for one YYYY-MM month.
type MonthlyAttendance struct {
	Month   string `json:"month"`
	Rate    int    `json:"rate"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Tardy   int    `json:"tardy"`
}

// StudentPerformance is one row of the performance table.
type StudentPerformance struct {
	StudentID      int64   `json:"studentId"`
	Name           string  `json:"name"`
	StudentCode    string  `json:"studentCode"`
	GPA            float64 `json:"gpa"`
	AttendanceRate int     `json:"attendanceRate"`
	GradeCount     int     `json:"gradeCount"`
	Tier           string  `json:"tier"`
}

// ExportJobRequest asks for an asynchronous report export.
type ExportJobRequest struct {
	Format models.ExportFormat `json:"format" validate:"required,oneof=text csv pdf"`
}

// ExportJobResponse exposes export job progress.
type ExportJobResponse struct {
	ID          string              `json:"id"`
	Format      models.ExportFormat `json:"format"`
	Status      models.ExportStatus `json:"status"`
	DownloadURL string              `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time          `json:"expiresAt,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	FinishedAt  *time.Time          `json:"finishedAt,omitempty"`
}
