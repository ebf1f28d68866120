package dto

import (
	"time"

	"github.com/noah-isme/classroom-api/internal/models"
)

// DashboardSummary is the class overview shown on the landing page.
type DashboardSummary struct {
	TotalStudents     int               `json:"totalStudents"`
	ActiveStudents    int               `json:"activeStudents"`
	AverageGPA        float64           `json:"averageGpa"`
	AverageAttendance int               `json:"averageAttendance"`
	SampleSize        int               `json:"sampleSize"`
	RecentActivities  []models.Activity `json:"recentActivities"`
	GeneratedAt       time.Time         `json:"generatedAt"`
}
