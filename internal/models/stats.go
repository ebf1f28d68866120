package models

import "time"

// StudentStats holds the derived figures shown on a student's profile.
type StudentStats struct {
	StudentID      int64     `json:"student_id"`
	GPA            float64   `json:"gpa"`
	AttendanceRate int       `json:"attendance_rate"`
	GradeCount     int       `json:"grade_count"`
	AttendanceDays int       `json:"attendance_days"`
	ComputedAt     time.Time `json:"computed_at"`
}

// SystemMetrics is a point-in-time summary of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio              float64   `json:"cache_hit_ratio"`
	CacheHits                  uint64    `json:"cache_hits"`
	CacheMisses                uint64    `json:"cache_misses"`
	RequestsTotal              uint64    `json:"requests_total"`
	AverageRequestDurationMs   float64   `json:"average_request_duration_ms"`
	StoreCalls                 uint64    `json:"store_calls"`
	StoreCallErrors            uint64    `json:"store_call_errors"`
	AverageStoreCallDurationMs float64   `json:"average_store_call_duration_ms"`
	BatchFailures              uint64    `json:"batch_failures"`
	Goroutines                 int       `json:"goroutines"`
	GeneratedAt                time.Time `json:"generated_at"`
}
