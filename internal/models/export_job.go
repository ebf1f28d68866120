package models

import "time"

// ExportFormat enumerates report export encodings.
type ExportFormat string

const (
	ExportFormatText ExportFormat = "text"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
)

// Valid returns true for supported formats.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatText || f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob tracks one asynchronous report export.
type ExportJob struct {
	ID         string
	Format     ExportFormat
	Status     ExportStatus
	Path       string
	Token      string
	ExpiresAt  *time.Time
	Error      string
	Attempts   int
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// Done reports whether the job reached a terminal state.
func (j ExportJob) Done() bool {
	return j.Status == ExportStatusFinished || j.Status == ExportStatusFailed
}
