package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/jobs"
)

// ExportJobType tags queue jobs produced by ExportService.
const ExportJobType = "class_report_export"

type reportRenderer interface {
	Render(ctx context.Context, format models.ExportFormat) (*RenderedReport, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ExportServiceConfig tunes export behaviour.
type ExportServiceConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Reports reportRenderer
	Storage fileStorage
	Signer  downloadSigner
	Logger  *zap.Logger
	Config  ExportServiceConfig
}

// ExportDownload is a resolved, ready to stream export file.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService runs class report exports in the background and serves the
// results through signed download links.
type ExportService struct {
	reports reportRenderer
	storage fileStorage
	signer  downloadSigner
	queue   jobDispatcher
	logger  *zap.Logger
	now     func() time.Time
	cfg     ExportServiceConfig

	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
}

// NewExportService constructs an ExportService. A queue must be attached
// with UseQueue before CreateJob is called.
func NewExportService(params ExportServiceParams) *ExportService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports: params.Reports,
		storage: params.Storage,
		signer:  params.Signer,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
		jobs:    make(map[string]*models.ExportJob),
	}
}

// UseQueue attaches the dispatcher that runs Handle.
func (s *ExportService) UseQueue(queue jobDispatcher) {
	s.mu.Lock()
	s.queue = queue
	s.mu.Unlock()
}

// CreateJob registers an export and enqueues it.
func (s *ExportService) CreateJob(ctx context.Context, format models.ExportFormat) (*dto.ExportJobResponse, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	job := &models.ExportJob{
		ID:        uuid.NewString(),
		Format:    format,
		Status:    models.ExportStatusQueued,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	queue := s.queue
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if queue == nil {
		s.fail(job.ID, "export queue not configured")
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "export queue unavailable")
	}
	if err := queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType, Payload: format}); err != nil {
		s.fail(job.ID, "failed to enqueue export")
		s.logger.Warn("export enqueue failed", zap.String("export_id", job.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "export queue unavailable")
	}
	return s.Status(ctx, job.ID)
}

// Status exposes job progress to clients.
func (s *ExportService) Status(_ context.Context, id string) (*dto.ExportJobResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	resp := &dto.ExportJobResponse{
		ID:         job.ID,
		Format:     job.Format,
		Status:     job.Status,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.Status == models.ExportStatusFinished {
		resp.DownloadURL = s.downloadURL(job.Token)
		resp.ExpiresAt = job.ExpiresAt
	}
	return resp, nil
}

// Handle processes one queued export. Returned errors are retried by the queue.
func (s *ExportService) Handle(ctx context.Context, qj jobs.Job) error {
	s.mu.Lock()
	job, ok := s.jobs[qj.ID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("dropping unknown export job", zap.String("export_id", qj.ID))
		return nil
	}
	job.Status = models.ExportStatusProcessing
	job.Attempts++
	format := job.Format
	s.mu.Unlock()

	rendered, err := s.reports.Render(ctx, format)
	if err != nil {
		s.requeue(qj.ID, err)
		return err
	}
	relPath := path.Join(qj.ID, rendered.Filename)
	if _, err := s.storage.Save(relPath, rendered.Data); err != nil {
		s.requeue(qj.ID, err)
		return err
	}
	token, expiresAt, err := s.signer.Generate(qj.ID, relPath)
	if err != nil {
		s.requeue(qj.ID, err)
		return err
	}

	finished := s.now().UTC()
	s.mu.Lock()
	job.Status = models.ExportStatusFinished
	job.Path = relPath
	job.Token = token
	job.ExpiresAt = &expiresAt
	job.Error = ""
	job.FinishedAt = &finished
	s.mu.Unlock()

	s.logger.Info("export finished",
		zap.String("export_id", qj.ID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(rendered.Data)),
	)
	return nil
}

// Fail marks a job as permanently failed. It is the queue's exhaustion hook.
func (s *ExportService) Fail(qj jobs.Job, err error) {
	msg := "export failed"
	if err != nil {
		msg = err.Error()
	}
	s.fail(qj.ID, msg)
}

// ResolveDownload validates a token and opens the stored export file.
func (s *ExportService) ResolveDownload(_ context.Context, token string) (*ExportDownload, error) {
	id, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}

	s.mu.RLock()
	job, ok := s.jobs[id]
	var status models.ExportStatus
	var stored, format string
	if ok {
		status, stored, format = job.Status, job.Path, string(job.Format)
	}
	s.mu.RUnlock()

	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	if status != models.ExportStatusFinished || stored != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    path.Base(relPath),
		ContentType: exportContentType(format),
		ExpiresAt:   expiresAt,
	}, nil
}

// StartCleanup purges expired exports until ctx is cancelled.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Cleanup forgets jobs finished longer than ResultTTL ago and deletes their
// files. It returns the number of jobs removed.
func (s *ExportService) Cleanup() int {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	var expired []*models.ExportJob

	s.mu.Lock()
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			expired = append(expired, job)
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	for _, job := range expired {
		if job.Path == "" {
			continue
		}
		if err := s.storage.Delete(job.Path); err != nil {
			s.logger.Warn("export cleanup delete failed", zap.String("export_id", job.ID), zap.Error(err))
		}
	}
	if _, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("export filesystem cleanup failed", zap.Error(err))
	}
	return len(expired)
}

func (s *ExportService) requeue(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = models.ExportStatusQueued
		job.Error = err.Error()
	}
	s.logger.Warn("export attempt failed", zap.String("export_id", id), zap.Error(err))
}

func (s *ExportService) fail(id, msg string) {
	finished := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = models.ExportStatusFailed
		job.Error = msg
		job.FinishedAt = &finished
	}
}

func (s *ExportService) downloadURL(token string) string {
	return fmt.Sprintf("%s/reports/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
}

func exportContentType(format string) string {
	switch models.ExportFormat(format) {
	case models.ExportFormatCSV:
		return "text/csv"
	case models.ExportFormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}
