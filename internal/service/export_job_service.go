package service

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
	"github.com/noah-isme/userflow-api/pkg/jobs"
)

// ExportJobStore keeps export job state in memory. Jobs do not survive a
// restart; their files are removed by the cleanup schedule.
type ExportJobStore struct {
	mu   sync.RWMutex
	jobs map[string]models.ExportJob
}

// NewExportJobStore constructs an empty store.
func NewExportJobStore() *ExportJobStore {
	return &ExportJobStore{jobs: make(map[string]models.ExportJob)}
}

// Create stores a new job.
func (s *ExportJobStore) Create(job models.ExportJob) {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
}

// Get returns a copy of the job.
func (s *ExportJobStore) Get(id string) (models.ExportJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Update mutates a job in place under the lock.
func (s *ExportJobStore) Update(id string, fn func(*models.ExportJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(&job)
	s.jobs[id] = job
	return true
}

// FinishedBefore lists terminal jobs completed before cutoff.
func (s *ExportJobStore) FinishedBefore(cutoff time.Time) []models.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ExportJob, 0)
	for _, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.Before(*out[j].FinishedAt) })
	return out
}

// Remove deletes a job.
func (s *ExportJobStore) Remove(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportRenderer interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
	ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportJobService orchestrates the export job lifecycle.
type ExportJobService struct {
	store     *ExportJobStore
	queue     jobDispatcher
	exporter  exportRenderer
	recorder  auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	resultTTL time.Duration
	now       func() time.Time
}

// NewExportJobService constructs the export job service.
func NewExportJobService(store *ExportJobStore, queue jobDispatcher, exporter exportRenderer, recorder auditWriter, metrics *MetricsService, v *validator.Validate, resultTTL time.Duration, logger *zap.Logger) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if v == nil {
		v = NewValidator()
	}
	if store == nil {
		store = NewExportJobStore()
	}
	if resultTTL <= 0 {
		resultTTL = 24 * time.Hour
	}
	return &ExportJobService{
		store:     store,
		queue:     queue,
		exporter:  exporter,
		recorder:  recorder,
		metrics:   metrics,
		validator: v,
		logger:    logger,
		resultTTL: resultTTL,
		now:       time.Now,
	}
}

// CreateJob validates the request, stores the job and enqueues rendering.
func (s *ExportJobService) CreateJob(ctx context.Context, actor *models.Actor, req models.ExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	createdBy := ""
	if actor != nil {
		createdBy = actor.ID
	}
	job := models.ExportJob{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Format:    req.Format,
		Status:    models.ExportStatusQueued,
		CreatedBy: createdBy,
		CreatedAt: s.now().UTC(),
		Request:   req,
	}
	s.store.Create(job)
	details := models.AuditDetails{"kind": string(req.Kind), "format": string(req.Format), "job_id": job.ID}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Kind)}); err != nil {
		s.markFailed(job.ID, "failed to enqueue job")
		s.audit(ctx, actor, details, false)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, "EXPORT_QUEUE_FULL", http.StatusServiceUnavailable, "too many exports in progress, try again shortly")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.audit(ctx, actor, details, true)
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// GetStatus exposes job metadata.
func (s *ExportJobService) GetStatus(id string) (*dto.ExportStatusResponse, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return &dto.ExportStatusResponse{
		ID:        job.ID,
		Kind:      job.Kind,
		Format:    job.Format,
		Status:    job.Status,
		ResultURL: job.ResultURL,
		Error:     job.ErrorMessage,
	}, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportJobService) ResolveDownload(token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, ok := s.store.Get(jobID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		ContentType: job.Format.ContentType(),
		ExpiresAt:   expiresAt,
	}, nil
}

// CleanupExpired removes files and jobs older than the result TTL.
func (s *ExportJobService) CleanupExpired(ctx context.Context) int {
	cutoff := s.now().Add(-s.resultTTL)
	removed := 0
	for _, job := range s.store.FinishedBefore(cutoff) {
		if job.ResultURL != nil {
			if token := extractToken(*job.ResultURL); token != "" {
				if _, relPath, _, err := s.exporter.ParseToken(token, true); err == nil {
					if err := s.exporter.Delete(relPath); err != nil && !os.IsNotExist(err) {
						s.logger.Warn("export cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
					}
				}
			}
		}
		s.store.Remove(job.ID)
		removed++
	}
	if _, err := s.exporter.Cleanup(s.resultTTL); err != nil {
		s.logger.Warn("export filesystem cleanup failed", zap.Error(err))
	}
	if removed > 0 {
		s.logger.Info("expired exports removed", zap.Int("jobs", removed))
	}
	return removed
}

// Handle is the queue handler: it renders one job.
func (s *ExportJobService) Handle(ctx context.Context, job jobs.Job) error {
	record, ok := s.store.Get(job.ID)
	if !ok {
		s.logger.Warn("export job vanished", zap.String("job_id", job.ID))
		return nil
	}
	s.store.Update(job.ID, func(j *models.ExportJob) {
		j.Status = models.ExportStatusProcessing
	})
	result, err := s.exporter.Generate(ctx, &record)
	if err != nil {
		msg := err.Error()
		s.store.Update(job.ID, func(j *models.ExportJob) {
			j.Status = models.ExportStatusQueued
			j.ErrorMessage = &msg
		})
		return err
	}
	now := s.now().UTC()
	url := result.URL
	s.store.Update(job.ID, func(j *models.ExportJob) {
		j.Status = models.ExportStatusFinished
		j.ResultURL = &url
		j.ErrorMessage = nil
		j.FinishedAt = &now
	})
	s.metrics.RecordExportJob(models.ExportStatusFinished)
	return nil
}

// OnExhausted marks a job failed once the queue gives up on it.
func (s *ExportJobService) OnExhausted(_ context.Context, job jobs.Job, err error) {
	s.markFailed(job.ID, err.Error())
}

func (s *ExportJobService) markFailed(id, msg string) {
	now := s.now().UTC()
	s.store.Update(id, func(j *models.ExportJob) {
		j.Status = models.ExportStatusFailed
		j.ErrorMessage = &msg
		j.FinishedAt = &now
	})
	s.metrics.RecordExportJob(models.ExportStatusFailed)
}

func (s *ExportJobService) audit(ctx context.Context, actor *models.Actor, details models.AuditDetails, ok bool) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, actor, models.AuditActionRequestExport, "", details, models.OutcomeOf(ok))
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}
