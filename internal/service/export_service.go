package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/pkg/export"
	"github.com/noah-isme/userflow-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) (*AuditView, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds account and audit datasets and persists rendered files.
type ExportService struct {
	accounts  accountLister
	audits    auditLister
	storage   fileStorage
	renderers map[models.ExportFormat]export.Renderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV, PDF and JSON renderers.
func NewExportService(accounts accountLister, audits auditLister, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		accounts: accounts,
		audits:   audits,
		storage:  files,
		renderers: map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV:  export.NewCSVExporter(),
			models.ExportFormatPDF:  export.NewPDFExporter(),
			models.ExportFormatJSON: export.NewJSONExporter(),
		},
		signer: signer,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Generate renders the job's dataset and stores it behind a signed token.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("export job is nil")
	}
	dataset, err := s.BuildDataset(ctx, job.Request)
	if err != nil {
		return nil, err
	}
	renderer, ok := s.renderers[job.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", job.Format)
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", job.Format, err)
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, fmt.Errorf("sign export: %w", err)
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// BuildDataset loads and filters the rows for an export request.
func (s *ExportService) BuildDataset(ctx context.Context, req models.ExportRequest) (export.Dataset, error) {
	switch req.Kind {
	case models.ExportKindAccounts:
		return s.accountDataset(ctx, req.AccountQuery)
	case models.ExportKindAudit:
		return s.auditDataset(ctx, req.AuditFilter)
	}
	return export.Dataset{}, fmt.Errorf("unsupported export kind %s", req.Kind)
}

func (s *ExportService) accountDataset(ctx context.Context, q models.AccountQuery) (export.Dataset, error) {
	accounts, res := s.accounts.ListAll(ctx)
	if !res.OK {
		return export.Dataset{}, res.Err()
	}
	accounts = FilterAccounts(accounts, q)
	rows := make([]map[string]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, map[string]string{
			"ID":         a.ID,
			"Email":      a.Email,
			"Full Name":  a.FullName,
			"Role":       string(a.Role),
			"Status":     string(a.Status),
			"Department": a.Department,
			"Job Title":  a.JobTitle,
			"Last Login": formatExportTime(a.LastLogin),
			"Created At": a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Users (%d)", len(rows)),
		Headers: []string{"ID", "Email", "Full Name", "Role", "Status", "Department", "Job Title", "Last Login", "Created At"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) auditDataset(ctx context.Context, f models.AuditFilter) (export.Dataset, error) {
	view, err := s.audits.List(ctx, f)
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(view.Entries))
	for _, e := range view.Entries {
		rows = append(rows, map[string]string{
			"Timestamp":  e.CreatedAt.UTC().Format(time.RFC3339),
			"Actor":      e.ActorEmail,
			"Action":     e.Action,
			"Target":     e.Target(),
			"Outcome":    string(e.Outcome),
			"IP Address": e.IPAddress,
			"Details":    e.Details.String(),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Audit Log (%d)", len(rows)),
		Headers: []string{"Timestamp", "Actor", "Action", "Target", "Outcome", "IP Address", "Details"},
		Rows:    rows,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", job.Kind, timestamp, shortID(job.ID), job.Format)
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "na"
	}
	return id
}

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
