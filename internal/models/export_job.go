package models

import "time"

// ExportKind enumerates the datasets that can be exported.
type ExportKind string

const (
	ExportKindAccounts ExportKind = "accounts"
	ExportKindAudit    ExportKind = "audit"
)

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatJSON ExportFormat = "json"
)

// ContentType returns the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatPDF:
		return "application/pdf"
	case ExportFormatJSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportRequest asks for an asynchronous export.
type ExportRequest struct {
	Kind         ExportKind   `json:"kind" validate:"required,oneof=accounts audit"`
	Format       ExportFormat `json:"format" validate:"required,oneof=csv pdf json"`
	AccountQuery AccountQuery `json:"account_query"`
	AuditFilter  AuditFilter  `json:"audit_filter"`
}

// ExportJob tracks a queued export.
type ExportJob struct {
	ID           string        `json:"id"`
	Kind         ExportKind    `json:"kind"`
	Format       ExportFormat  `json:"format"`
	Status       ExportStatus  `json:"status"`
	ResultURL    *string       `json:"result_url,omitempty"`
	ErrorMessage *string       `json:"error,omitempty"`
	CreatedBy    string        `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Request      ExportRequest `json:"-"`
}
