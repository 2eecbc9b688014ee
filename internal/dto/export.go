package dto

import "github.com/noah-isme/userflow-api/internal/models"

// ExportJobResponse is returned when an export is queued.
type ExportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ExportStatus `json:"status"`
}

// ExportStatusResponse exposes export job progress.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Kind      models.ExportKind   `json:"kind"`
	Format    models.ExportFormat `json:"format"`
	Status    models.ExportStatus `json:"status"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
