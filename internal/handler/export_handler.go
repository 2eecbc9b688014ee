package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/service"
	"github.com/noah-isme/userflow-api/pkg/response"
)

type exportJobs interface {
	CreateJob(ctx context.Context, actor *models.Actor, req models.ExportRequest) (*dto.ExportJobResponse, error)
	GetStatus(id string) (*dto.ExportStatusResponse, error)
	ResolveDownload(token string) (*service.ExportDownload, error)
}

// ExportHandler queues exports and serves their signed downloads.
type ExportHandler struct {
	jobs exportJobs
}

// NewExportHandler constructs the handler.
func NewExportHandler(jobs exportJobs) *ExportHandler {
	return &ExportHandler{jobs: jobs}
}

// Create godoc
// @Summary Queue an export
// @Description Queues an account list or audit log export in CSV, PDF or JSON
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body models.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid export payload"))
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	status, err := h.jobs.GetStatus(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export
// @Description The token is the signed value embedded in the job's result URL.
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	size := int64(-1)
	if info, statErr := download.File.Stat(); statErr == nil {
		size = info.Size()
	}
	response.Attachment(c, download.Filename, download.ContentType, size, download.File)
}
