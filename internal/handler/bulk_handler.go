package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/pkg/response"
)

type bulkDispatcher interface {
	Dispatch(ctx context.Context, actor *models.Actor, req models.BulkRequest) (models.BulkReport, error)
}

// BulkHandler applies one operation to a selection of accounts.
type BulkHandler struct {
	dispatcher bulkDispatcher
}

// NewBulkHandler constructs the handler.
func NewBulkHandler(dispatcher bulkDispatcher) *BulkHandler {
	return &BulkHandler{dispatcher: dispatcher}
}

// Dispatch godoc
// @Summary Run a bulk account operation
// @Description Applies the operation to each id in order. Per-item failures are reported and never stop the batch.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body models.BulkRequest true "Operation and selection"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /accounts/bulk [post]
func (h *BulkHandler) Dispatch(c *gin.Context) {
	var req models.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid bulk payload"))
		return
	}
	report, err := h.dispatcher.Dispatch(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{
		"failed": report.Failed(),
	})
}
