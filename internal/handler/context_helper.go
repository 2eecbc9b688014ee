package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/middleware"
	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/service"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
	"github.com/noah-isme/userflow-api/pkg/response"
)

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.SessionFromContext(c)
}

func actorFromContext(c *gin.Context) *models.Actor {
	return middleware.ActorFromContext(c)
}

func metaFromContext(c *gin.Context) models.SessionMeta {
	return models.SessionMeta{IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// respondResult writes a fail-soft account client result as an envelope.
func respondResult(c *gin.Context, status int, data interface{}, res service.Result) {
	if !res.OK {
		response.Error(c, res.Err())
		return
	}
	if data == nil {
		data = res
	}
	response.JSON(c, status, data, nil, middleware.Meta(c))
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}
