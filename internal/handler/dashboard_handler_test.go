package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/middleware"
	"github.com/noah-isme/userflow-api/internal/models"
)

type fakeDashboardService struct {
	resp *dto.DashboardResponse
	err  error
}

func (f *fakeDashboardService) Dashboard(context.Context) (*dto.DashboardResponse, error) {
	return f.resp, f.err
}

type fakeAnalyticsService struct {
	resp *dto.AnalyticsOverview
	hit  bool
	err  error
}

func (f *fakeAnalyticsService) Overview(context.Context) (*dto.AnalyticsOverview, bool, error) {
	return f.resp, f.hit, f.err
}

func TestDashboardHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeDashboardService{resp: &dto.DashboardResponse{
		Stats:       models.AccountStats{Total: 4, Active: 3, Inactive: 1},
		BackendMode: "demo",
		Banner:      "Demo mode",
	}}
	handler := NewDashboardHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)

	handler.Dashboard(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	var resp dto.DashboardResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &resp))
	assert.Equal(t, 3, resp.Stats.Active)
	assert.Equal(t, "demo", resp.BackendMode)
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestDashboardHandlerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardService{err: errors.New("backend down")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)

	handler.Dashboard(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAnalyticsHandlerReportsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAnalyticsHandler(&fakeAnalyticsService{
		resp: &dto.AnalyticsOverview{Stats: models.AccountStats{Total: 4}},
		hit:  true,
	})

	router := gin.New()
	router.GET("/analytics", middleware.WithResponseMeta(), handler.Overview)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analytics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}
