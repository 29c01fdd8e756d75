package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"license-console-service/internal/clients"
	"license-console-service/internal/middleware"
	"license-console-service/internal/models"
)

type stubClubAPI struct {
	clubs []models.ClubInfo
	err   error
	calls int
}

var _ clients.ClubAPI = (*stubClubAPI)(nil)

func (s *stubClubAPI) GetClubs(ctx context.Context, tenantID string) ([]models.ClubInfo, error) {
	s.calls++
	return s.clubs, s.err
}

func setupClubRouter(api clients.ClubAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewClubHandler(api, nil, logrus.New())

	router := gin.New()
	router.Use(middleware.TenantMiddleware())
	router.Use(middleware.ErrorHandler())
	router.GET("/api/v1/clubs", handler.GetClubs)
	return router
}

func TestGetClubs_Handler_Success(t *testing.T) {
	api := &stubClubAPI{clubs: []models.ClubInfo{{ID: "club-1", Name: "SV Altona"}}}
	router := setupClubRouter(api)

	req, _ := http.NewRequest("GET", "/api/v1/clubs", nil)
	req.Header.Set("X-Tenant-ID", "tenant-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response models.ClubListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Len(t, response.Data, 1)
	assert.Equal(t, 1, api.calls)
}

func TestGetClubs_Handler_MissingTenant(t *testing.T) {
	api := &stubClubAPI{}
	router := setupClubRouter(api)

	req, _ := http.NewRequest("GET", "/api/v1/clubs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, api.calls)
}

func TestGetClubs_Handler_UpstreamFailure(t *testing.T) {
	api := &stubClubAPI{err: errors.New("club service unavailable")}
	router := setupClubRouter(api)

	req, _ := http.NewRequest("GET", "/api/v1/clubs", nil)
	req.Header.Set("X-Tenant-ID", "tenant-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
