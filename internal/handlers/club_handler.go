package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"license-console-service/internal/cache"
	"license-console-service/internal/clients"
	"license-console-service/internal/middleware"
	"license-console-service/internal/models"
)

// ClubHandler serves the club list backing the wizard's scope selector
type ClubHandler struct {
	clubAPI clients.ClubAPI
	cache   *cache.ClubCache
	logger  *logrus.Logger
}

// NewClubHandler creates a new club handler
func NewClubHandler(clubAPI clients.ClubAPI, clubCache *cache.ClubCache, logger *logrus.Logger) *ClubHandler {
	return &ClubHandler{clubAPI: clubAPI, cache: clubCache, logger: logger}
}

// GetClubs lists the clubs the operator can target
// GET /api/v1/clubs
func (h *ClubHandler) GetClubs(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "TENANT_REQUIRED", Message: "X-Tenant-ID header is required"},
		})
		return
	}

	ctx := c.Request.Context()

	if h.cache != nil {
		if clubs, err := h.cache.Get(ctx, tenantID); err == nil && clubs != nil {
			c.JSON(http.StatusOK, models.ClubListResponse{Success: true, Data: clubs})
			return
		}
	}

	clubs, err := h.clubAPI.GetClubs(ctx, tenantID)
	if err != nil {
		c.Error(middleware.NewExternalServiceError("club-service", err))
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, tenantID, clubs); err != nil {
			h.logger.WithError(err).Warn("Failed to cache club list")
		}
	}

	c.JSON(http.StatusOK, models.ClubListResponse{Success: true, Data: clubs})
}
