package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"license-console-service/internal/middleware"
	"license-console-service/internal/models"
	"license-console-service/internal/repository"
)

// HistoryHandler serves the import attempt audit log
type HistoryHandler struct {
	repo repository.ImportAttemptRepository
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(repo repository.ImportAttemptRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// ListImports lists past import attempts for the tenant
// GET /api/v1/imports/history
func (h *HistoryHandler) ListImports(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "TENANT_REQUIRED", Message: "X-Tenant-ID header is required"},
		})
		return
	}

	subject := models.ImportSubjectType(c.Query("subjectType"))
	if subject != "" && !subject.IsValid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_SUBJECT_TYPE", Message: "Subject must be clubs or members"},
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	attempts, total, err := h.repo.List(c.Request.Context(), tenantID, subject, limit, offset)
	if err != nil {
		c.Error(middleware.NewDatabaseError("Failed to list import attempts"))
		return
	}

	c.JSON(http.StatusOK, models.ImportAttemptListResponse{
		Success: true,
		Data:    attempts,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}
