package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"license-console-service/internal/models"
	"license-console-service/internal/services"
)

// MaxImportFileSize caps uploaded spreadsheets; the import API enforces
// its own row limit on top of this.
const MaxImportFileSize = 5 << 20

// ImportWizardHandler exposes the import wizard to the browser UI
type ImportWizardHandler struct {
	wizard *services.WizardService
}

// NewImportWizardHandler creates a new import wizard handler
func NewImportWizardHandler(wizard *services.WizardService) *ImportWizardHandler {
	return &ImportWizardHandler{wizard: wizard}
}

// operatorConfig builds the session config from the identity headers the
// auth front resolved. Returns false after writing the error response if
// the operator context is missing.
func operatorConfig(c *gin.Context) (services.WizardConfig, bool) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	if tenantID == "" || userID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "OPERATOR_CONTEXT_REQUIRED",
				Message: "Tenant and user identity headers are required",
			},
		})
		return services.WizardConfig{}, false
	}

	return services.WizardConfig{
		TenantID:     tenantID,
		OperatorID:   userID,
		OperatorRole: c.GetString("user_role"),
	}, true
}

func wizardID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_WIZARD_ID",
				Message: "Wizard session id must be a UUID",
			},
		})
		return uuid.Nil, false
	}
	return id, true
}

// StartWizard starts a new import wizard session
// POST /api/v1/imports/wizard
func (h *ImportWizardHandler) StartWizard(c *gin.Context) {
	cfg, ok := operatorConfig(c)
	if !ok {
		return
	}

	var req models.StartWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	view, err := h.wizard.Start(cfg, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, models.WizardResponse{Success: true, Data: view})
}

// GetWizard returns the current session snapshot
// GET /api/v1/imports/wizard/:id
func (h *ImportWizardHandler) GetWizard(c *gin.Context) {
	cfg, ok := operatorConfig(c)
	if !ok {
		return
	}
	id, ok := wizardID(c)
	if !ok {
		return
	}

	view, err := h.wizard.Get(cfg, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.WizardResponse{Success: true, Data: view})
}

// SetTarget changes subject type, target club or date format
// PUT /api/v1/imports/wizard/:id/target
func (h *ImportWizardHandler) SetTarget(c *gin.Context) {
	cfg, ok := operatorConfig(c)
	if !ok {
		return
	}
	id, ok := wizardID(c)
	if !ok {
		return
	}

	var req models.WizardTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	view, err := h.wizard.SetTarget(cfg, id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.WizardResponse{Success: true, Data: view})
}

// UploadFile registers a spreadsheet and runs header discovery
// POST /api/v1/imports/wizard/:id/file
func (h *ImportWizardHandler) UploadFile(c *gin.Context) {
	cfg, ok := operatorConfig(c)
	if !ok {
		return
	}
	id, ok := wizardID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "FILE_REQUIRED", Message: "Please upload a CSV file"},
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImportFileSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "FILE_READ_ERROR", Message: err.Error()},
		})
		return
	}
	if len(data) > MaxImportFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "FILE_TOO_LARGE", Message: "Import files are limited to 5 MB"},
		})
		return
	}

	view, err := h.wizard.DiscoverHeaders(c.Request.Context(), cfg, id, header.Filename, data)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.WizardResponse{Success: true, Data: view})
}

// UpdateMapping applies operator mapping overrides
// PUT /api/v1/imports/wizard/:id/mapping
func (h *ImportWizardHandler) UpdateMapping(c *gin.Context) {
	cfg, ok := operatorConfig(c)
	if !ok {
		return
	}
	id, ok := wizardID(c)
	if !ok {
		return
	}

	var req models.MappingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	view, err := h.wizard.UpdateMapping(cfg, id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.WizardResponse{Success: true, Data: view})
}

// Preview requests the validated row preview
// POST /api/v1/imports/wizard/:id/preview
func (h *ImportWizardHandler) Preview(c *gin.Context) {
	cfg, ok := operatorConfig(c)
	if !ok {
		return
	}
	id, ok := wizardID(c)
	if !ok {
		return
	}

	view, err := h.wizard.Preview(c.Request.Context(), cfg, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.WizardResponse{Success: true, Data: view})
}

// SetRowAction changes one previewed row's commit decision
// PUT /api/v1/imports/wizard/:id/rows/:index
func (h *ImportWizardHandler) SetRowAction(c *gin.Context) {
	cfg, ok := operatorConfig(c)
	if !ok {
		return
	}
	id, ok := wizardID(c)
	if !ok {
		return
	}

	index, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ROW_INDEX", Message: "Row index must be an integer"},
		})
		return
	}

	var req models.RowActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	view, err := h.wizard.SetRowAction(cfg, id, models.RowKey(index), req.Action)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.WizardResponse{Success: true, Data: view})
}

// Commit submits the accepted rows to the import API
// POST /api/v1/imports/wizard/:id/commit
func (h *ImportWizardHandler) Commit(c *gin.Context) {
	cfg, ok := operatorConfig(c)
	if !ok {
		return
	}
	id, ok := wizardID(c)
	if !ok {
		return
	}

	view, err := h.wizard.Commit(c.Request.Context(), cfg, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.WizardResponse{Success: true, Data: view})
}

// DiscardWizard drops a session
// DELETE /api/v1/imports/wizard/:id
func (h *ImportWizardHandler) DiscardWizard(c *gin.Context) {
	cfg, ok := operatorConfig(c)
	if !ok {
		return
	}
	id, ok := wizardID(c)
	if !ok {
		return
	}

	if err := h.wizard.Discard(cfg, id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
