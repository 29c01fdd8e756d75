package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"license-console-service/internal/clients"
	"license-console-service/internal/middleware"
	"license-console-service/internal/models"
	"license-console-service/internal/services"
)

// stubImportAPI lets each test script the upstream import service
type stubImportAPI struct {
	previewFn func(ctx context.Context, req *clients.PreviewRequest) (*clients.PreviewResult, error)
	confirmFn func(ctx context.Context, req *clients.ConfirmRequest) error
}

var _ clients.ImportAPI = (*stubImportAPI)(nil)

func (s *stubImportAPI) Preview(ctx context.Context, req *clients.PreviewRequest) (*clients.PreviewResult, error) {
	if s.previewFn == nil {
		return nil, fmt.Errorf("unexpected preview call")
	}
	return s.previewFn(ctx, req)
}

func (s *stubImportAPI) Confirm(ctx context.Context, req *clients.ConfirmRequest) error {
	if s.confirmFn == nil {
		return fmt.Errorf("unexpected confirm call")
	}
	return s.confirmFn(ctx, req)
}

func setupWizardRouter(api clients.ImportAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)

	wizard := services.NewWizardService(api, nil, nil, nil, nil)
	handler := NewImportWizardHandler(wizard)

	router := gin.New()
	router.Use(middleware.TenantMiddleware())
	router.Use(middleware.OperatorMiddleware())
	router.Use(middleware.ErrorHandler())

	group := router.Group("/api/v1/imports/wizard")
	group.POST("", handler.StartWizard)
	group.GET("/:id", handler.GetWizard)
	group.PUT("/:id/target", handler.SetTarget)
	group.POST("/:id/file", handler.UploadFile)
	group.PUT("/:id/mapping", handler.UpdateMapping)
	group.POST("/:id/preview", handler.Preview)
	group.PUT("/:id/rows/:index", handler.SetRowAction)
	group.POST("/:id/commit", handler.Commit)
	group.DELETE("/:id", handler.DiscardWizard)

	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "tenant-123")
	req.Header.Set("X-User-ID", "operator-1")
	req.Header.Set("X-User-Role", "ASSOCIATION_ADMIN")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doUpload(router *gin.Engine, path, fileName string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", fileName)
	part.Write(content)
	writer.Close()

	req, _ := http.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Tenant-ID", "tenant-123")
	req.Header.Set("X-User-ID", "operator-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func wizardData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data, ok := response["data"].(map[string]interface{})
	assert.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

func responseErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no error object: %s", w.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// ===========================================
// Start / Get Handler Tests
// ===========================================

func TestStartWizard_Handler_Success(t *testing.T) {
	router := setupWizardRouter(&stubImportAPI{})

	w := doJSON(router, "POST", "/api/v1/imports/wizard", gin.H{"subjectType": "clubs"})

	assert.Equal(t, http.StatusCreated, w.Code)
	data := wizardData(t, w)
	assert.Equal(t, "idle", data["state"])
	assert.Equal(t, "clubs", data["subjectType"])
	assert.NotEmpty(t, data["id"])
}

func TestStartWizard_Handler_MissingOperatorContext(t *testing.T) {
	router := setupWizardRouter(&stubImportAPI{})

	body, _ := json.Marshal(gin.H{"subjectType": "clubs"})
	req, _ := http.NewRequest("POST", "/api/v1/imports/wizard", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	// No identity headers.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "OPERATOR_CONTEXT_REQUIRED", responseErrorCode(t, w))
}

func TestStartWizard_Handler_UnknownSubject(t *testing.T) {
	router := setupWizardRouter(&stubImportAPI{})

	w := doJSON(router, "POST", "/api/v1/imports/wizard", gin.H{"subjectType": "referees"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", responseErrorCode(t, w))
}

func TestGetWizard_Handler_InvalidID(t *testing.T) {
	router := setupWizardRouter(&stubImportAPI{})

	w := doJSON(router, "GET", "/api/v1/imports/wizard/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_WIZARD_ID", responseErrorCode(t, w))
}

func TestGetWizard_Handler_UnknownSession(t *testing.T) {
	router := setupWizardRouter(&stubImportAPI{})

	w := doJSON(router, "GET", "/api/v1/imports/wizard/a2b1a9a0-0000-4000-8000-000000000000", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "WIZARD_NOT_FOUND", responseErrorCode(t, w))
}

// ===========================================
// Upload Handler Tests
// ===========================================

func TestUploadFile_Handler_MissingFile(t *testing.T) {
	router := setupWizardRouter(&stubImportAPI{})

	start := doJSON(router, "POST", "/api/v1/imports/wizard", gin.H{"subjectType": "clubs"})
	id := wizardData(t, start)["id"].(string)

	w := doJSON(router, "POST", "/api/v1/imports/wizard/"+id+"/file", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "FILE_REQUIRED", responseErrorCode(t, w))
}

func TestUploadFile_Handler_MembersWithoutClub(t *testing.T) {
	router := setupWizardRouter(&stubImportAPI{})

	start := doJSON(router, "POST", "/api/v1/imports/wizard", gin.H{"subjectType": "members"})
	id := wizardData(t, start)["id"].(string)

	w := doUpload(router, "/api/v1/imports/wizard/"+id+"/file", "members.csv", []byte("first_name\n"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CLUB_SELECTION_REQUIRED", responseErrorCode(t, w))
}

// ===========================================
// Full Flow Handler Test
// ===========================================

func TestWizard_Handler_FullImportFlow(t *testing.T) {
	var confirmed *clients.ConfirmRequest
	api := &stubImportAPI{
		previewFn: func(ctx context.Context, req *clients.PreviewRequest) (*clients.PreviewResult, error) {
			if req.Mapping == nil {
				return &clients.PreviewResult{Headers: []string{"name", "city"}}, nil
			}
			return &clients.PreviewResult{
				Headers: []string{"name", "city"},
				Rows: []models.PreviewRow{
					{RowIndex: 1, Data: map[string]string{"name": "SV Altona", "city": "Hamburg"}},
					{RowIndex: 2, Data: map[string]string{"name": "SV Altona", "city": "Hamburg"}, Duplicate: true},
				},
			}, nil
		},
		confirmFn: func(ctx context.Context, req *clients.ConfirmRequest) error {
			confirmed = req
			return nil
		},
	}
	router := setupWizardRouter(api)

	// Start a club import.
	start := doJSON(router, "POST", "/api/v1/imports/wizard", gin.H{"subjectType": "clubs"})
	assert.Equal(t, http.StatusCreated, start.Code)
	id := wizardData(t, start)["id"].(string)
	base := "/api/v1/imports/wizard/" + id

	// Upload the file; headers come back auto-mapped.
	upload := doUpload(router, base+"/file", "clubs.csv", []byte("name,city\nSV Altona,Hamburg\n"))
	assert.Equal(t, http.StatusOK, upload.Code)
	data := wizardData(t, upload)
	assert.Equal(t, "mapping_ready", data["state"])
	assert.Equal(t, true, data["mappingComplete"])

	// Preview.
	preview := doJSON(router, "POST", base+"/preview", nil)
	assert.Equal(t, http.StatusOK, preview.Code)
	data = wizardData(t, preview)
	assert.Equal(t, "preview_ready", data["state"])
	assert.Len(t, data["rows"], 2)

	// Skip the flagged duplicate.
	rowAction := doJSON(router, "PUT", base+"/rows/2", gin.H{"action": "skip"})
	assert.Equal(t, http.StatusOK, rowAction.Code)

	// Commit.
	commit := doJSON(router, "POST", base+"/commit", nil)
	assert.Equal(t, http.StatusOK, commit.Code)
	data = wizardData(t, commit)
	assert.Equal(t, "idle", data["state"])

	assert.NotNil(t, confirmed)
	assert.Equal(t, "tenant-123", confirmed.TenantID)
	assert.Equal(t, []models.RowActionEntry{
		{RowIndex: 1, Action: models.RowActionCreate},
		{RowIndex: 2, Action: models.RowActionSkip},
	}, confirmed.Actions)
}

// ===========================================
// Row Action Handler Tests
// ===========================================

func TestSetRowAction_Handler_InvalidIndex(t *testing.T) {
	router := setupWizardRouter(&stubImportAPI{})

	start := doJSON(router, "POST", "/api/v1/imports/wizard", gin.H{"subjectType": "clubs"})
	id := wizardData(t, start)["id"].(string)

	w := doJSON(router, "PUT", "/api/v1/imports/wizard/"+id+"/rows/seven", gin.H{"action": "skip"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ROW_INDEX", responseErrorCode(t, w))
}

// ===========================================
// Discard Handler Tests
// ===========================================

func TestDiscardWizard_Handler_RemovesSession(t *testing.T) {
	router := setupWizardRouter(&stubImportAPI{})

	start := doJSON(router, "POST", "/api/v1/imports/wizard", gin.H{"subjectType": "clubs"})
	id := wizardData(t, start)["id"].(string)

	w := doJSON(router, "DELETE", "/api/v1/imports/wizard/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, "GET", "/api/v1/imports/wizard/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
