// Package clients contains HTTP clients for the external services the
// console consumes: the import API and the club registry.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"license-console-service/internal/models"
)

// ImportAPI is the boundary to the external import service. Header
// matching heuristics, duplicate detection and row persistence live behind
// it; the wizard only consumes the contract.
type ImportAPI interface {
	Preview(ctx context.Context, req *PreviewRequest) (*PreviewResult, error)
	Confirm(ctx context.Context, req *ConfirmRequest) error
}

// PreviewRequest carries one preview call. A nil Mapping requests header
// discovery; a mapping switches the endpoint to the full row preview.
type PreviewRequest struct {
	TenantID    string
	SubjectType models.ImportSubjectType
	FileName    string
	File        []byte
	Mapping     models.ColumnMapping
	ClubID      string
	DateFormat  models.DateFormat
}

// PreviewResult is the shape returned by the preview endpoint. Rows is nil
// for header-discovery calls.
type PreviewResult struct {
	Headers []string            `json:"headers"`
	Rows    []models.PreviewRow `json:"rows,omitempty"`
}

// ConfirmRequest carries one commit call
type ConfirmRequest struct {
	TenantID    string
	SubjectType models.ImportSubjectType
	FileName    string
	File        []byte
	Mapping     models.ColumnMapping
	Actions     []models.RowActionEntry
	ClubID      string
	DateFormat  models.DateFormat
}

// ImportClient handles HTTP communication with the import service
type ImportClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ ImportAPI = (*ImportClient)(nil)

// NewImportClient creates a new import API client
func NewImportClient() *ImportClient {
	baseURL := os.Getenv("IMPORT_SERVICE_URL")
	if baseURL == "" {
		baseURL = "http://import-service.licensing.svc.cluster.local:8085"
	}

	return &ImportClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// NewImportClientWithURL creates an import API client for a fixed base URL
func NewImportClientWithURL(baseURL string) *ImportClient {
	return &ImportClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type previewResponse struct {
	Success bool           `json:"success"`
	Headers []string       `json:"headers"`
	Rows    []previewRow   `json:"rows"`
	Error   *upstreamError `json:"error"`
}

type previewRow struct {
	RowIndex  int64             `json:"rowIndex"`
	Data      map[string]string `json:"data"`
	Errors    []string          `json:"errors"`
	Duplicate bool              `json:"duplicate"`
}

type confirmResponse struct {
	Success bool           `json:"success"`
	Error   *upstreamError `json:"error"`
}

type upstreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Preview calls the preview endpoint. With a nil mapping the import
// service only extracts the header row; with a mapping it returns the
// validated row preview as well.
func (c *ImportClient) Preview(ctx context.Context, req *PreviewRequest) (*PreviewResult, error) {
	form, contentType, err := buildImportForm(req.SubjectType, req.FileName, req.File, req.Mapping, nil, req.ClubID, req.DateFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to build preview request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/imports/preview", form)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Tenant-ID", req.TenantID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call import service: %w", err)
	}
	defer resp.Body.Close()

	var result previewResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("import service returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode preview response: %w", decodeErr)
	}

	if resp.StatusCode >= 400 || !result.Success {
		return nil, fmt.Errorf("%s", upstreamMessage(result.Error, resp.StatusCode))
	}

	out := &PreviewResult{Headers: result.Headers}
	if req.Mapping != nil {
		out.Rows = make([]models.PreviewRow, len(result.Rows))
		for i, row := range result.Rows {
			errs := row.Errors
			if errs == nil {
				errs = []string{}
			}
			out.Rows[i] = models.PreviewRow{
				RowIndex:  models.RowKey(row.RowIndex),
				Data:      row.Data,
				Errors:    errs,
				Duplicate: row.Duplicate,
			}
		}
	}
	return out, nil
}

// Confirm calls the commit endpoint with the full action list. The result
// is atomic for the whole list; there is no partial-commit reporting.
func (c *ImportClient) Confirm(ctx context.Context, req *ConfirmRequest) error {
	form, contentType, err := buildImportForm(req.SubjectType, req.FileName, req.File, req.Mapping, req.Actions, req.ClubID, req.DateFormat)
	if err != nil {
		return fmt.Errorf("failed to build confirm request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/imports/confirm", form)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Tenant-ID", req.TenantID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call import service: %w", err)
	}
	defer resp.Body.Close()

	var result confirmResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("import service returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to decode confirm response: %w", decodeErr)
	}

	if resp.StatusCode >= 400 || !result.Success {
		return fmt.Errorf("%s", upstreamMessage(result.Error, resp.StatusCode))
	}
	return nil
}

// buildImportForm assembles the multipart body shared by both endpoints.
// The file is re-sent on every call; the import service has no
// upload-once semantics.
func buildImportForm(subject models.ImportSubjectType, fileName string, file []byte, mapping models.ColumnMapping, actions []models.RowActionEntry, clubID string, dateFormat models.DateFormat) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("subjectType", string(subject)); err != nil {
		return nil, "", err
	}

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file); err != nil {
		return nil, "", err
	}

	if mapping != nil {
		encoded, err := json.Marshal(mapping)
		if err != nil {
			return nil, "", err
		}
		if err := writer.WriteField("mapping", string(encoded)); err != nil {
			return nil, "", err
		}
	}

	if actions != nil {
		encoded, err := json.Marshal(actions)
		if err != nil {
			return nil, "", err
		}
		if err := writer.WriteField("actions", string(encoded)); err != nil {
			return nil, "", err
		}
	}

	if clubID != "" {
		if err := writer.WriteField("clubId", clubID); err != nil {
			return nil, "", err
		}
	}
	if dateFormat != "" {
		if err := writer.WriteField("dateFormat", string(dateFormat)); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func upstreamMessage(upstream *upstreamError, statusCode int) string {
	if upstream != nil && upstream.Message != "" {
		return upstream.Message
	}
	return fmt.Sprintf("import service returned status %d", statusCode)
}
