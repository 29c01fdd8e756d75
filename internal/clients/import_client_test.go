package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"license-console-service/internal/models"
)

func TestImportClient_Preview_HeaderDiscovery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/imports/preview", r.URL.Path)
		assert.Equal(t, "tenant-123", r.Header.Get("X-Tenant-ID"))

		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "clubs", r.FormValue("subjectType"))
		// Header discovery sends no mapping.
		assert.Empty(t, r.FormValue("mapping"))

		file, header, err := r.FormFile("file")
		assert.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "clubs.csv", header.Filename)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"headers": []string{"name", "city"},
		})
	}))
	defer server.Close()

	client := NewImportClientWithURL(server.URL)
	result, err := client.Preview(context.Background(), &PreviewRequest{
		TenantID:    "tenant-123",
		SubjectType: models.ImportSubjectClubs,
		FileName:    "clubs.csv",
		File:        []byte("name,city\n"),
		DateFormat:  models.DateFormatISO,
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"name", "city"}, result.Headers)
	assert.Nil(t, result.Rows)
}

func TestImportClient_Preview_WithMappingReturnsRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))

		var mapping map[string]string
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("mapping")), &mapping))
		assert.Equal(t, "Name", mapping["name"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"headers": []string{"Name"},
			"rows": []map[string]interface{}{
				{"rowIndex": 1, "data": map[string]string{"name": "SV Altona"}},
				{"rowIndex": 2, "data": map[string]string{"name": "SV Altona"}, "duplicate": true},
			},
		})
	}))
	defer server.Close()

	client := NewImportClientWithURL(server.URL)
	result, err := client.Preview(context.Background(), &PreviewRequest{
		TenantID:    "tenant-123",
		SubjectType: models.ImportSubjectClubs,
		FileName:    "clubs.csv",
		File:        []byte("Name\n"),
		Mapping:     models.ColumnMapping{"name": "Name"},
	})

	assert.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, models.RowKey(1), result.Rows[0].RowIndex)
	assert.False(t, result.Rows[0].Duplicate)
	assert.True(t, result.Rows[1].Duplicate)
	// Errors is never nil on a decoded row.
	assert.NotNil(t, result.Rows[0].Errors)
}

func TestImportClient_Preview_UpstreamMessageSurfacedVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": "ENCODING", "message": "file is not valid UTF-8"},
		})
	}))
	defer server.Close()

	client := NewImportClientWithURL(server.URL)
	_, err := client.Preview(context.Background(), &PreviewRequest{
		TenantID:    "tenant-123",
		SubjectType: models.ImportSubjectClubs,
		FileName:    "clubs.csv",
		File:        []byte{0xff, 0xfe},
	})

	assert.Error(t, err)
	assert.Equal(t, "file is not valid UTF-8", err.Error())
}

func TestImportClient_Preview_StatusFallbackMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewImportClientWithURL(server.URL)
	_, err := client.Preview(context.Background(), &PreviewRequest{
		TenantID:    "tenant-123",
		SubjectType: models.ImportSubjectClubs,
		FileName:    "clubs.csv",
		File:        []byte("name\n"),
	})

	assert.Error(t, err)
	assert.Equal(t, "import service returned status 502", err.Error())
}

func TestImportClient_Confirm_SendsActions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/imports/confirm", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))

		var actions []models.RowActionEntry
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("actions")), &actions))
		assert.Equal(t, []models.RowActionEntry{
			{RowIndex: 1, Action: models.RowActionCreate},
			{RowIndex: 2, Action: models.RowActionSkip},
		}, actions)
		assert.Equal(t, "club-9", r.FormValue("clubId"))
		assert.Equal(t, "DD.MM.YYYY", r.FormValue("dateFormat"))

		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer server.Close()

	client := NewImportClientWithURL(server.URL)
	err := client.Confirm(context.Background(), &ConfirmRequest{
		TenantID:    "tenant-123",
		SubjectType: models.ImportSubjectMembers,
		FileName:    "members.csv",
		File:        []byte("first_name\n"),
		Mapping:     models.ColumnMapping{"first_name": "first_name"},
		Actions: []models.RowActionEntry{
			{RowIndex: 1, Action: models.RowActionCreate},
			{RowIndex: 2, Action: models.RowActionSkip},
		},
		ClubID:     "club-9",
		DateFormat: models.DateFormatDotDMY,
	})

	assert.NoError(t, err)
}

func TestImportClient_Confirm_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": "DUPLICATE", "message": "row 2: license number already in use"},
		})
	}))
	defer server.Close()

	client := NewImportClientWithURL(server.URL)
	err := client.Confirm(context.Background(), &ConfirmRequest{
		TenantID:    "tenant-123",
		SubjectType: models.ImportSubjectClubs,
		FileName:    "clubs.csv",
		File:        []byte("name\n"),
		Mapping:     models.ColumnMapping{"name": "name"},
	})

	assert.Error(t, err)
	assert.Equal(t, "row 2: license number already in use", err.Error())
}
