package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"license-console-service/internal/models"
)

// ClubAPI lists clubs for the wizard's scope selector
type ClubAPI interface {
	GetClubs(ctx context.Context, tenantID string) ([]models.ClubInfo, error)
}

// ClubClient handles HTTP communication with the club registry service
type ClubClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ ClubAPI = (*ClubClient)(nil)

// clubListResponse is the API response format from the club registry
type clubListResponse struct {
	Success bool              `json:"success"`
	Data    []models.ClubInfo `json:"data"`
}

// NewClubClient creates a new club registry client
func NewClubClient() *ClubClient {
	baseURL := os.Getenv("CLUB_SERVICE_URL")
	if baseURL == "" {
		baseURL = "http://club-service.licensing.svc.cluster.local:8083"
	}

	return &ClubClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// NewClubClientWithURL creates a club registry client for a fixed base URL
func NewClubClientWithURL(baseURL string) *ClubClient {
	return &ClubClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetClubs fetches the {id, name} club pairs visible to a tenant
func (c *ClubClient) GetClubs(ctx context.Context, tenantID string) ([]models.ClubInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/clubs", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call club service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("club service returned status %d", resp.StatusCode)
	}

	var result clubListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("club service returned unsuccessful response")
	}

	return result.Data, nil
}
