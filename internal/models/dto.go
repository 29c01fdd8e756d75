package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Error represents error details
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ClubInfo is the minimal club view used by the scope selector
type ClubInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WizardResponse wraps a wizard session view
type WizardResponse struct {
	Success bool        `json:"success"`
	Data    *WizardView `json:"data"`
}

// ClubListResponse wraps the scope selector club list
type ClubListResponse struct {
	Success bool       `json:"success"`
	Data    []ClubInfo `json:"data"`
}
