package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportOutcome represents the result of a commit attempt
type ImportOutcome string

const (
	ImportOutcomeCommitted ImportOutcome = "COMMITTED"
	ImportOutcomeFailed    ImportOutcome = "FAILED"
)

// ImportAttempt is the audit record written for every commit attempt
type ImportAttempt struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    string            `json:"tenantId" gorm:"not null;index"`
	OperatorID  string            `json:"operatorId" gorm:"not null"`
	SubjectType ImportSubjectType `json:"subjectType" gorm:"not null"`
	ClubID      *string           `json:"clubId,omitempty" gorm:"column:club_id"`
	FileName    string            `json:"fileName"`
	RowCount    int               `json:"rowCount"`
	CreateCount int               `json:"createCount"`
	SkipCount   int               `json:"skipCount"`
	Outcome     ImportOutcome     `json:"outcome" gorm:"not null;index"`
	Message     *string           `json:"message,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// TableName returns the table name for the ImportAttempt model
func (ImportAttempt) TableName() string {
	return "import_attempts"
}

// ImportAttemptListResponse wraps the import history list
type ImportAttemptListResponse struct {
	Success bool            `json:"success"`
	Data    []ImportAttempt `json:"data"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}
