package repository

import (
	"context"
	"fmt"

	"license-console-service/internal/models"
	"gorm.io/gorm"
)

// ImportAttemptRepository persists and lists import audit records
type ImportAttemptRepository interface {
	Record(ctx context.Context, attempt *models.ImportAttempt) error
	List(ctx context.Context, tenantID string, subject models.ImportSubjectType, limit, offset int) ([]models.ImportAttempt, int64, error)
}

type importAttemptRepository struct {
	db *gorm.DB
}

// NewImportAttemptRepository creates a new import attempt repository
func NewImportAttemptRepository(db *gorm.DB) ImportAttemptRepository {
	return &importAttemptRepository{db: db}
}

// Record inserts one commit-attempt audit row
func (r *importAttemptRepository) Record(ctx context.Context, attempt *models.ImportAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to record import attempt: %w", err)
	}
	return nil
}

// List returns a tenant's import attempts, newest first. An empty subject
// returns attempts for all subject types.
func (r *importAttemptRepository) List(ctx context.Context, tenantID string, subject models.ImportSubjectType, limit, offset int) ([]models.ImportAttempt, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ImportAttempt{}).Where("tenant_id = ?", tenantID)
	if subject != "" {
		query = query.Where("subject_type = ?", subject)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count import attempts: %w", err)
	}

	var attempts []models.ImportAttempt
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list import attempts: %w", err)
	}

	return attempts, total, nil
}
