package repository

import (
	"context"
	"errors"

	"issuance-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GrantRepository defines the interface for agent credit grant persistence
type GrantRepository interface {
	Upsert(ctx context.Context, grant *models.AgentGrantRecord) error
	GetByAgent(ctx context.Context, agent string) (*models.AgentGrantRecord, error)
	List(ctx context.Context) ([]*models.AgentGrantRecord, error)
	Delete(ctx context.Context, agent string) error
}

type grantRepository struct {
	db *gorm.DB
}

// NewGrantRepository creates a new GrantRepository instance
func NewGrantRepository(db *gorm.DB) GrantRepository {
	return &grantRepository{db: db}
}

// Upsert creates or replaces the grant row for grant.Agent
func (r *grantRepository) Upsert(ctx context.Context, grant *models.AgentGrantRecord) error {
	var existing models.AgentGrantRecord
	err := r.db.WithContext(ctx).Where("agent = ?", grant.Agent).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if grant.ID == "" {
			grant.ID = uuid.New().String()
		}
		return r.db.WithContext(ctx).Create(grant).Error
	}
	if err != nil {
		return err
	}
	grant.ID = existing.ID
	grant.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(grant).Error
}

// GetByAgent retrieves the grant row for one agent
func (r *grantRepository) GetByAgent(ctx context.Context, agent string) (*models.AgentGrantRecord, error) {
	var grant models.AgentGrantRecord
	err := r.db.WithContext(ctx).Where("agent = ?", agent).First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// List retrieves every grant row
func (r *grantRepository) List(ctx context.Context) ([]*models.AgentGrantRecord, error) {
	var grants []*models.AgentGrantRecord
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&grants).Error
	return grants, err
}

// Delete removes the grant row for one agent
func (r *grantRepository) Delete(ctx context.Context, agent string) error {
	return r.db.WithContext(ctx).Where("agent = ?", agent).Delete(&models.AgentGrantRecord{}).Error
}
