package repository

import (
	"context"
	"errors"

	"issuance-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistryRepository defines the interface for the gateway's asset support
// table and router whitelist persistence
type RegistryRepository interface {
	UpsertToken(ctx context.Context, token *models.SupportedToken) error
	ListTokens(ctx context.Context) ([]*models.SupportedToken, error)
	UpsertRouter(ctx context.Context, router string, whitelisted bool) error
	ListRouters(ctx context.Context) ([]*models.RouterWhitelistEntry, error)
}

type registryRepository struct {
	db *gorm.DB
}

// NewRegistryRepository creates a new RegistryRepository instance
func NewRegistryRepository(db *gorm.DB) RegistryRepository {
	return &registryRepository{db: db}
}

// UpsertToken creates or replaces the row for token.Address
func (r *registryRepository) UpsertToken(ctx context.Context, token *models.SupportedToken) error {
	var existing models.SupportedToken
	err := r.db.WithContext(ctx).Where("address = ?", token.Address).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if token.ID == "" {
			token.ID = uuid.New().String()
		}
		return r.db.WithContext(ctx).Create(token).Error
	}
	if err != nil {
		return err
	}
	token.ID = existing.ID
	token.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(token).Error
}

// ListTokens retrieves every known token row
func (r *registryRepository) ListTokens(ctx context.Context) ([]*models.SupportedToken, error) {
	var tokens []*models.SupportedToken
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&tokens).Error
	return tokens, err
}

// UpsertRouter creates or replaces the whitelist row for router
func (r *registryRepository) UpsertRouter(ctx context.Context, router string, whitelisted bool) error {
	var existing models.RouterWhitelistEntry
	err := r.db.WithContext(ctx).Where("router = ?", router).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(&models.RouterWhitelistEntry{
			ID:          uuid.New().String(),
			Router:      router,
			Whitelisted: whitelisted,
		}).Error
	}
	if err != nil {
		return err
	}
	existing.Whitelisted = whitelisted
	return r.db.WithContext(ctx).Save(&existing).Error
}

// ListRouters retrieves every router whitelist row
func (r *registryRepository) ListRouters(ctx context.Context) ([]*models.RouterWhitelistEntry, error) {
	var routers []*models.RouterWhitelistEntry
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&routers).Error
	return routers, err
}
