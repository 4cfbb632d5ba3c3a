package repository

import (
	"context"
	"errors"

	"issuance-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NonceRepository defines the interface for permit replay counter
// persistence
type NonceRepository interface {
	Set(ctx context.Context, owner string, nonce uint64) error
	List(ctx context.Context) ([]*models.PermitNonce, error)
}

type nonceRepository struct {
	db *gorm.DB
}

// NewNonceRepository creates a new NonceRepository instance
func NewNonceRepository(db *gorm.DB) NonceRepository {
	return &nonceRepository{db: db}
}

// Set creates or replaces owner's nonce row
func (r *nonceRepository) Set(ctx context.Context, owner string, nonce uint64) error {
	var existing models.PermitNonce
	err := r.db.WithContext(ctx).Where("owner = ?", owner).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(&models.PermitNonce{
			ID:    uuid.New().String(),
			Owner: owner,
			Nonce: nonce,
		}).Error
	}
	if err != nil {
		return err
	}
	existing.Nonce = nonce
	return r.db.WithContext(ctx).Save(&existing).Error
}

// List retrieves every nonce row
func (r *nonceRepository) List(ctx context.Context) ([]*models.PermitNonce, error) {
	var nonces []*models.PermitNonce
	err := r.db.WithContext(ctx).Find(&nonces).Error
	return nonces, err
}
