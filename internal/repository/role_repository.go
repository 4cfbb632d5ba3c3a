package repository

import (
	"context"

	"issuance-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleRepository defines the interface for role membership persistence
type RoleRepository interface {
	Add(ctx context.Context, role, member, grantedBy string) error
	Remove(ctx context.Context, role, member string) error
	List(ctx context.Context) ([]*models.RoleAssignment, error)
	ListByRole(ctx context.Context, role string) ([]*models.RoleAssignment, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new RoleRepository instance
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// Add inserts a role membership; an existing (role, member) pair is a no-op
func (r *roleRepository) Add(ctx context.Context, role, member, grantedBy string) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RoleAssignment{}).
		Where("role = ? AND member = ?", role, member).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.RoleAssignment{
		ID:        uuid.New().String(),
		Role:      role,
		Member:    member,
		GrantedBy: grantedBy,
	}).Error
}

// Remove deletes a role membership
func (r *roleRepository) Remove(ctx context.Context, role, member string) error {
	return r.db.WithContext(ctx).
		Where("role = ? AND member = ?", role, member).
		Delete(&models.RoleAssignment{}).Error
}

// List retrieves every role membership
func (r *roleRepository) List(ctx context.Context) ([]*models.RoleAssignment, error) {
	var assignments []*models.RoleAssignment
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&assignments).Error
	return assignments, err
}

// ListByRole retrieves the members of one role
func (r *roleRepository) ListByRole(ctx context.Context, role string) ([]*models.RoleAssignment, error) {
	var assignments []*models.RoleAssignment
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}
