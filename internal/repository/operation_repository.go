package repository

import (
	"context"

	"issuance-backend/internal/models"

	"gorm.io/gorm"
)

// OperationRepository defines the interface for the engine's committed
// operation log persistence
type OperationRepository interface {
	Create(ctx context.Context, op *models.OperationRecord) error
	GetByID(ctx context.Context, id string) (*models.OperationRecord, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*models.OperationRecord, error)
	ListByCaller(ctx context.Context, caller string, limit int) ([]*models.OperationRecord, error)
	ListByKind(ctx context.Context, kind string, limit int) ([]*models.OperationRecord, error)
	MaxSeq(ctx context.Context) (uint64, error)
	Count(ctx context.Context) (int64, error)
}

type operationRepository struct {
	db *gorm.DB
}

// NewOperationRepository creates a new OperationRepository instance
func NewOperationRepository(db *gorm.DB) OperationRepository {
	return &operationRepository{db: db}
}

// Create appends one committed operation
func (r *operationRepository) Create(ctx context.Context, op *models.OperationRecord) error {
	return r.db.WithContext(ctx).Create(op).Error
}

// GetByID retrieves one operation by its engine UUID
func (r *operationRepository) GetByID(ctx context.Context, id string) (*models.OperationRecord, error) {
	var op models.OperationRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// ListRecent retrieves operations newest first
func (r *operationRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.OperationRecord, error) {
	var ops []*models.OperationRecord
	err := r.db.WithContext(ctx).
		Order("seq DESC").
		Limit(limit).
		Offset(offset).
		Find(&ops).Error
	return ops, err
}

// ListByCaller retrieves one caller's operations newest first
func (r *operationRepository) ListByCaller(ctx context.Context, caller string, limit int) ([]*models.OperationRecord, error) {
	var ops []*models.OperationRecord
	err := r.db.WithContext(ctx).
		Where("caller = ?", caller).
		Order("seq DESC").
		Limit(limit).
		Find(&ops).Error
	return ops, err
}

// ListByKind retrieves operations of one kind newest first
func (r *operationRepository) ListByKind(ctx context.Context, kind string, limit int) ([]*models.OperationRecord, error) {
	var ops []*models.OperationRecord
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("seq DESC").
		Limit(limit).
		Find(&ops).Error
	return ops, err
}

// MaxSeq returns the highest committed sequence number, zero when empty
func (r *operationRepository) MaxSeq(ctx context.Context) (uint64, error) {
	var seq *uint64
	err := r.db.WithContext(ctx).
		Model(&models.OperationRecord{}).
		Select("MAX(seq)").
		Scan(&seq).Error
	if err != nil || seq == nil {
		return 0, err
	}
	return *seq, nil
}

// Count returns the total number of committed operations
func (r *operationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OperationRecord{}).Count(&count).Error
	return count, err
}
