package repository

import (
	"context"
	"time"

	"issuance-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SnapshotRepository defines the interface for periodic reserve state
// records
type SnapshotRepository interface {
	Create(ctx context.Context, snap *models.ReserveSnapshot) error
	Latest(ctx context.Context) (*models.ReserveSnapshot, error)
	ListSince(ctx context.Context, since time.Time, limit int) ([]*models.ReserveSnapshot, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository instance
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Create appends one reserve snapshot
func (r *snapshotRepository) Create(ctx context.Context, snap *models.ReserveSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(snap).Error
}

// Latest retrieves the most recent snapshot
func (r *snapshotRepository) Latest(ctx context.Context) (*models.ReserveSnapshot, error) {
	var snap models.ReserveSnapshot
	err := r.db.WithContext(ctx).Order("created_at DESC").First(&snap).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSince retrieves snapshots taken after since, oldest first
func (r *snapshotRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]*models.ReserveSnapshot, error) {
	var snaps []*models.ReserveSnapshot
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Limit(limit).
		Find(&snaps).Error
	return snaps, err
}
