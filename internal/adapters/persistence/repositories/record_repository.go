package repositories

import (
	"context"
	"time"

	"bosscode-hub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// recordRepository implements RecordRepository interface
type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a new redemption record repository
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

// ListAll lists every redemption record with its user, newest first
func (r *recordRepository) ListAll(ctx context.Context) ([]*models.RedemptionRecord, error) {
	var records []*models.RedemptionRecord
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("claimed_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListByUser lists one user's redemption records, newest first
func (r *recordRepository) ListByUser(ctx context.Context, userID uint) ([]*models.RedemptionRecord, error) {
	var records []*models.RedemptionRecord
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("claimed_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountSince counts records claimed at or after the given time
func (r *recordRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RedemptionRecord{}).
		Where("claimed_at >= ?", since).
		Count(&count).Error
	return count, err
}
