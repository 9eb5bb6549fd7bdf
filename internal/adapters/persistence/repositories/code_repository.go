package repositories

import (
	"context"

	"bosscode-hub/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// codeRepository implements CodeRepository interface
type codeRepository struct {
	db *gorm.DB
}

// NewCodeRepository creates a new boss code repository
func NewCodeRepository(db *gorm.DB) CodeRepository {
	return &codeRepository{db: db}
}

// GetByID gets a code by ID
func (r *codeRepository) GetByID(ctx context.Context, id uint) (*models.BossCode, error) {
	var code models.BossCode
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// InsertNew stores the given values, skipping ones already present.
// A value colliding with a stored code counts as a duplicate, not an error.
// Dedup happens at the insert itself, so a value landed by a concurrent
// import between check and write still counts as a duplicate instead of
// failing the whole batch on the unique index.
func (r *codeRepository) InsertNew(ctx context.Context, values []string) ([]*models.BossCode, int, error) {
	var created []*models.BossCode
	duplicates := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, v := range values {
			code := &models.BossCode{Value: v}
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(code)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				duplicates++
				continue
			}
			created = append(created, code)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return created, duplicates, nil
}

// List lists codes by filter with pagination. Unclaimed and full listings
// are ordered by recency of creation; claimed codes by claim time.
func (r *codeRepository) List(ctx context.Context, filter CodeFilter, offset, limit int) ([]*models.BossCode, int64, error) {
	var codes []*models.BossCode
	var total int64

	query := r.db.WithContext(ctx).Model(&models.BossCode{})
	switch filter {
	case CodeFilterUnclaimed:
		query = query.Where("is_used = ?", false).Order("id DESC")
	case CodeFilterClaimed:
		query = query.Where("is_used = ?", true).Order("claimed_at DESC")
	default:
		query = query.Order("id DESC")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Find(&codes).Error; err != nil {
		return nil, 0, err
	}

	return codes, total, nil
}

// DeleteCascade deletes one code and its redemption records atomically.
// Returns gorm.ErrRecordNotFound if the code does not exist.
func (r *codeRepository) DeleteCascade(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var code models.BossCode
		if err := tx.Where("id = ?", id).First(&code).Error; err != nil {
			return err
		}
		if err := tx.Where("code_id = ?", id).Delete(&models.RedemptionRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.BossCode{}, id).Error
	})
}

// DeleteCascadeRange deletes all codes in an id range with their redemption
// records and returns the number of codes deleted. A range matching nothing
// returns gorm.ErrRecordNotFound and leaves the store unchanged.
func (r *codeRepository) DeleteCascadeRange(ctx context.Context, startID, endID uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.BossCode{}).
			Where("id BETWEEN ? AND ?", startID, endID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("code_id IN (?)",
			tx.Model(&models.BossCode{}).Select("id").Where("id BETWEEN ? AND ?", startID, endID),
		).Delete(&models.RedemptionRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("id BETWEEN ? AND ?", startID, endID).Delete(&models.BossCode{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// CountByStatus returns inventory totals
func (r *codeRepository) CountByStatus(ctx context.Context) (total, unclaimed, claimed int64, err error) {
	db := r.db.WithContext(ctx).Model(&models.BossCode{})
	if err = db.Count(&total).Error; err != nil {
		return
	}
	if err = r.db.WithContext(ctx).Model(&models.BossCode{}).Where("is_used = ?", false).Count(&unclaimed).Error; err != nil {
		return
	}
	err = r.db.WithContext(ctx).Model(&models.BossCode{}).Where("is_used = ?", true).Count(&claimed).Error
	return
}
