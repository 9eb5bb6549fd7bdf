package repositories

import (
	"context"
	"time"

	"bosscode-hub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername gets a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// UpdatePassword sets a new password hash for a user
func (r *userRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password", passwordHash).Error
}

// List lists users with pagination, newest first
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ExistsByUsername checks if username exists
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// CountByRole counts users holding the given role
func (r *userRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

// SetQuota sets remaining claims for a single user
func (r *userRepository) SetQuota(ctx context.Context, id uint, value uint) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("remaining_claims", value).Error
}

// SetQuotaRange sets remaining claims for all non-SUPERADMIN users in an id
// range, excluding the actor, and returns the number of rows affected
func (r *userRepository) SetQuotaRange(ctx context.Context, startID, endID uint, value uint, actorID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id BETWEEN ? AND ?", startID, endID).
		Where("id <> ?", actorID).
		Where("role <> ?", models.RoleSuperAdmin).
		Update("remaining_claims", value)
	return result.RowsAffected, result.Error
}

// SetQuotaByIDs sets remaining claims for an explicit id set, excluding
// SUPERADMIN rows and the actor, and returns the number of rows affected
func (r *userRepository) SetQuotaByIDs(ctx context.Context, ids []uint, value uint, actorID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN ?", ids).
		Where("id <> ?", actorID).
		Where("role <> ?", models.RoleSuperAdmin).
		Update("remaining_claims", value)
	return result.RowsAffected, result.Error
}

// DeleteCascade deletes a user together with their redemption records and
// refresh tokens, in one transaction
func (r *userRepository) DeleteCascade(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.RedemptionRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}

// DeleteCascadeRange deletes all non-SUPERADMIN users in an id range,
// excluding the actor, cascading their records and tokens. Returns the
// number of users deleted.
func (r *userRepository) DeleteCascadeRange(ctx context.Context, startID, endID uint, actorID uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.User{}).
			Where("id BETWEEN ? AND ?", startID, endID).
			Where("id <> ?", actorID).
			Where("role <> ?", models.RoleSuperAdmin).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("user_id IN ?", ids).Delete(&models.RedemptionRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id IN ?", ids).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.User{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// ApplyDailyReset restores remaining claims to the daily quota once per
// calendar day. The guard on last_reset_date makes repeated calls on the
// same day no-ops.
func (r *userRepository) ApplyDailyReset(ctx context.Context, id uint, today time.Time) error {
	day := dateOnly(today)
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Where("last_reset_date IS NULL OR last_reset_date < ?", day).
		Updates(map[string]interface{}{
			"remaining_claims": gorm.Expr("daily_quota"),
			"last_reset_date":  day,
		}).Error
}

// ResetStaleQuotas applies the daily reset to every user whose
// last_reset_date predates today. Used by the nightly sweep; the lazy
// per-session check covers anyone this misses.
func (r *userRepository) ResetStaleQuotas(ctx context.Context, today time.Time) (int64, error) {
	day := dateOnly(today)
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("last_reset_date IS NULL OR last_reset_date < ?", day).
		Updates(map[string]interface{}{
			"remaining_claims": gorm.Expr("daily_quota"),
			"last_reset_date":  day,
		})
	return result.RowsAffected, result.Error
}

// dateOnly truncates a timestamp to its calendar date in the process-local zone
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
