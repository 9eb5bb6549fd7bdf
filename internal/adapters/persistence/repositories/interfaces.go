package repositories

import (
	"context"
	"time"

	"bosscode-hub/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	SetQuota(ctx context.Context, id uint, value uint) error
	// Batch variants always skip SUPERADMIN rows and the actor's own id and
	// report the number of rows actually affected.
	SetQuotaRange(ctx context.Context, startID, endID uint, value uint, actorID uint) (int64, error)
	SetQuotaByIDs(ctx context.Context, ids []uint, value uint, actorID uint) (int64, error)
	DeleteCascade(ctx context.Context, id uint) error
	DeleteCascadeRange(ctx context.Context, startID, endID uint, actorID uint) (int64, error)
	ApplyDailyReset(ctx context.Context, id uint, today time.Time) error
	ResetStaleQuotas(ctx context.Context, today time.Time) (int64, error)
}

// CodeRepository defines boss code repository interface
type CodeRepository interface {
	GetByID(ctx context.Context, id uint) (*models.BossCode, error)
	// InsertNew stores the given values, skipping ones already present.
	// Returns the created rows and the number of values skipped as duplicates.
	InsertNew(ctx context.Context, values []string) ([]*models.BossCode, int, error)
	List(ctx context.Context, filter CodeFilter, offset, limit int) ([]*models.BossCode, int64, error)
	DeleteCascade(ctx context.Context, id uint) error
	DeleteCascadeRange(ctx context.Context, startID, endID uint) (int64, error)
	CountByStatus(ctx context.Context) (total, unclaimed, claimed int64, err error)
}

// CodeFilter selects which codes List returns
type CodeFilter string

const (
	CodeFilterAll       CodeFilter = "all"
	CodeFilterUnclaimed CodeFilter = "unclaimed"
	CodeFilterClaimed   CodeFilter = "claimed"
)

// RecordRepository defines redemption record repository interface.
// Records are created only by the redemption engine, inside its transaction.
type RecordRepository interface {
	ListAll(ctx context.Context) ([]*models.RedemptionRecord, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.RedemptionRecord, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) (int64, error)
}
