package services

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/adapters/persistence/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Redemption errors
var (
	ErrOutOfStock     = errors.New("no unclaimed codes left")
	ErrQuotaExhausted = errors.New("no remaining claims")
	ErrClaimConflict  = errors.New("claim conflicted with a concurrent redemption, try again")
)

// claimRetries bounds the optimistic retry loop so contended claims fail
// with ErrClaimConflict instead of starving.
const claimRetries = 3

// RedemptionService allocates unclaimed codes to users. All mutation for one
// claim happens inside a single transaction: a code transitions
// unclaimed to claimed at most once, ever, across all concurrent callers.
type RedemptionService struct {
	db       *gorm.DB
	userRepo repositories.UserRepository

	mu  sync.Mutex
	rng *rand.Rand

	// now is injectable for calendar-date tests
	now func() time.Time
}

// NewRedemptionService creates a new redemption service. The random source
// is seeded from crypto/rand.
func NewRedemptionService(db *gorm.DB, userRepo repositories.UserRepository) *RedemptionService {
	var seed int64
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}

	return &RedemptionService{
		db:       db,
		userRepo: userRepo,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
}

// WithClock overrides the service clock (tests)
func (s *RedemptionService) WithClock(now func() time.Time) *RedemptionService {
	s.now = now
	return s
}

// WithRand overrides the random source (tests)
func (s *RedemptionService) WithRand(rng *rand.Rand) *RedemptionService {
	s.rng = rng
	return s
}

// ClaimResult represents the outcome of one redemption call
type ClaimResult struct {
	Granted   []*models.BossCode `json:"granted"`
	BatchID   string             `json:"batch_id"`
	Shortfall bool               `json:"shortfall"`
	Remaining uint               `json:"remaining_claims"`
}

// ClaimAll grants the requesting user up to remaining_claims distinct unused
// codes, selected uniformly at random without replacement from the unclaimed
// pool. The codes are marked used, one audit record per code is appended
// under a fresh batch id, and the quota is decremented by the granted count,
// all in one atomic unit. Shortfall reports that the pool held fewer codes
// than the user could claim; it is informational, not an error.
func (s *RedemptionService) ClaimAll(ctx context.Context, accountID uint) (*ClaimResult, error) {
	var result *ClaimResult
	var err error

	for attempt := 0; attempt < claimRetries; attempt++ {
		result, err = s.claimOnce(ctx, accountID)
		if !errors.Is(err, ErrClaimConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	log.Printf("🎁 User %d claimed %d codes (batch %s, shortfall=%v)",
		accountID, len(result.Granted), result.BatchID, result.Shortfall)
	return result, nil
}

// claimOnce runs one transactional claim attempt
func (s *RedemptionService) claimOnce(ctx context.Context, accountID uint) (*ClaimResult, error) {
	var result ClaimResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// Daily reset runs before the quota check so a stale account gets
		// today's allowance inside the same transaction.
		if err := s.applyDailyReset(tx, &user); err != nil {
			return err
		}

		if user.RemainingClaims == 0 {
			return ErrQuotaExhausted
		}

		var poolIDs []uint
		if err := tx.Model(&models.BossCode{}).
			Where("is_used = ?", false).
			Pluck("id", &poolIDs).Error; err != nil {
			return err
		}
		if len(poolIDs) == 0 {
			return ErrOutOfStock
		}

		want := int(user.RemainingClaims)
		n := want
		if len(poolIDs) < n {
			n = len(poolIDs)
		}

		selected := s.sample(poolIDs, n)

		var codes []*models.BossCode
		if err := tx.Where("id IN ?", selected).Find(&codes).Error; err != nil {
			return err
		}

		batchID := uuid.New().String()
		claimedAt := s.now()

		for _, code := range codes {
			// Guarded update keyed by code id: if another transaction claimed
			// this code first, zero rows change and the attempt is retried.
			res := tx.Model(&models.BossCode{}).
				Where("id = ? AND is_used = ?", code.ID, false).
				Updates(map[string]interface{}{
					"is_used":    true,
					"claimed_by": accountID,
					"claimed_at": claimedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrClaimConflict
			}

			record := &models.RedemptionRecord{
				UserID:    accountID,
				CodeID:    code.ID,
				CodeValue: code.Value,
				BatchID:   batchID,
				ClaimedAt: claimedAt,
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}

			code.IsUsed = true
			code.ClaimedBy = &accountID
			code.ClaimedAt = &claimedAt
		}

		// Guarded decrement: a concurrent claim by the same account must
		// never overdraw the quota.
		res := tx.Model(&models.User{}).
			Where("id = ? AND remaining_claims >= ?", accountID, n).
			Update("remaining_claims", gorm.Expr("remaining_claims - ?", n))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrClaimConflict
		}

		// Report the stored post-decrement balance, not the snapshot read at
		// the top of the transaction, which another committed claim by the
		// same account may have already lowered.
		var after models.User
		if err := tx.Select("remaining_claims").First(&after, accountID).Error; err != nil {
			return err
		}

		result = ClaimResult{
			Granted:   codes,
			BatchID:   batchID,
			Shortfall: len(poolIDs) < want,
			Remaining: after.RemainingClaims,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// sample picks n ids uniformly at random without replacement
func (s *RedemptionService) sample(ids []uint, n int) []uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	shuffled := make([]uint, len(ids))
	copy(shuffled, ids)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// EnsureDailyReset restores the account's remaining claims to its daily
// quota once per calendar day. Safe to call on every session touchpoint;
// repeated calls on the same day are no-ops.
func (s *RedemptionService) EnsureDailyReset(ctx context.Context, accountID uint) error {
	return s.userRepo.ApplyDailyReset(ctx, accountID, s.now())
}

// applyDailyReset is the in-transaction variant of the reset policy
func (s *RedemptionService) applyDailyReset(tx *gorm.DB, user *models.User) error {
	today := dateOf(s.now())
	if user.LastResetDate != nil && !user.LastResetDate.Before(today) {
		return nil
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", user.ID).
		Where("last_reset_date IS NULL OR last_reset_date < ?", today).
		Updates(map[string]interface{}{
			"remaining_claims": gorm.Expr("daily_quota"),
			"last_reset_date":  today,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		user.RemainingClaims = user.DailyQuota
		user.LastResetDate = &today
	}
	return nil
}

// dateOf truncates a timestamp to its calendar date in the process-local zone
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
