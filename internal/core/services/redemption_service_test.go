package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"bosscode-hub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

func TestClaimAllGrantsUpToQuota(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedemptionService(db, newUserRepo(db)).WithRand(rand.New(rand.NewSource(1)))
	ctx := context.Background()

	user := seedUser(t, db, "player", models.RoleUser, 3, 3)
	seedCodes(t, db, "AAAAA", "BBBBB", "CCCCC", "DDDDD", "EEEEE")

	result, err := svc.ClaimAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("ClaimAll() error = %v", err)
	}

	if len(result.Granted) != 3 {
		t.Fatalf("granted = %d, want 3", len(result.Granted))
	}
	if result.Shortfall {
		t.Error("shortfall = true, want false")
	}
	if result.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", result.Remaining)
	}
	if result.BatchID == "" {
		t.Error("batch id is empty")
	}

	// Granted codes are distinct and marked used
	seen := make(map[string]bool)
	for _, code := range result.Granted {
		if seen[code.Value] {
			t.Errorf("code %s granted twice in one batch", code.Value)
		}
		seen[code.Value] = true
		if !code.IsUsed {
			t.Errorf("code %s not marked used", code.Value)
		}
		if code.ClaimedBy == nil || *code.ClaimedBy != user.ID {
			t.Errorf("code %s not attributed to user %d", code.Value, user.ID)
		}
	}

	// One audit record per granted code, all under the same batch
	var records []*models.RedemptionRecord
	if err := db.Where("batch_id = ?", result.BatchID).Find(&records).Error; err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("records = %d, want 3", len(records))
	}

	// Quota persisted
	var fresh models.User
	if err := db.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.RemainingClaims != 0 {
		t.Errorf("persisted remaining = %d, want 0", fresh.RemainingClaims)
	}
}

func TestClaimAllShortfall(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedemptionService(db, newUserRepo(db))
	ctx := context.Background()

	user := seedUser(t, db, "player", models.RoleUser, 3, 3)
	seedCodes(t, db, "AAAAA", "BBBBB")

	result, err := svc.ClaimAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("ClaimAll() error = %v", err)
	}

	if len(result.Granted) != 2 {
		t.Errorf("granted = %d, want 2", len(result.Granted))
	}
	if !result.Shortfall {
		t.Error("shortfall = false, want true")
	}
	// Partial credit: the two granted claims are spent, one is left
	if result.Remaining != 1 {
		t.Errorf("remaining = %d, want 1", result.Remaining)
	}

	// Next claim finds the pool empty
	if _, err := svc.ClaimAll(ctx, user.ID); !errors.Is(err, ErrOutOfStock) {
		t.Errorf("second ClaimAll() error = %v, want ErrOutOfStock", err)
	}
}

func TestClaimAllErrors(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedemptionService(db, newUserRepo(db))
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		seedCodes(t, db, "AAAAA")
		if _, err := svc.ClaimAll(ctx, 99999); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("ClaimAll() error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("quota exhausted", func(t *testing.T) {
		user := seedUser(t, db, "spent", models.RoleUser, 0, 1)
		// Reset already applied today, so the zero stands
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if err := db.Model(user).Update("last_reset_date", today).Error; err != nil {
			t.Fatalf("set reset date: %v", err)
		}

		if _, err := svc.ClaimAll(ctx, user.ID); !errors.Is(err, ErrQuotaExhausted) {
			t.Errorf("ClaimAll() error = %v, want ErrQuotaExhausted", err)
		}
	})

	t.Run("out of stock", func(t *testing.T) {
		if err := db.Where("1 = 1").Delete(&models.BossCode{}).Error; err != nil {
			t.Fatalf("clear codes: %v", err)
		}
		user := seedUser(t, db, "eager", models.RoleUser, 2, 2)

		if _, err := svc.ClaimAll(ctx, user.ID); !errors.Is(err, ErrOutOfStock) {
			t.Errorf("ClaimAll() error = %v, want ErrOutOfStock", err)
		}

		// Quota untouched by the failed attempt
		var fresh models.User
		if err := db.First(&fresh, user.ID).Error; err != nil {
			t.Fatalf("reload user: %v", err)
		}
		if fresh.RemainingClaims != 2 {
			t.Errorf("remaining after failed claim = %d, want 2", fresh.RemainingClaims)
		}
	})
}

func TestClaimExactlyOnceAcrossUsers(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedemptionService(db, newUserRepo(db))
	ctx := context.Background()

	const workers = 8
	users := make([]*models.User, workers)
	values := []string{"AAA01", "AAA02", "AAA03", "AAA04", "AAA05", "AAA06", "AAA07", "AAA08"}
	seedCodes(t, db, values...)
	for i := 0; i < workers; i++ {
		users[i] = seedUser(t, db, "user"+values[i], models.RoleUser, 1, 1)
	}

	var wg sync.WaitGroup
	results := make([]*ClaimResult, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ClaimAll(ctx, users[i].ID)
		}(i)
	}
	wg.Wait()

	// Every worker should succeed: pool size matches total demand
	granted := make(map[string]int)
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		for _, code := range results[i].Granted {
			granted[code.Value]++
		}
	}

	for value, n := range granted {
		if n != 1 {
			t.Errorf("code %s granted %d times, want exactly once", value, n)
		}
	}
	if len(granted) != workers {
		t.Errorf("distinct codes granted = %d, want %d", len(granted), workers)
	}

	// Audit trail matches: one record per code
	var recordCount int64
	if err := db.Model(&models.RedemptionRecord{}).Count(&recordCount).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if recordCount != workers {
		t.Errorf("records = %d, want %d", recordCount, workers)
	}
}

func TestClaimRemainingReflectsStoredQuota(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedemptionService(db, newUserRepo(db))
	ctx := context.Background()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	user := seedUser(t, db, "racer", models.RoleUser, 3, 3)
	if err := db.Model(user).Update("last_reset_date", today).Error; err != nil {
		t.Fatalf("set reset date: %v", err)
	}
	seedCodes(t, db, "AAAAA")

	// Spend one claim on the same account after the claim transaction has
	// read its quota snapshot but before the guarded decrement runs, the
	// way an interleaved claim by a second session would.
	spent := false
	err := db.Callback().Update().Before("gorm:update").Register("spend_claim_once", func(tx *gorm.DB) {
		if spent || tx.Statement.Table != "users" {
			return
		}
		spent = true
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"UPDATE users SET remaining_claims = remaining_claims - 1 WHERE id = ?", user.ID); err != nil {
			t.Errorf("interleaved decrement: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	result, err := svc.ClaimAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("ClaimAll() error = %v", err)
	}
	if len(result.Granted) != 1 {
		t.Fatalf("granted = %d, want 1", len(result.Granted))
	}

	// 3 at the snapshot, minus the interleaved claim, minus this one
	var fresh models.User
	if err := db.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.RemainingClaims != 1 {
		t.Fatalf("persisted remaining = %d, want 1", fresh.RemainingClaims)
	}
	if result.Remaining != fresh.RemainingClaims {
		t.Errorf("reported remaining = %d, stored = %d; must match", result.Remaining, fresh.RemainingClaims)
	}
}

func TestClaimRetriesAfterCodeConflict(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedemptionService(db, newUserRepo(db))
	ctx := context.Background()

	user := seedUser(t, db, "persistent", models.RoleUser, 1, 1)
	seedCodes(t, db, "AAAAA", "BBBBB")

	// Steal the whole pool out from under the first attempt only. The
	// guarded code update then changes zero rows, the attempt rolls back
	// (restoring the pool), and the retry should go through cleanly.
	stolen := false
	err := db.Callback().Update().Before("gorm:update").Register("steal_pool_once", func(tx *gorm.DB) {
		if stolen || tx.Statement.Table != "boss_codes" {
			return
		}
		stolen = true
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"UPDATE boss_codes SET is_used = 1 WHERE is_used = 0"); err != nil {
			t.Errorf("steal pool: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	result, err := svc.ClaimAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("ClaimAll() error = %v", err)
	}
	if len(result.Granted) != 1 {
		t.Errorf("granted = %d, want 1", len(result.Granted))
	}
	if result.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", result.Remaining)
	}

	// Only the successful attempt left marks behind
	var used, records int64
	if err := db.Model(&models.BossCode{}).Where("is_used = ?", true).Count(&used).Error; err != nil {
		t.Fatalf("count used: %v", err)
	}
	if used != 1 {
		t.Errorf("used codes = %d, want 1", used)
	}
	if err := db.Model(&models.RedemptionRecord{}).Count(&records).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if records != 1 {
		t.Errorf("records = %d, want 1", records)
	}
}

func TestClaimConflictExhaustsRetries(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedemptionService(db, newUserRepo(db))
	ctx := context.Background()

	user := seedUser(t, db, "unlucky", models.RoleUser, 1, 1)
	seedCodes(t, db, "AAAAA", "BBBBB")

	// Every attempt loses its selected codes to the interleaved update
	attempts := 0
	err := db.Callback().Update().Before("gorm:update").Register("steal_pool_always", func(tx *gorm.DB) {
		if tx.Statement.Table != "boss_codes" {
			return
		}
		attempts++
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"UPDATE boss_codes SET is_used = 1 WHERE is_used = 0"); err != nil {
			t.Errorf("steal pool: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	if _, err := svc.ClaimAll(ctx, user.ID); !errors.Is(err, ErrClaimConflict) {
		t.Fatalf("ClaimAll() error = %v, want ErrClaimConflict", err)
	}
	if attempts != claimRetries {
		t.Errorf("attempts = %d, want %d", attempts, claimRetries)
	}

	// Nothing persisted across the rolled-back attempts
	var used, records int64
	if err := db.Model(&models.BossCode{}).Where("is_used = ?", true).Count(&used).Error; err != nil {
		t.Fatalf("count used: %v", err)
	}
	if used != 0 {
		t.Errorf("used codes = %d, want 0", used)
	}
	if err := db.Model(&models.RedemptionRecord{}).Count(&records).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if records != 0 {
		t.Errorf("records = %d, want 0", records)
	}

	var fresh models.User
	if err := db.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.RemainingClaims != 1 {
		t.Errorf("remaining after failed claims = %d, want 1", fresh.RemainingClaims)
	}
}

func TestDailyResetOncePerDay(t *testing.T) {
	db := newTestDB(t)

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)

	svc := NewRedemptionService(db, newUserRepo(db)).WithClock(func() time.Time { return now })
	ctx := context.Background()

	user := seedUser(t, db, "returning", models.RoleUser, 0, 2)
	if err := db.Model(user).Update("last_reset_date", yesterday).Error; err != nil {
		t.Fatalf("set reset date: %v", err)
	}
	seedCodes(t, db, "AAAAA", "BBBBB", "CCCCC")

	// Stale account gets today's allowance inside the claim itself
	result, err := svc.ClaimAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("ClaimAll() error = %v", err)
	}
	if len(result.Granted) != 2 {
		t.Errorf("granted = %d, want 2 after reset", len(result.Granted))
	}

	// Second touchpoint the same day must not top the quota back up
	if err := svc.EnsureDailyReset(ctx, user.ID); err != nil {
		t.Fatalf("EnsureDailyReset() error = %v", err)
	}
	var fresh models.User
	if err := db.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.RemainingClaims != 0 {
		t.Errorf("remaining after same-day reset = %d, want 0", fresh.RemainingClaims)
	}

	// Next day the allowance returns
	tomorrow := now.AddDate(0, 0, 1)
	svc.WithClock(func() time.Time { return tomorrow })
	if err := svc.EnsureDailyReset(ctx, user.ID); err != nil {
		t.Fatalf("EnsureDailyReset() error = %v", err)
	}
	if err := db.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.RemainingClaims != 2 {
		t.Errorf("remaining after next-day reset = %d, want 2", fresh.RemainingClaims)
	}
}

func TestRecordGroupingByBatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedemptionService(db, newUserRepo(db))
	recordSvc := NewRecordService(newRecordRepo(db))
	ctx := context.Background()

	user := seedUser(t, db, "collector", models.RoleUser, 2, 2)
	seedCodes(t, db, "AAAAA", "BBBBB", "CCCCC")

	first, err := svc.ClaimAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("first ClaimAll() error = %v", err)
	}

	// Grant a second batch the next day
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("remaining_claims", 1).Error; err != nil {
		t.Fatalf("refill quota: %v", err)
	}
	second, err := svc.ClaimAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("second ClaimAll() error = %v", err)
	}

	groups, err := recordSvc.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	// Newest batch first
	if groups[0].BatchID != second.BatchID {
		t.Errorf("first group batch = %s, want newest %s", groups[0].BatchID, second.BatchID)
	}
	if groups[1].BatchID != first.BatchID {
		t.Errorf("second group batch = %s, want %s", groups[1].BatchID, first.BatchID)
	}
	if groups[1].Count != 2 {
		t.Errorf("older group count = %d, want 2", groups[1].Count)
	}
	if groups[0].Username != "collector" {
		t.Errorf("group username = %s, want collector", groups[0].Username)
	}
}
