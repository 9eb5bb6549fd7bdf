package services

import (
	"testing"

	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/adapters/persistence/repositories"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the full schema.
// A single connection keeps transactions serialized the way the
// production MySQL isolation level does.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// seedUser inserts a user with the given quota state
func seedUser(t *testing.T, db *gorm.DB, username, role string, remaining, quota uint) *models.User {
	t.Helper()

	user := &models.User{
		Username:        username,
		Password:        "not-a-real-hash",
		Role:            role,
		RemainingClaims: remaining,
		DailyQuota:      quota,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

// seedCodes inserts unclaimed codes and returns them
func seedCodes(t *testing.T, db *gorm.DB, values ...string) []*models.BossCode {
	t.Helper()

	codes := make([]*models.BossCode, 0, len(values))
	for _, v := range values {
		code := &models.BossCode{Value: v}
		if err := db.Create(code).Error; err != nil {
			t.Fatalf("seed code %s: %v", v, err)
		}
		codes = append(codes, code)
	}
	return codes
}

func newCodeRepo(db *gorm.DB) repositories.CodeRepository {
	return repositories.NewCodeRepository(db)
}

func newUserRepo(db *gorm.DB) repositories.UserRepository {
	return repositories.NewUserRepository(db)
}

func newRecordRepo(db *gorm.DB) repositories.RecordRepository {
	return repositories.NewRecordRepository(db)
}
