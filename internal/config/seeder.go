package config

import (
	"log"

	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/pkg/password"

	"gorm.io/gorm"
)

// seedQuota is the daily allowance granted to the bootstrap superadmin.
// Large enough to never get in the way of inventory testing.
const seedQuota = 1000000

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedSuperAdmin(); err != nil {
		log.Printf("⚠️ Superadmin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedSuperAdmin creates the bootstrap SUPERADMIN account once. A blank
// SUPERADMIN_PASSWORD skips seeding so production cannot ship a default
// credential.
func (s *Seeder) seedSuperAdmin() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count)
	if count > 0 {
		return nil // Superadmin already exists
	}

	if s.cfg.Seed.SuperAdminPassword == "" {
		log.Println("⚠️ Skipping superadmin seed: SUPERADMIN_PASSWORD not set")
		return nil
	}

	hashedPassword, err := password.Hash(s.cfg.Seed.SuperAdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:        s.cfg.Seed.SuperAdminUsername,
		Password:        hashedPassword,
		Role:            models.RoleSuperAdmin,
		RemainingClaims: seedQuota,
		DailyQuota:      seedQuota,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Superadmin created: %s", admin.Username)
	return nil
}
