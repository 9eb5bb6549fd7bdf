package services

import (
	"context"
	"log"
	"time"

	"bosscode-hub/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// CronService owns the background schedules: the nightly quota sweep and
// expired refresh token cleanup. The sweep is a safety net; per-session
// lazy resets already cover active users.
type CronService struct {
	cron             *cron.Cron
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
}

// NewCronService creates a new cron service
func NewCronService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
) *CronService {
	return &CronService{
		cron:             cron.New(),
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
	}
}

// Start registers the schedules and starts the scheduler
func (s *CronService) Start() error {
	// Shortly after midnight so every stale account is fresh before the
	// morning traffic, even accounts that never log in.
	if _, err := s.cron.AddFunc("5 0 * * *", s.sweepQuotas); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("0 3 * * *", s.cleanupTokens); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("⏰ Cron scheduler started (quota sweep 00:05, token cleanup 03:00)")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("⏰ Cron scheduler stopped")
}

func (s *CronService) sweepQuotas() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	affected, err := s.userRepo.ResetStaleQuotas(ctx, time.Now())
	if err != nil {
		log.Printf("⚠️ Quota sweep failed: %v", err)
		return
	}
	log.Printf("✅ Quota sweep reset %d users", affected)
}

func (s *CronService) cleanupTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deleted, err := s.refreshTokenRepo.DeleteExpired(ctx)
	if err != nil {
		log.Printf("⚠️ Token cleanup failed: %v", err)
		return
	}
	log.Printf("🗑️ Removed %d expired refresh tokens", deleted)
}
