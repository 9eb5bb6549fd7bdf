package services

import (
	"context"

	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/adapters/persistence/repositories"
)

// DashboardService aggregates the admin landing-page numbers
type DashboardService struct {
	userRepo  repositories.UserRepository
	codeRepo  repositories.CodeRepository
	recordSvc *RecordService
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	userRepo repositories.UserRepository,
	codeRepo repositories.CodeRepository,
	recordSvc *RecordService,
) *DashboardService {
	return &DashboardService{
		userRepo:  userRepo,
		codeRepo:  codeRepo,
		recordSvc: recordSvc,
	}
}

// DashboardStats represents the admin overview numbers
type DashboardStats struct {
	TotalCodes     int64 `json:"total_codes"`
	UnclaimedCodes int64 `json:"unclaimed_codes"`
	ClaimedCodes   int64 `json:"claimed_codes"`
	TotalUsers     int64 `json:"total_users"`
	SubAdmins      int64 `json:"sub_admins"`
	ClaimsToday    int64 `json:"claims_today"`
}

// GetStats collects the overview counters in one pass
func (s *DashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	total, unclaimed, claimed, err := s.codeRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.CountByRole(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}
	subAdmins, err := s.userRepo.CountByRole(ctx, models.RoleSubAdmin)
	if err != nil {
		return nil, err
	}

	claimsToday, err := s.recordSvc.CountToday(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalCodes:     total,
		UnclaimedCodes: unclaimed,
		ClaimedCodes:   claimed,
		TotalUsers:     users,
		SubAdmins:      subAdmins,
		ClaimsToday:    claimsToday,
	}, nil
}
