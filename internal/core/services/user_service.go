package services

import (
	"context"
	"errors"

	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/adapters/persistence/repositories"
	"bosscode-hub/internal/pkg/password"

	"gorm.io/gorm"
)

// User management errors
var (
	ErrInvalidRole         = errors.New("invalid role")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrSuperAdminProtected = errors.New("superadmin accounts can only be managed by a superadmin")
	ErrSuperAdminOnly      = errors.New("operation requires superadmin role")
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
	ErrNoUsersAffected     = errors.New("no users matched the given ids")
)

// Actor is the identity context of the caller, taken from the verified
// access token and passed explicitly into every admin operation.
type Actor struct {
	ID   uint
	Role string
}

// IsSuperAdmin reports whether the actor holds the SUPERADMIN role
func (a Actor) IsSuperAdmin() bool {
	return a.Role == models.RoleSuperAdmin
}

// UserService handles user management business logic
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Offset int
	Limit  int
}

// ListUsers lists all users, newest first
func (s *UserService) ListUsers(ctx context.Context, input *ListUsersInput) ([]*models.UserResponse, int64, error) {
	users, total, err := s.userRepo.List(ctx, input.Offset, input.Limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*models.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, total, nil
}

// GetUserByID gets a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user.ToResponse(), nil
}

// SetQuota sets a user's remaining claims. Only a superadmin may touch a
// superadmin account.
func (s *UserService) SetQuota(ctx context.Context, actor Actor, targetID uint, value uint) error {
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if target.IsSuperAdmin() && !actor.IsSuperAdmin() {
		return ErrSuperAdminProtected
	}

	return s.userRepo.SetQuota(ctx, targetID, value)
}

// SetQuotaRange sets remaining claims for every eligible user in an id
// range. SUPERADMIN rows and the actor's own row are always skipped.
// Returns the number of users affected.
func (s *UserService) SetQuotaRange(ctx context.Context, actor Actor, startID, endID uint, value uint) (int64, error) {
	if startID > endID {
		return 0, ErrInvalidRange
	}
	return s.userRepo.SetQuotaRange(ctx, startID, endID, value, actor.ID)
}

// SetQuotaList sets remaining claims for an explicit id set, with the same
// exclusions as SetQuotaRange
func (s *UserService) SetQuotaList(ctx context.Context, actor Actor, ids []uint, value uint) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoUsersAffected
	}
	return s.userRepo.SetQuotaByIDs(ctx, ids, value, actor.ID)
}

// SetRole changes a user's role. Actors may never change their own role,
// non-superadmins may not touch superadmin accounts, and the SUPERADMIN
// role itself can only be granted by a superadmin.
func (s *UserService) SetRole(ctx context.Context, actor Actor, targetID uint, role string) error {
	if !models.IsValidRole(role) {
		return ErrInvalidRole
	}
	if targetID == actor.ID {
		return ErrCannotChangeOwnRole
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if (target.IsSuperAdmin() || role == models.RoleSuperAdmin) && !actor.IsSuperAdmin() {
		return ErrSuperAdminProtected
	}

	target.Role = role
	return s.userRepo.Update(ctx, target)
}

// DeleteUser deletes an account with its redemption records and sessions.
// Superadmin only; never self, never another superadmin.
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, targetID uint) error {
	if !actor.IsSuperAdmin() {
		return ErrSuperAdminOnly
	}
	if targetID == actor.ID {
		return ErrCannotDeleteSelf
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if target.IsSuperAdmin() {
		return ErrSuperAdminProtected
	}

	return s.userRepo.DeleteCascade(ctx, targetID)
}

// DeleteUserRange deletes every eligible account in an id range, cascading
// records and sessions. SUPERADMIN rows and the actor's own row are always
// skipped. Returns the number of accounts deleted.
func (s *UserService) DeleteUserRange(ctx context.Context, actor Actor, startID, endID uint) (int64, error) {
	if !actor.IsSuperAdmin() {
		return 0, ErrSuperAdminOnly
	}
	if startID > endID {
		return 0, ErrInvalidRange
	}
	return s.userRepo.DeleteCascadeRange(ctx, startID, endID, actor.ID)
}

// ChangePassword changes the caller's own password after verifying the old one
func (s *UserService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !password.Verify(oldPassword, user.Password) {
		return ErrOldPasswordWrong
	}
	if !password.Validate(newPassword) {
		return ErrPasswordTooShort
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, userID, hashed)
}
