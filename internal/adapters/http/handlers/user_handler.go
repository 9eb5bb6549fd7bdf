package handlers

import (
	"errors"
	"strconv"

	"bosscode-hub/internal/core/services"
	"bosscode-hub/internal/pkg/pagination"
	"bosscode-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// SetQuotaRequest represents a single quota update body
type SetQuotaRequest struct {
	RemainingClaims uint `json:"remaining_claims"`
}

// SetQuotaRangeRequest represents a range quota update body
type SetQuotaRangeRequest struct {
	StartID         uint `json:"start_id"`
	EndID           uint `json:"end_id"`
	RemainingClaims uint `json:"remaining_claims"`
}

// SetQuotaListRequest represents an id-list quota update body
type SetQuotaListRequest struct {
	IDs             []uint `json:"ids"`
	RemainingClaims uint   `json:"remaining_claims"`
}

// SetRoleRequest represents a role change body
type SetRoleRequest struct {
	Role string `json:"role"`
}

// DeleteUserRangeRequest represents an id-range account delete body
type DeleteUserRangeRequest struct {
	StartID uint `json:"start_id"`
	EndID   uint `json:"end_id"`
}

// ChangePasswordRequest represents an authenticated password change body
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// actor builds the service-layer identity from the auth middleware locals
func actor(c *fiber.Ctx) (services.Actor, bool) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return services.Actor{}, false
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{ID: userID, Role: role}, true
}

// List handles user listing
// @Summary List users
// @Description List all accounts, newest first
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	input := &services.ListUsersInput{
		Offset: params.Offset,
		Limit:  params.Limit,
	}

	users, total, err := h.userService.ListUsers(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list users")
	}

	return response.Success(c, "Users retrieved successfully",
		pagination.NewResponse(users, params, total))
}

// SetQuota handles a single user quota update
// @Summary Set user quota
// @Description Set remaining claims for one user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body SetQuotaRequest true "New quota"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/quota [patch]
func (h *UserHandler) SetQuota(c *fiber.Ctx) error {
	act, ok := actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req SetQuotaRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.userService.SetQuota(c.Context(), act, uint(id), req.RemainingClaims); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrSuperAdminProtected):
			return response.Forbidden(c, "Superadmin accounts can only be managed by a superadmin")
		default:
			return response.InternalServerError(c, "Failed to set quota")
		}
	}

	return response.Success(c, "Quota updated successfully", nil)
}

// SetQuotaRange handles an id-range quota update
// @Summary Set quota by id range
// @Description Set remaining claims for every eligible user in an inclusive id range
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SetQuotaRangeRequest true "Range and new quota"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /users/quota/range [patch]
func (h *UserHandler) SetQuotaRange(c *fiber.Ctx) error {
	act, ok := actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req SetQuotaRangeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	affected, err := h.userService.SetQuotaRange(c.Context(), act, req.StartID, req.EndID, req.RemainingClaims)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRange) {
			return response.BadRequest(c, "Start ID must not exceed end ID")
		}
		return response.InternalServerError(c, "Failed to set quotas")
	}

	return response.Success(c, "Quotas updated successfully", fiber.Map{
		"affected": affected,
	})
}

// SetQuotaList handles an explicit id-list quota update
// @Summary Set quota by id list
// @Description Set remaining claims for an explicit set of user ids
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SetQuotaListRequest true "IDs and new quota"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /users/quota [patch]
func (h *UserHandler) SetQuotaList(c *fiber.Ctx) error {
	act, ok := actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req SetQuotaListRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	affected, err := h.userService.SetQuotaList(c.Context(), act, req.IDs, req.RemainingClaims)
	if err != nil {
		if errors.Is(err, services.ErrNoUsersAffected) {
			return response.BadRequest(c, "At least one user ID is required")
		}
		return response.InternalServerError(c, "Failed to set quotas")
	}

	return response.Success(c, "Quotas updated successfully", fiber.Map{
		"affected": affected,
	})
}

// SetRole handles a role change
// @Summary Set user role
// @Description Change one user's role
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body SetRoleRequest true "New role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/role [patch]
func (h *UserHandler) SetRole(c *fiber.Ctx) error {
	act, ok := actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.userService.SetRole(c.Context(), act, uint(id), req.Role); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Invalid role")
		case errors.Is(err, services.ErrCannotChangeOwnRole):
			return response.Forbidden(c, "You cannot change your own role")
		case errors.Is(err, services.ErrSuperAdminProtected):
			return response.Forbidden(c, "Superadmin accounts can only be managed by a superadmin")
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to set role")
		}
	}

	return response.Success(c, "Role updated successfully", nil)
}

// Delete handles account deletion
// @Summary Delete user
// @Description Delete one account with its redemption records and sessions
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	act, ok := actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.userService.DeleteUser(c.Context(), act, uint(id)); err != nil {
		switch {
		case errors.Is(err, services.ErrSuperAdminOnly):
			return response.Forbidden(c, "Only a superadmin can delete accounts")
		case errors.Is(err, services.ErrCannotDeleteSelf):
			return response.Forbidden(c, "You cannot delete your own account")
		case errors.Is(err, services.ErrSuperAdminProtected):
			return response.Forbidden(c, "Superadmin accounts cannot be deleted")
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to delete user")
		}
	}

	return response.Success(c, "User deleted successfully", nil)
}

// DeleteRange handles id-range account deletion
// @Summary Delete users by id range
// @Description Delete every eligible account in an inclusive id range
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body DeleteUserRangeRequest true "ID range"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users/range [delete]
func (h *UserHandler) DeleteRange(c *fiber.Ctx) error {
	act, ok := actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req DeleteUserRangeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	deleted, err := h.userService.DeleteUserRange(c.Context(), act, req.StartID, req.EndID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSuperAdminOnly):
			return response.Forbidden(c, "Only a superadmin can delete accounts")
		case errors.Is(err, services.ErrInvalidRange):
			return response.BadRequest(c, "Start ID must not exceed end ID")
		default:
			return response.InternalServerError(c, "Failed to delete users")
		}
	}

	return response.Success(c, "Users deleted successfully", fiber.Map{
		"deleted": deleted,
	})
}

// ChangePassword handles an authenticated password change
// @Summary Change password
// @Description Change the caller's own password after verifying the old one
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChangePasswordRequest true "Old and new passwords"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/me/password [patch]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return response.BadRequest(c, "Old and new passwords are required")
	}

	if err := h.userService.ChangePassword(c.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrOldPasswordWrong):
			return response.BadRequest(c, "Old password is incorrect")
		case errors.Is(err, services.ErrPasswordTooShort):
			return response.BadRequest(c, "Password must be at least 6 characters")
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to change password")
		}
	}

	return response.Success(c, "Password changed successfully", nil)
}
