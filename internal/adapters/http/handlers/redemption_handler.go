package handlers

import (
	"errors"

	"bosscode-hub/internal/core/services"
	"bosscode-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RedemptionHandler handles code redemption endpoints
type RedemptionHandler struct {
	redemptionService *services.RedemptionService
	recordService     *services.RecordService
}

// NewRedemptionHandler creates a new redemption handler
func NewRedemptionHandler(
	redemptionService *services.RedemptionService,
	recordService *services.RecordService,
) *RedemptionHandler {
	return &RedemptionHandler{
		redemptionService: redemptionService,
		recordService:     recordService,
	}
}

// Claim handles code redemption
// @Summary Claim codes
// @Description Grant the caller up to their remaining daily quota of random unclaimed codes
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /claims [post]
func (h *RedemptionHandler) Claim(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.redemptionService.ClaimAll(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuotaExhausted):
			return response.Conflict(c, "You have no remaining claims today")
		case errors.Is(err, services.ErrOutOfStock):
			return response.Conflict(c, "No unclaimed codes left")
		case errors.Is(err, services.ErrClaimConflict):
			return response.Conflict(c, "Claim conflicted with another redemption, please try again")
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to claim codes")
		}
	}

	message := "Codes claimed successfully"
	if result.Shortfall {
		message = "Codes claimed, but fewer were available than your quota"
	}

	return response.Success(c, message, result)
}

// MyClaims returns the caller's redemption history
// @Summary My claim history
// @Description List the caller's past redemptions grouped by batch, newest first
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /claims/my [get]
func (h *RedemptionHandler) MyClaims(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groups, err := h.recordService.ListByUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list claims")
	}

	return response.Success(c, "Claims retrieved successfully", groups)
}
