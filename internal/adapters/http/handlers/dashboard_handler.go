package handlers

import (
	"bosscode-hub/internal/core/services"
	"bosscode-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles admin dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Stats returns the admin overview numbers
// @Summary Dashboard stats
// @Description Inventory totals, user counts and today's claim count
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.dashboardService.GetStats(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get dashboard stats")
	}

	return response.Success(c, "Dashboard stats retrieved successfully", stats)
}
