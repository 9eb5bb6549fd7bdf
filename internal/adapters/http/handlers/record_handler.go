package handlers

import (
	"bosscode-hub/internal/core/services"
	"bosscode-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RecordHandler handles redemption audit trail endpoints
type RecordHandler struct {
	recordService *services.RecordService
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(recordService *services.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

// ListAll returns the full audit trail
// @Summary List all redemption records
// @Description List every redemption grouped by batch, newest first
// @Tags Records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /records [get]
func (h *RecordHandler) ListAll(c *fiber.Ctx) error {
	groups, err := h.recordService.ListAll(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list records")
	}

	return response.Success(c, "Records retrieved successfully", groups)
}
