package handlers

import (
	"errors"
	"io"
	"strconv"

	"bosscode-hub/internal/adapters/persistence/repositories"
	"bosscode-hub/internal/core/services"
	"bosscode-hub/internal/pkg/pagination"
	"bosscode-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// maxImportBytes caps uploaded code list files at 5 MB
const maxImportBytes = 5 << 20

// CodeHandler handles boss code inventory endpoints
type CodeHandler struct {
	codeService *services.CodeService
}

// NewCodeHandler creates a new code handler
func NewCodeHandler(codeService *services.CodeService) *CodeHandler {
	return &CodeHandler{codeService: codeService}
}

// ImportRequest represents a pasted-text import body
type ImportRequest struct {
	Content string `json:"content"`
}

// DeleteRangeRequest represents an id-range delete body
type DeleteRangeRequest struct {
	StartID uint `json:"start_id"`
	EndID   uint `json:"end_id"`
}

// Import handles bulk code import from pasted text
// @Summary Import codes
// @Description Parse pasted text and store every new 5-character code
// @Tags Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ImportRequest true "Raw code text"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /codes/import [post]
func (h *CodeHandler) Import(c *fiber.Ctx) error {
	var req ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Content == "" {
		return response.BadRequest(c, "Content is required")
	}

	result, err := h.codeService.Import(c.Context(), req.Content)
	if err != nil {
		if errors.Is(err, services.ErrNoValidCodes) {
			return response.BadRequest(c, "No valid codes found in input")
		}
		return response.InternalServerError(c, "Failed to import codes")
	}

	return response.Created(c, "Codes imported successfully", result)
}

// ImportFile handles bulk code import from an uploaded text file
// @Summary Import codes from file
// @Description Parse an uploaded text file and store every new 5-character code
// @Tags Codes
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Code list file"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /codes/import-file [post]
func (h *CodeHandler) ImportFile(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required")
	}
	if fileHeader.Size > maxImportBytes {
		return response.BadRequest(c, "File too large (max 5 MB)")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to open uploaded file")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		return response.InternalServerError(c, "Failed to read uploaded file")
	}

	result, err := h.codeService.Import(c.Context(), string(content))
	if err != nil {
		if errors.Is(err, services.ErrNoValidCodes) {
			return response.BadRequest(c, "No valid codes found in file")
		}
		return response.InternalServerError(c, "Failed to import codes")
	}

	return response.Created(c, "Codes imported successfully", result)
}

// List handles code listing
// @Summary List codes
// @Description List codes filtered by status (all, unclaimed, claimed)
// @Tags Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter: all, unclaimed, claimed"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /codes [get]
func (h *CodeHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	input := &services.ListCodesInput{
		Filter: repositories.CodeFilter(c.Query("status", "all")),
		Offset: params.Offset,
		Limit:  params.Limit,
	}

	codes, total, err := h.codeService.List(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list codes")
	}

	return response.Success(c, "Codes retrieved successfully",
		pagination.NewResponse(codes, params, total))
}

// Stats handles inventory stats
// @Summary Code inventory stats
// @Description Return total, unclaimed and claimed code counts
// @Tags Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /codes/stats [get]
func (h *CodeHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.codeService.Stats(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get code stats")
	}

	return response.Success(c, "Code stats retrieved successfully", stats)
}

// Delete handles single code deletion
// @Summary Delete code
// @Description Delete one code together with its redemption records
// @Tags Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Code ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /codes/{id} [delete]
func (h *CodeHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid code ID")
	}

	if err := h.codeService.Delete(c.Context(), uint(id)); err != nil {
		if errors.Is(err, services.ErrCodeNotFound) {
			return response.NotFound(c, "Code not found")
		}
		return response.InternalServerError(c, "Failed to delete code")
	}

	return response.Success(c, "Code deleted successfully", nil)
}

// DeleteRange handles id-range code deletion
// @Summary Delete codes by id range
// @Description Delete every code whose id falls in the inclusive range
// @Tags Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body DeleteRangeRequest true "ID range"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /codes/range [delete]
func (h *CodeHandler) DeleteRange(c *fiber.Ctx) error {
	var req DeleteRangeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	deleted, err := h.codeService.DeleteRange(c.Context(), req.StartID, req.EndID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRange):
			return response.BadRequest(c, "Start ID must not exceed end ID")
		case errors.Is(err, services.ErrEmptyRange):
			return response.NotFound(c, "No codes in the given range")
		default:
			return response.InternalServerError(c, "Failed to delete codes")
		}
	}

	return response.Success(c, "Codes deleted successfully", fiber.Map{
		"deleted": deleted,
	})
}
