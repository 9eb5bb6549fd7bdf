package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// Code service errors
var (
	ErrNoValidCodes = errors.New("no valid codes found in input")
	ErrCodeNotFound = errors.New("code not found")
	ErrInvalidRange = errors.New("start id must not exceed end id")
	ErrEmptyRange   = errors.New("no codes in the given id range")
)

// CodeService handles boss code inventory business logic
type CodeService struct {
	codeRepo repositories.CodeRepository
}

// NewCodeService creates a new code service
func NewCodeService(codeRepo repositories.CodeRepository) *CodeService {
	return &CodeService{codeRepo: codeRepo}
}

// ImportResult represents the outcome of a bulk import
type ImportResult struct {
	Accepted   []*models.BossCode `json:"accepted"`
	Duplicates int                `json:"duplicates"`
	Parsed     int                `json:"parsed"`
}

// parseCodes extracts boss code tokens from free text. Tokens may be
// separated by any mix of spaces and newlines; only alphanumeric tokens of
// the canonical length survive, and the result is deduplicated preserving
// first-seen order.
func parseCodes(content string) []string {
	seen := make(map[string]bool)
	var codes []string

	for _, token := range strings.Fields(content) {
		if len(token) != models.CodeLength || !isAlphanumeric(token) {
			continue
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		codes = append(codes, token)
	}

	return codes
}

// isAlphanumeric reports whether s consists only of ASCII letters and digits
func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

// Import parses raw pasted or uploaded text and stores every new code.
// Tokens already present in the store are skipped and counted as
// duplicates; siblings are still processed.
func (s *CodeService) Import(ctx context.Context, rawText string) (*ImportResult, error) {
	codes := parseCodes(rawText)
	if len(codes) == 0 {
		return nil, ErrNoValidCodes
	}

	accepted, duplicates, err := s.codeRepo.InsertNew(ctx, codes)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Code import: %d parsed, %d accepted, %d duplicates skipped",
		len(codes), len(accepted), duplicates)

	return &ImportResult{
		Accepted:   accepted,
		Duplicates: duplicates,
		Parsed:     len(codes),
	}, nil
}

// ListCodesInput represents list codes input
type ListCodesInput struct {
	Filter repositories.CodeFilter
	Offset int
	Limit  int
}

// List lists codes by status filter
func (s *CodeService) List(ctx context.Context, input *ListCodesInput) ([]*models.BossCode, int64, error) {
	filter := input.Filter
	switch filter {
	case repositories.CodeFilterUnclaimed, repositories.CodeFilterClaimed:
	default:
		filter = repositories.CodeFilterAll
	}
	return s.codeRepo.List(ctx, filter, input.Offset, input.Limit)
}

// Delete deletes one code and its redemption records
func (s *CodeService) Delete(ctx context.Context, id uint) error {
	if err := s.codeRepo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		return err
	}
	return nil
}

// DeleteRange deletes all codes in an id range and returns how many were
// removed. A range matching zero codes fails without touching the store.
func (s *CodeService) DeleteRange(ctx context.Context, startID, endID uint) (int64, error) {
	if startID > endID {
		return 0, ErrInvalidRange
	}

	deleted, err := s.codeRepo.DeleteCascadeRange(ctx, startID, endID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrEmptyRange
		}
		return 0, err
	}

	log.Printf("🗑️ Deleted %d codes in id range [%d, %d]", deleted, startID, endID)
	return deleted, nil
}

// InventoryStats represents code inventory totals
type InventoryStats struct {
	Total     int64 `json:"total"`
	Unclaimed int64 `json:"unclaimed"`
	Claimed   int64 `json:"claimed"`
}

// Stats returns inventory totals
func (s *CodeService) Stats(ctx context.Context) (*InventoryStats, error) {
	total, unclaimed, claimed, err := s.codeRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &InventoryStats{
		Total:     total,
		Unclaimed: unclaimed,
		Claimed:   claimed,
	}, nil
}
