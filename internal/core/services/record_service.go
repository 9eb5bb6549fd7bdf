package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/adapters/persistence/repositories"
)

// RecordService exposes the redemption audit trail
type RecordService struct {
	recordRepo repositories.RecordRepository
}

// NewRecordService creates a new record service
func NewRecordService(recordRepo repositories.RecordRepository) *RecordService {
	return &RecordService{recordRepo: recordRepo}
}

// RecordGroup is one audit row: every code a user received in a single
// redemption, collapsed for display
type RecordGroup struct {
	BatchID   string    `json:"batch_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Codes     string    `json:"codes"`
	Count     int       `json:"count"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// ListAll returns the full audit trail grouped by redemption batch,
// newest batch first
func (s *RecordService) ListAll(ctx context.Context) ([]*RecordGroup, error) {
	records, err := s.recordRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return groupByBatch(records), nil
}

// ListByUser returns one user's audit trail grouped by redemption batch,
// newest batch first
func (s *RecordService) ListByUser(ctx context.Context, userID uint) ([]*RecordGroup, error) {
	records, err := s.recordRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return groupByBatch(records), nil
}

// CountToday counts redemption records since local midnight
func (s *RecordService) CountToday(ctx context.Context) (int64, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.recordRepo.CountSince(ctx, midnight)
}

// groupByBatch collapses per-code records into per-batch rows. Input is
// ordered newest first; groups keep the position of their newest member.
// Records written before batch ids existed get a synthetic per-record key
// so they render as single-code rows.
func groupByBatch(records []*models.RedemptionRecord) []*RecordGroup {
	groups := make(map[string]*RecordGroup)
	var order []string

	for _, rec := range records {
		key := rec.BatchID
		if key == "" {
			key = fmt.Sprintf("record-%d", rec.ID)
		}

		group, ok := groups[key]
		if !ok {
			group = &RecordGroup{
				BatchID:   rec.BatchID,
				UserID:    rec.UserID,
				ClaimedAt: rec.ClaimedAt,
			}
			if rec.User != nil {
				group.Username = rec.User.Username
			}
			groups[key] = group
			order = append(order, key)
		}

		group.Count++
		if group.Codes == "" {
			group.Codes = rec.CodeValue
		} else {
			group.Codes = strings.Join([]string{group.Codes, rec.CodeValue}, " ")
		}
		if rec.ClaimedAt.Before(group.ClaimedAt) {
			group.ClaimedAt = rec.ClaimedAt
		}
	}

	result := make([]*RecordGroup, len(order))
	for i, key := range order {
		result[i] = groups[key]
	}
	return result
}
