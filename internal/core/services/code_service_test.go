package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/adapters/persistence/repositories"
)

func TestParseCodes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "mixed whitespace",
			content: "AAAAA BBBBB\nCCCCC\n\n  DDDDD\t EEEEE",
			want:    []string{"AAAAA", "BBBBB", "CCCCC", "DDDDD", "EEEEE"},
		},
		{
			name:    "wrong length dropped",
			content: "AAAA AAAAAA AAAAA",
			want:    []string{"AAAAA"},
		},
		{
			name:    "non alphanumeric dropped",
			content: "AAA-A AA AA AB1C2",
			want:    []string{"AB1C2"},
		},
		{
			name:    "duplicates keep first seen order",
			content: "BBBBB AAAAA BBBBB AAAAA",
			want:    []string{"BBBBB", "AAAAA"},
		},
		{
			name:    "empty input",
			content: "   \n\t ",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCodes(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("parseCodes() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseCodes()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCodeServiceImport(t *testing.T) {
	db := newTestDB(t)
	svc := NewCodeService(newCodeRepo(db))
	ctx := context.Background()

	t.Run("accepts new codes", func(t *testing.T) {
		result, err := svc.Import(ctx, "AAAAA BBBBB CCCCC")
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if result.Parsed != 3 || len(result.Accepted) != 3 || result.Duplicates != 0 {
			t.Errorf("Import() = parsed %d, accepted %d, duplicates %d; want 3, 3, 0",
				result.Parsed, len(result.Accepted), result.Duplicates)
		}
	})

	t.Run("skips duplicates but keeps siblings", func(t *testing.T) {
		result, err := svc.Import(ctx, "AAAAA DDDDD")
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if len(result.Accepted) != 1 || result.Duplicates != 1 {
			t.Errorf("Import() = accepted %d, duplicates %d; want 1, 1", len(result.Accepted), result.Duplicates)
		}
		if result.Accepted[0].Value != "DDDDD" {
			t.Errorf("accepted code = %s, want DDDDD", result.Accepted[0].Value)
		}
	})

	t.Run("rejects input with no valid tokens", func(t *testing.T) {
		_, err := svc.Import(ctx, "short toolong")
		if !errors.Is(err, ErrNoValidCodes) {
			t.Errorf("Import() error = %v, want ErrNoValidCodes", err)
		}
	})

	// Accounting property: parsed always equals accepted plus duplicates
	t.Run("parsed equals accepted plus duplicates", func(t *testing.T) {
		result, err := svc.Import(ctx, "AAAAA BBBBB EEEEE FFFFF")
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if result.Parsed != len(result.Accepted)+result.Duplicates {
			t.Errorf("parsed %d != accepted %d + duplicates %d",
				result.Parsed, len(result.Accepted), result.Duplicates)
		}
	})
}

func TestCodeServiceListFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewCodeService(newCodeRepo(db))
	ctx := context.Background()

	codes := seedCodes(t, db, "AAAAA", "BBBBB", "CCCCC")

	// Claim one by hand
	user := seedUser(t, db, "claimer", "USER", 1, 1)
	if err := db.Model(codes[0]).Updates(map[string]interface{}{
		"is_used": true, "claimed_by": user.ID,
	}).Error; err != nil {
		t.Fatalf("mark claimed: %v", err)
	}

	tests := []struct {
		filter repositories.CodeFilter
		want   int64
	}{
		{repositories.CodeFilterAll, 3},
		{repositories.CodeFilterUnclaimed, 2},
		{repositories.CodeFilterClaimed, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			_, total, err := svc.List(ctx, &ListCodesInput{Filter: tt.filter, Limit: 10})
			if err != nil {
				t.Fatalf("List(%s) error = %v", tt.filter, err)
			}
			if total != tt.want {
				t.Errorf("List(%s) total = %d, want %d", tt.filter, total, tt.want)
			}
		})
	}

	t.Run("unknown filter falls back to all", func(t *testing.T) {
		_, total, err := svc.List(ctx, &ListCodesInput{Filter: "bogus", Limit: 10})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if total != 3 {
			t.Errorf("List(bogus) total = %d, want 3", total)
		}
	})
}

func TestCodeServiceDeleteRange(t *testing.T) {
	db := newTestDB(t)
	svc := NewCodeService(newCodeRepo(db))
	ctx := context.Background()

	codes := seedCodes(t, db, "AAAAA", "BBBBB", "CCCCC", "DDDDD")

	t.Run("inverted range rejected", func(t *testing.T) {
		_, err := svc.DeleteRange(ctx, 5, 2)
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("DeleteRange() error = %v, want ErrInvalidRange", err)
		}
	})

	t.Run("empty range rejected without deleting", func(t *testing.T) {
		_, err := svc.DeleteRange(ctx, codes[3].ID+100, codes[3].ID+200)
		if !errors.Is(err, ErrEmptyRange) {
			t.Errorf("DeleteRange() error = %v, want ErrEmptyRange", err)
		}

		stats, err := svc.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if stats.Total != 4 {
			t.Errorf("total after failed delete = %d, want 4", stats.Total)
		}
	})

	t.Run("deletes inclusive range", func(t *testing.T) {
		deleted, err := svc.DeleteRange(ctx, codes[0].ID, codes[1].ID)
		if err != nil {
			t.Fatalf("DeleteRange() error = %v", err)
		}
		if deleted != 2 {
			t.Errorf("deleted = %d, want 2", deleted)
		}

		stats, err := svc.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if stats.Total != 2 {
			t.Errorf("total after delete = %d, want 2", stats.Total)
		}
	})

	t.Run("single delete of missing code", func(t *testing.T) {
		if err := svc.Delete(ctx, 99999); !errors.Is(err, ErrCodeNotFound) {
			t.Errorf("Delete() error = %v, want ErrCodeNotFound", err)
		}
	})
}

func TestCodeDeleteCascadesRecords(t *testing.T) {
	db := newTestDB(t)
	svc := NewCodeService(newCodeRepo(db))
	ctx := context.Background()

	user := seedUser(t, db, "winner", models.RoleUser, 0, 3)
	codes := seedCodes(t, db, "AAAAA", "BBBBB", "CCCCC")

	// Every code has been claimed and carries one audit record
	claimedAt := time.Now()
	batches := []string{"batch-one", "batch-two", "batch-three"}
	for i, code := range codes {
		if err := db.Model(code).Updates(map[string]interface{}{
			"is_used": true, "claimed_by": user.ID, "claimed_at": claimedAt,
		}).Error; err != nil {
			t.Fatalf("mark %s claimed: %v", code.Value, err)
		}
		record := &models.RedemptionRecord{
			UserID:    user.ID,
			CodeID:    code.ID,
			CodeValue: code.Value,
			BatchID:   batches[i],
			ClaimedAt: claimedAt,
		}
		if err := db.Create(record).Error; err != nil {
			t.Fatalf("seed record for %s: %v", code.Value, err)
		}
	}

	recordsFor := func(codeID uint) int64 {
		t.Helper()
		var n int64
		if err := db.Model(&models.RedemptionRecord{}).
			Where("code_id = ?", codeID).Count(&n).Error; err != nil {
			t.Fatalf("count records: %v", err)
		}
		return n
	}

	t.Run("single delete removes exactly its records", func(t *testing.T) {
		if err := svc.Delete(ctx, codes[0].ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if n := recordsFor(codes[0].ID); n != 0 {
			t.Errorf("records left for deleted code = %d, want 0", n)
		}
		// Sibling records are untouched
		if n := recordsFor(codes[1].ID); n != 1 {
			t.Errorf("records for sibling %s = %d, want 1", codes[1].Value, n)
		}
		if n := recordsFor(codes[2].ID); n != 1 {
			t.Errorf("records for sibling %s = %d, want 1", codes[2].Value, n)
		}
	})

	t.Run("range delete removes exactly the range's records", func(t *testing.T) {
		deleted, err := svc.DeleteRange(ctx, codes[1].ID, codes[1].ID)
		if err != nil {
			t.Fatalf("DeleteRange() error = %v", err)
		}
		if deleted != 1 {
			t.Errorf("deleted = %d, want 1", deleted)
		}
		if n := recordsFor(codes[1].ID); n != 0 {
			t.Errorf("records left for deleted code = %d, want 0", n)
		}
		if n := recordsFor(codes[2].ID); n != 1 {
			t.Errorf("records for surviving code = %d, want 1", n)
		}

		var orphans int64
		if err := db.Model(&models.RedemptionRecord{}).Count(&orphans).Error; err != nil {
			t.Fatalf("count records: %v", err)
		}
		if orphans != 1 {
			t.Errorf("total records = %d, want 1", orphans)
		}
	})
}

func TestCodeServiceImportConcurrent(t *testing.T) {
	db := newTestDB(t)
	svc := NewCodeService(newCodeRepo(db))
	ctx := context.Background()

	// Both imports share BBBBB and CCCCC; whichever lands second must
	// count them as duplicates while its fresh tokens still go in.
	inputs := []string{"AAAAA BBBBB CCCCC", "BBBBB CCCCC DDDDD"}
	results := make([]*ImportResult, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input string) {
			defer wg.Done()
			results[i], errs[i] = svc.Import(ctx, input)
		}(i, input)
	}
	wg.Wait()

	accepted, duplicates := 0, 0
	for i := range inputs {
		if errs[i] != nil {
			t.Fatalf("import %d: %v", i, errs[i])
		}
		accepted += len(results[i].Accepted)
		duplicates += results[i].Duplicates
	}

	if accepted != 4 {
		t.Errorf("accepted across imports = %d, want 4", accepted)
	}
	if duplicates != 2 {
		t.Errorf("duplicates across imports = %d, want 2", duplicates)
	}

	var total int64
	if err := db.Model(&models.BossCode{}).Count(&total).Error; err != nil {
		t.Fatalf("count codes: %v", err)
	}
	if total != 4 {
		t.Errorf("stored codes = %d, want 4", total)
	}
}
