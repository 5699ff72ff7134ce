package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
)

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *domain.Category {
	tb.Helper()
	c := &domain.Category{
		Name:          name,
		MinTarget:     10,
		IdealTarget:   40,
		RecencyTarget: 0.1,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedPhrase(tb testing.TB, ctx context.Context, tx *gorm.DB, text, category string) *domain.Phrase {
	tb.Helper()
	words := strings.Fields(text)
	first := ""
	if len(words) > 0 {
		first = strings.ToLower(words[0])
	}
	p := &domain.Phrase{
		ID:        uuid.New(),
		Text:      text,
		TextKey:   strings.ToLower(text),
		Category:  category,
		FirstWord: first,
		Source:    "test",
		Score:     65,
		AddedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed phrase: %v", err)
	}
	return p
}

func SeedReviewItem(tb testing.TB, ctx context.Context, tx *gorm.DB, runID uuid.UUID, text, category string) *domain.ReviewItem {
	tb.Helper()
	ri := &domain.ReviewItem{
		ID:       uuid.New(),
		RunID:    runID,
		Text:     text,
		Category: category,
		Score:    50,
		Status:   domain.ReviewPending,
	}
	if err := tx.WithContext(ctx).Create(ri).Error; err != nil {
		tb.Fatalf("seed review item: %v", err)
	}
	return ri
}
