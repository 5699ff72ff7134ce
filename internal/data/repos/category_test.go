package repos

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/data/repos/testutil"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
)

func TestCategoryRepoUpsertRefreshesTargetsKeepsCounters(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewCategoryRepo(db, testutil.Logger(t))

	if err := repo.Upsert(ctx, nil, []domain.Category{
		{Name: "Movies & TV", MinTarget: 10, IdealTarget: 40, RecencyTarget: 0.1, ScoreModifier: 10},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.UpdateCounts(ctx, nil, "Movies & TV", 25, 3); err != nil {
		t.Fatalf("UpdateCounts: %v", err)
	}

	// Re-running the registry load must not clobber the corpus counters.
	if err := repo.Upsert(ctx, nil, []domain.Category{
		{Name: "Movies & TV", MinTarget: 20, IdealTarget: 60, RecencyTarget: 0.2, ScoreModifier: 5},
	}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := repo.GetByName(ctx, nil, "Movies & TV")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.MinTarget != 20 || got.IdealTarget != 60 || got.ScoreModifier != 5 {
		t.Errorf("targets not refreshed: %+v", got)
	}
	if got.PhraseCount != 25 || got.RecentCount != 3 {
		t.Errorf("counters clobbered: %+v", got)
	}
}

func TestCategoryRepoListOrdersByName(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewCategoryRepo(db, testutil.Logger(t))

	if err := repo.Upsert(ctx, nil, []domain.Category{
		{Name: "Sports & Athletes"},
		{Name: "Food & Drink"},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	cats, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cats) != 2 || cats[0].Name != "Food & Drink" {
		t.Errorf("unexpected order: %+v", cats)
	}
}

func TestCategoryRepoUpdateCountsMissingRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewCategoryRepo(db, testutil.Logger(t))

	if err := repo.UpdateCounts(ctx, nil, "Nope", 1, 0); err != gorm.ErrRecordNotFound {
		t.Errorf("err = %v, want ErrRecordNotFound", err)
	}
}
