package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

type CategoryRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, categories []domain.Category) error
	List(ctx context.Context, tx *gorm.DB) ([]*domain.Category, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*domain.Category, error)
	UpdateCounts(ctx context.Context, tx *gorm.DB, name string, phraseCount, recentCount int) error
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	repoLog := baseLog.With("repo", "CategoryRepo")
	return &categoryRepo{db: db, log: repoLog}
}

// Upsert writes registry rows, refreshing targets and modifiers on conflict
// but leaving the corpus counters alone.
func (cr *categoryRepo) Upsert(ctx context.Context, tx *gorm.DB, categories []domain.Category) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(categories) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"min_target", "ideal_target", "hard_ceiling",
				"recency_target", "score_modifier", "updated_at",
			}),
		}).
		Create(&categories).Error
}

func (cr *categoryRepo) List(ctx context.Context, tx *gorm.DB) ([]*domain.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*domain.Category
	if err := transaction.WithContext(ctx).
		Order("name").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *categoryRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*domain.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result domain.Category
	if err := transaction.WithContext(ctx).
		Where("name = ?", name).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *categoryRepo) UpdateCounts(ctx context.Context, tx *gorm.DB, name string, phraseCount, recentCount int) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	res := transaction.WithContext(ctx).
		Model(&domain.Category{}).
		Where("name = ?", name).
		Updates(map[string]any{
			"phrase_count": phraseCount,
			"recent_count": recentCount,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
