package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

// FirstWordCount is one (category, first word) bucket of the corpus.
type FirstWordCount struct {
	Category  string
	FirstWord string
	Count     int
}

// CategoryCount is the per-category corpus tally used to seed quota state.
type CategoryCount struct {
	Category string
	Total    int
	Recent   int
}

type PhraseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, phrases []*domain.Phrase) ([]*domain.Phrase, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Phrase, error)
	List(ctx context.Context, tx *gorm.DB, category string) ([]*domain.Phrase, error)
	ListTextKeys(ctx context.Context, tx *gorm.DB) ([]string, error)
	FirstWordCounts(ctx context.Context, tx *gorm.DB) ([]FirstWordCount, error)
	FirstWordBucket(ctx context.Context, tx *gorm.DB, category, firstWord string) (int, error)
	CategoryCounts(ctx context.Context, tx *gorm.DB) ([]CategoryCount, error)
	TextKeyExists(ctx context.Context, tx *gorm.DB, textKey string) (bool, error)
	Override(ctx context.Context, tx *gorm.DB, id uuid.UUID, difficulty domain.Difficulty, reason string) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Phrase, error)
}

type phraseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPhraseRepo(db *gorm.DB, baseLog *logger.Logger) PhraseRepo {
	repoLog := baseLog.With("repo", "PhraseRepo")
	return &phraseRepo{db: db, log: repoLog}
}

func (pr *phraseRepo) Create(ctx context.Context, tx *gorm.DB, phrases []*domain.Phrase) ([]*domain.Phrase, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if len(phrases) == 0 {
		return []*domain.Phrase{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&phrases).Error; err != nil {
		return nil, err
	}
	return phrases, nil
}

func (pr *phraseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Phrase, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var result domain.Phrase
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *phraseRepo) List(ctx context.Context, tx *gorm.DB, category string) ([]*domain.Phrase, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	query := transaction.WithContext(ctx).Order("category, text")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var results []*domain.Phrase
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *phraseRepo) ListTextKeys(ctx context.Context, tx *gorm.DB) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var keys []string
	if err := transaction.WithContext(ctx).
		Model(&domain.Phrase{}).
		Pluck("text_key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (pr *phraseRepo) FirstWordCounts(ctx context.Context, tx *gorm.DB) ([]FirstWordCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []FirstWordCount
	if err := transaction.WithContext(ctx).
		Model(&domain.Phrase{}).
		Select("category, first_word, COUNT(*) AS count").
		Group("category, first_word").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *phraseRepo) FirstWordBucket(ctx context.Context, tx *gorm.DB, category, firstWord string) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.Phrase{}).
		Where("category = ? AND first_word = ?", category, firstWord).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (pr *phraseRepo) CategoryCounts(ctx context.Context, tx *gorm.DB) ([]CategoryCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []CategoryCount
	if err := transaction.WithContext(ctx).
		Model(&domain.Phrase{}).
		Select("category, COUNT(*) AS total, SUM(CASE WHEN recent THEN 1 ELSE 0 END) AS recent").
		Group("category").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *phraseRepo) TextKeyExists(ctx context.Context, tx *gorm.DB, textKey string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.Phrase{}).
		Where("text_key = ?", textKey).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (pr *phraseRepo) Override(ctx context.Context, tx *gorm.DB, id uuid.UUID, difficulty domain.Difficulty, reason string) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	res := transaction.WithContext(ctx).
		Model(&domain.Phrase{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"difficulty":      difficulty,
			"override_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (pr *phraseRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Phrase, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var existing domain.Phrase
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&existing).Error; err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).
		Delete(&domain.Phrase{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}
