package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

type ReviewRepo interface {
	Create(ctx context.Context, tx *gorm.DB, items []*domain.ReviewItem) ([]*domain.ReviewItem, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ReviewItem, error)
	ListPending(ctx context.Context, tx *gorm.DB, category string) ([]*domain.ReviewItem, error)
	Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID, status domain.ReviewStatus, resolvedBy string) error
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	repoLog := baseLog.With("repo", "ReviewRepo")
	return &reviewRepo{db: db, log: repoLog}
}

func (vr *reviewRepo) Create(ctx context.Context, tx *gorm.DB, items []*domain.ReviewItem) ([]*domain.ReviewItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	if len(items) == 0 {
		return []*domain.ReviewItem{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (vr *reviewRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ReviewItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var result domain.ReviewItem
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (vr *reviewRepo) ListPending(ctx context.Context, tx *gorm.DB, category string) ([]*domain.ReviewItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	query := transaction.WithContext(ctx).
		Where("status = ?", domain.ReviewPending).
		Order("created_at")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var results []*domain.ReviewItem
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (vr *reviewRepo) Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID, status domain.ReviewStatus, resolvedBy string) error {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	now := time.Now().UTC()
	res := transaction.WithContext(ctx).
		Model(&domain.ReviewItem{}).
		Where("id = ? AND status = ?", id, domain.ReviewPending).
		Updates(map[string]any{
			"status":      status,
			"resolved_by": resolvedBy,
			"resolved_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
