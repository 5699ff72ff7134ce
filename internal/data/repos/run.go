package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

type RunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *domain.CurationRun) (*domain.CurationRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.CurationRun, error)
	List(ctx context.Context, tx *gorm.DB, category string, limit int) ([]*domain.CurationRun, error)
}

type runRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunRepo(db *gorm.DB, baseLog *logger.Logger) RunRepo {
	repoLog := baseLog.With("repo", "RunRepo")
	return &runRepo{db: db, log: repoLog}
}

func (rr *runRepo) Create(ctx context.Context, tx *gorm.DB, run *domain.CurationRun) (*domain.CurationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (rr *runRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.CurationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result domain.CurationRun
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *runRepo) List(ctx context.Context, tx *gorm.DB, category string, limit int) ([]*domain.CurationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	query := transaction.WithContext(ctx).Order("started_at DESC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var results []*domain.CurationRun
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
