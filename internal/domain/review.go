package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ReviewItem is a manual-review-recommended candidate parked for a human
// decision instead of being silently dropped (manual mode).
type ReviewItem struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	RunID    uuid.UUID `gorm:"type:uuid;column:run_id;not null;index" json:"run_id"`
	Text     string    `gorm:"column:text;not null" json:"text"`
	Category string    `gorm:"column:category;not null;index" json:"category"`

	Score          int            `gorm:"column:score;not null" json:"score"`
	ScoreBreakdown datatypes.JSON `gorm:"column:score_breakdown" json:"score_breakdown,omitempty"`
	Recent         bool           `gorm:"column:recent;not null;default:false" json:"recent"`
	Source         string         `gorm:"column:source;not null;default:''" json:"source"`

	Status     ReviewStatus `gorm:"column:status;type:text;not null;default:'pending';index" json:"status"`
	ResolvedBy string       `gorm:"column:resolved_by;not null;default:''" json:"resolved_by,omitempty"`

	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	ResolvedAt *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

func (ReviewItem) TableName() string { return "review_item" }
