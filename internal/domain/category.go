package domain

import (
	"time"
)

// Category is a registry entry. Rows are created once from the category
// config file and only the counters move afterwards.
type Category struct {
	Name string `gorm:"column:name;primaryKey" json:"name"`

	MinTarget   int `gorm:"column:min_target;not null;default:0" json:"min_target"`
	IdealTarget int `gorm:"column:ideal_target;not null;default:0" json:"ideal_target"`
	// HardCeiling of 0 means quotas are informational only.
	HardCeiling int `gorm:"column:hard_ceiling;not null;default:0" json:"hard_ceiling,omitempty"`

	// RecencyTarget is the desired fraction of phrases flagged recent.
	RecencyTarget float64 `gorm:"column:recency_target;not null;default:0.1" json:"recency_target"`

	// ScoreModifier is the fixed composite-score adjustment, -5..+15.
	ScoreModifier int `gorm:"column:score_modifier;not null;default:0" json:"score_modifier"`

	PhraseCount int `gorm:"column:phrase_count;not null;default:0" json:"phrase_count"`
	RecentCount int `gorm:"column:recent_count;not null;default:0" json:"recent_count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Category) TableName() string { return "category" }

type QuotaStatus string

const (
	QuotaBelowMin  QuotaStatus = "below_min"
	QuotaOnTrack   QuotaStatus = "on_track"
	QuotaNearIdeal QuotaStatus = "near_ideal"
	QuotaAtIdeal   QuotaStatus = "at_ideal"
	QuotaAtCeiling QuotaStatus = "at_ceiling"
)
