package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Phrase is an admitted corpus entry. Admission is terminal: rows are only
// touched afterwards by an explicit manual curation action.
type Phrase struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Text     string `gorm:"column:text;not null" json:"text"`
	TextKey  string `gorm:"column:text_key;not null;uniqueIndex:idx_phrase_text_key" json:"-"`
	Category string `gorm:"column:category;not null;index:idx_phrase_category;index:idx_phrase_category_first_word,priority:1" json:"category"`

	FirstWord string `gorm:"column:first_word;not null;index:idx_phrase_category_first_word,priority:2" json:"first_word"`
	Source    string `gorm:"column:source;not null;default:''" json:"source"`

	Score          int            `gorm:"column:score;not null;default:0" json:"score"`
	ScoreBreakdown datatypes.JSON `gorm:"column:score_breakdown" json:"score_breakdown,omitempty"`

	Difficulty *Difficulty `gorm:"column:difficulty;type:text" json:"difficulty,omitempty"`

	Recent bool `gorm:"column:recent;not null;default:false;index" json:"recent"`

	OverrideReason *string `gorm:"column:override_reason;type:text" json:"override_reason,omitempty"`

	AddedAt time.Time `gorm:"column:added_at;not null;index" json:"added_at"`
}

func (Phrase) TableName() string { return "phrase" }

// ScoreBreakdown mirrors the scorer's subtotal columns; stored as JSON on the
// phrase row so manual review can see how a score was assembled.
type ScoreBreakdown struct {
	Local            int `json:"local"`
	KnowledgeBase    int `json:"knowledge_base"`
	Social           int `json:"social"`
	CategoryModifier int `json:"category_modifier"`
}
