package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RunState string

const (
	RunStateSatisfied RunState = "satisfied"
	RunStateExhausted RunState = "exhausted"
)

// CurationRun records one orchestration run: what was asked for, how many
// batches went out, what was admitted and why the rest dropped.
type CurationRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Category    string `gorm:"column:category;not null;index" json:"category"`
	TargetCount int    `gorm:"column:target_count;not null" json:"target_count"`
	Mode        string `gorm:"column:mode;not null;default:'auto'" json:"mode"`

	State             RunState `gorm:"column:state;type:text;not null" json:"state"`
	BatchesDispatched int      `gorm:"column:batches_dispatched;not null;default:0" json:"batches_dispatched"`
	ProviderFailures  int      `gorm:"column:provider_failures;not null;default:0" json:"provider_failures"`
	CandidatesSeen    int      `gorm:"column:candidates_seen;not null;default:0" json:"candidates_seen"`
	AdmittedCount     int      `gorm:"column:admitted_count;not null;default:0" json:"admitted_count"`
	MetTarget         bool     `gorm:"column:met_target;not null;default:false" json:"met_target"`

	// DropTallies maps drop reason -> count for the run.
	DropTallies datatypes.JSON `gorm:"column:drop_tallies" json:"drop_tallies,omitempty"`

	StartedAt  time.Time `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt time.Time `gorm:"column:finished_at;not null" json:"finished_at"`
}

func (CurationRun) TableName() string { return "curation_run" }
