package quota

import (
	"errors"
	"sync"

	types "github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrQuotaExceeded   = errors.New("quota exceeded")
)

// Stats is a point-in-time view of one category's counters.
type Stats struct {
	Category     string            `json:"category"`
	Count        int               `json:"count"`
	RecentCount  int               `json:"recent_count"`
	MinTarget    int               `json:"min_target"`
	IdealTarget  int               `json:"ideal_target"`
	HardCeiling  int               `json:"hard_ceiling,omitempty"`
	RecencyRatio float64           `json:"recency_ratio"`
	Status       types.QuotaStatus `json:"status"`
}

type state struct {
	minTarget     int
	idealTarget   int
	hardCeiling   int
	recencyTarget float64
	scoreModifier int
	count         int
	recentCount   int
}

// Tracker holds explicit per-category admission state. All writes happen in
// the single-threaded evaluation phase; the mutex covers reads from handler
// goroutines.
type Tracker struct {
	mu   sync.Mutex
	cats map[string]*state
	log  *logger.Logger
}

func NewTracker(log *logger.Logger) *Tracker {
	return &Tracker{
		cats: map[string]*state{},
		log:  log.With("component", "QuotaTracker"),
	}
}

// Register seeds a category from the registry, including counts already in
// the corpus.
func (t *Tracker) Register(cat types.Category) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cats[cat.Name] = &state{
		minTarget:     cat.MinTarget,
		idealTarget:   cat.IdealTarget,
		hardCeiling:   cat.HardCeiling,
		recencyTarget: cat.RecencyTarget,
		scoreModifier: cat.ScoreModifier,
		count:         cat.PhraseCount,
		recentCount:   cat.RecentCount,
	}
}

func (t *Tracker) Known(category string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.cats[category]
	return ok
}

// CanAdmit gates admission. Quotas are informational targets unless a hard
// ceiling is configured.
func (t *Tracker) CanAdmit(category string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cats[category]
	if !ok {
		return ErrUnknownCategory
	}
	if s.hardCeiling > 0 && s.count >= s.hardCeiling {
		return ErrQuotaExceeded
	}
	if s.idealTarget > 0 && s.count >= (s.idealTarget*8)/10 && s.count < s.idealTarget {
		t.log.Warn("category nearing ideal target", "category", category, "count", s.count, "ideal", s.idealTarget)
	}
	return nil
}

func (t *Tracker) Admit(category string, recent bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cats[category]
	if !ok {
		return
	}
	s.count++
	if recent {
		s.recentCount++
	}
}

// Remove reverses an admission (manual deletion of a phrase).
func (t *Tracker) Remove(category string, recent bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cats[category]
	if !ok {
		return
	}
	if s.count > 0 {
		s.count--
	}
	if recent && s.recentCount > 0 {
		s.recentCount--
	}
}

func (t *Tracker) RecencyRatio(category string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cats[category]
	if !ok || s.count == 0 {
		return 0
	}
	return float64(s.recentCount) / float64(s.count)
}

// NeedsRecentBias reports whether the next generation request should ask for
// recent content. The tracker only reports; the orchestrator decides.
func (t *Tracker) NeedsRecentBias(category string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cats[category]
	if !ok {
		return false
	}
	if s.count == 0 {
		return s.recencyTarget > 0
	}
	return float64(s.recentCount)/float64(s.count) < s.recencyTarget
}

func (t *Tracker) ScoreModifier(category string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cats[category]
	if !ok {
		return 0
	}
	return s.scoreModifier
}

func (t *Tracker) Snapshot(category string) (Stats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cats[category]
	if !ok {
		return Stats{}, false
	}
	st := Stats{
		Category:    category,
		Count:       s.count,
		RecentCount: s.recentCount,
		MinTarget:   s.minTarget,
		IdealTarget: s.idealTarget,
		HardCeiling: s.hardCeiling,
	}
	if s.count > 0 {
		st.RecencyRatio = float64(s.recentCount) / float64(s.count)
	}
	st.Status = statusOf(s)
	return st, true
}

func statusOf(s *state) types.QuotaStatus {
	switch {
	case s.hardCeiling > 0 && s.count >= s.hardCeiling:
		return types.QuotaAtCeiling
	case s.idealTarget > 0 && s.count >= s.idealTarget:
		return types.QuotaAtIdeal
	case s.idealTarget > 0 && s.count >= (s.idealTarget*8)/10:
		return types.QuotaNearIdeal
	case s.count < s.minTarget:
		return types.QuotaBelowMin
	default:
		return types.QuotaOnTrack
	}
}
