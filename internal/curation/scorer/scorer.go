package scorer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	types "github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

// Knowledge-base stage points (0-30).
const (
	kbExistsPoints   = 20
	kbSourcesPoints  = 5
	kbCrossRefPoints = 5

	kbSourcesThreshold  = 3
	kbCrossRefThreshold = 10
)

// Social stage points (0-15).
const (
	socialHighPoints   = 15
	socialMediumPoints = 8
)

var ErrEmptyText = errors.New("empty candidate text")

type Config struct {
	// KBBandLow/High bound the local-score band that triggers a
	// knowledge-base lookup; outside it the classification is already
	// decided well enough.
	KBBandLow  int
	KBBandHigh int

	// SocialBandLow/High bound the running total that triggers a social
	// lookup.
	SocialBandLow  int
	SocialBandHigh int

	// SocialMaxLookups caps social calls per run; SocialMinInterval paces
	// them (1s keeps the caller under 60/minute).
	SocialMaxLookups  int
	SocialMinInterval time.Duration

	// RecentWindowYears is how far back "recent" content reaches.
	RecentWindowYears int
}

func DefaultConfig() Config {
	return Config{
		KBBandLow:         21,
		KBBandHigh:        69,
		SocialBandLow:     40,
		SocialBandHigh:    60,
		SocialMaxLookups:  15,
		SocialMinInterval: time.Second,
		RecentWindowYears: 5,
	}
}

// Scorer combines local heuristics, a batched knowledge-base stage, a
// rate-limited social stage and the category modifier into a composite score.
// It never mutates external state; lookup failures degrade to zero.
type Scorer struct {
	cfg      Config
	kb       curation.KnowledgeBaseLookup
	social   curation.SocialRelevanceLookup
	modifier func(category string) int
	log      *logger.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

func New(cfg Config, kb curation.KnowledgeBaseLookup, social curation.SocialRelevanceLookup, modifier func(string) int, log *logger.Logger) *Scorer {
	if modifier == nil {
		modifier = func(string) int { return 0 }
	}
	return &Scorer{
		cfg:      cfg,
		kb:       kb,
		social:   social,
		modifier: modifier,
		log:      log.With("component", "PhraseScorer"),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// ScoreBatch scores candidates in place, in order. Only structurally invalid
// input (empty text) is a hard error.
func (s *Scorer) ScoreBatch(ctx context.Context, cands []curation.Candidate) ([]curation.Candidate, error) {
	for i := range cands {
		if strings.TrimSpace(cands[i].Text) == "" {
			return nil, ErrEmptyText
		}
	}

	yearTo := s.now().Year()
	yearFrom := yearTo - s.cfg.RecentWindowYears

	// Stage 1: local heuristics, always.
	undetermined := make([]int, 0, len(cands))
	for i := range cands {
		local, recent := localScore(cands[i].Text, yearFrom, yearTo)
		cands[i].Score.Breakdown.Local = local
		cands[i].Recent = cands[i].Recent || recent
		if local >= s.cfg.KBBandLow && local <= s.cfg.KBBandHigh {
			undetermined = append(undetermined, i)
		}
	}

	// Stage 2: batched knowledge-base validation for the undetermined band.
	s.applyKnowledgeBase(ctx, cands, undetermined)

	// Stage 3: social relevance for the borderline subset, paced and capped.
	s.applySocial(ctx, cands)

	// Stage 4: category modifier, then classify.
	for i := range cands {
		b := &cands[i].Score.Breakdown
		b.CategoryModifier = s.modifier(cands[i].Category)
		total := b.Local + b.KnowledgeBase + b.Social + b.CategoryModifier
		if total < 0 {
			total = 0
		}
		if total > 100 {
			total = 100
		}
		cands[i].Score.Total = total
		cands[i].Score.Classification = curation.Classify(total)
	}
	return cands, nil
}

func (s *Scorer) applyKnowledgeBase(ctx context.Context, cands []curation.Candidate, idx []int) {
	if s.kb == nil || len(idx) == 0 {
		return
	}
	for start := 0; start < len(idx); start += curation.KnowledgeBaseBatchMax {
		end := start + curation.KnowledgeBaseBatchMax
		if end > len(idx) {
			end = len(idx)
		}
		chunk := idx[start:end]
		texts := make([]string, len(chunk))
		for j, i := range chunk {
			texts[j] = cands[i].Text
		}
		results, err := s.kb.LookupBatch(ctx, texts)
		if err != nil {
			// ScoringLookupDegraded: the stage contributes nothing.
			s.log.Warn("knowledge-base lookup degraded", "batch_size", len(texts), "error", err)
			continue
		}
		for _, i := range chunk {
			r, ok := results[cands[i].Text]
			if !ok || !r.Exists {
				continue
			}
			pts := kbExistsPoints
			if r.SourceCount >= kbSourcesThreshold {
				pts += kbSourcesPoints
			}
			if r.CrossRefCount >= kbCrossRefThreshold {
				pts += kbCrossRefPoints
			}
			cands[i].Score.Breakdown.KnowledgeBase = pts
		}
	}
}

func (s *Scorer) applySocial(ctx context.Context, cands []curation.Candidate) {
	if s.social == nil || s.cfg.SocialMaxLookups <= 0 {
		return
	}
	lookups := 0
	var last time.Time
	for i := range cands {
		running := cands[i].Score.Breakdown.Local + cands[i].Score.Breakdown.KnowledgeBase
		if running < s.cfg.SocialBandLow || running > s.cfg.SocialBandHigh {
			continue
		}
		if lookups >= s.cfg.SocialMaxLookups {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if !last.IsZero() && s.cfg.SocialMinInterval > 0 {
			if wait := s.cfg.SocialMinInterval - s.now().Sub(last); wait > 0 {
				s.sleep(wait)
			}
		}
		last = s.now()
		lookups++

		tier, err := s.social.Lookup(ctx, cands[i].Text)
		if err != nil {
			s.log.Warn("social lookup degraded", "text", cands[i].Text, "error", err)
			continue
		}
		switch tier {
		case curation.EngagementHigh:
			cands[i].Score.Breakdown.Social = socialHighPoints
		case curation.EngagementMedium:
			cands[i].Score.Breakdown.Social = socialMediumPoints
		}
	}
}

// DifficultyFor derives the difficulty class assigned at admission time.
func DifficultyFor(c curation.Candidate) types.Difficulty {
	wc := len(strings.Fields(c.Text))
	switch {
	case wc <= 2 && c.Score.Total >= 70:
		return types.DifficultyEasy
	case wc >= 5 || c.Score.Total < 45:
		return types.DifficultyHard
	default:
		return types.DifficultyMedium
	}
}
