package scorer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	types "github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

type fakeKB struct {
	calls   [][]string
	results map[string]curation.KnowledgeBaseResult
	err     error
}

func (f *fakeKB) LookupBatch(ctx context.Context, texts []string) (map[string]curation.KnowledgeBaseResult, error) {
	cp := make([]string, len(texts))
	copy(cp, texts)
	f.calls = append(f.calls, cp)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeSocial struct {
	calls []string
	tiers map[string]curation.EngagementTier
	err   error
}

func (f *fakeSocial) Lookup(ctx context.Context, text string) (curation.EngagementTier, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return curation.EngagementNone, f.err
	}
	return f.tiers[text], nil
}

func newScorer(t *testing.T, cfg Config, kb curation.KnowledgeBaseLookup, social curation.SocialRelevanceLookup, modifier func(string) int) *Scorer {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	s := New(cfg, kb, social, modifier, log)
	s.sleep = func(time.Duration) {}
	return s
}

func cand(text string) curation.Candidate {
	return curation.Candidate{Text: text, Category: "movies"}
}

func TestScoreBatchEmptyTextIsHardError(t *testing.T) {
	s := newScorer(t, DefaultConfig(), nil, nil, nil)
	if _, err := s.ScoreBatch(context.Background(), []curation.Candidate{cand("  ")}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestLocalStageBounds(t *testing.T) {
	from, to := 2021, 2026
	for _, text := range []string{
		"Tiktok Dance Challenge",
		"Quantum Infrastructure Optimization Methodology",
		"Home Alone",
		"Cardiology Paradigm",
	} {
		got, _ := localScore(text, from, to)
		if got < 0 || got > LocalMax {
			t.Fatalf("localScore(%q) = %d, out of [0,%d]", text, got, LocalMax)
		}
	}
}

func TestLocalRecencyMarker(t *testing.T) {
	from, to := 2021, 2026
	if _, recent := localScore("Tiktok Dance", from, to); !recent {
		t.Fatalf("marker word should flag recent")
	}
	if _, recent := localScore("Class of 2024", from, to); !recent {
		t.Fatalf("in-window year should flag recent")
	}
	if _, recent := localScore("Summer of 1969", from, to); recent {
		t.Fatalf("out-of-window year should not flag recent")
	}
}

func TestKnowledgeBaseBandGating(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KBBandLow = 100 // nothing qualifies
	kb := &fakeKB{results: map[string]curation.KnowledgeBaseResult{}}
	s := newScorer(t, cfg, kb, nil, nil)

	if _, err := s.ScoreBatch(context.Background(), []curation.Candidate{cand("Home Alone")}); err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(kb.calls) != 0 {
		t.Fatalf("kb should not be called outside the band, got %d calls", len(kb.calls))
	}
}

func TestKnowledgeBasePointsAndBatching(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KBBandLow = 0
	cfg.KBBandHigh = 100
	kb := &fakeKB{results: map[string]curation.KnowledgeBaseResult{
		"Full Marks":  {Exists: true, SourceCount: 5, CrossRefCount: 20},
		"Exists Only": {Exists: true},
		"Unknown One": {},
	}}
	s := newScorer(t, cfg, kb, nil, nil)

	cands := make([]curation.Candidate, 0, 60)
	cands = append(cands, cand("Full Marks"), cand("Exists Only"), cand("Unknown One"))
	for i := len(cands); i < 60; i++ {
		cands = append(cands, cand("Filler Phrase"))
	}
	out, err := s.ScoreBatch(context.Background(), cands)
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}

	if got := out[0].Score.Breakdown.KnowledgeBase; got != 30 {
		t.Fatalf("full-marks kb points = %d, want 30", got)
	}
	if got := out[1].Score.Breakdown.KnowledgeBase; got != 20 {
		t.Fatalf("exists-only kb points = %d, want 20", got)
	}
	if got := out[2].Score.Breakdown.KnowledgeBase; got != 0 {
		t.Fatalf("unknown kb points = %d, want 0", got)
	}

	// 60 candidates in the band must split into 50 + 10.
	if len(kb.calls) != 2 || len(kb.calls[0]) != 50 || len(kb.calls[1]) != 10 {
		sizes := make([]int, len(kb.calls))
		for i, c := range kb.calls {
			sizes[i] = len(c)
		}
		t.Fatalf("expected batches [50 10], got %v", sizes)
	}
}

func TestKnowledgeBaseFailureDegrades(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KBBandLow = 0
	cfg.KBBandHigh = 100
	kb := &fakeKB{err: errors.New("boom")}
	s := newScorer(t, cfg, kb, nil, nil)

	out, err := s.ScoreBatch(context.Background(), []curation.Candidate{cand("Home Alone")})
	if err != nil {
		t.Fatalf("lookup failure must not fail the batch: %v", err)
	}
	if out[0].Score.Breakdown.KnowledgeBase != 0 {
		t.Fatalf("degraded stage must contribute zero, got %d", out[0].Score.Breakdown.KnowledgeBase)
	}
}

func TestSocialSkipsOutsideBorderline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KBBandLow = 0
	cfg.KBBandHigh = 100
	cfg.SocialBandLow = 98
	cfg.SocialBandHigh = 99
	social := &fakeSocial{tiers: map[string]curation.EngagementTier{}}
	s := newScorer(t, cfg, nil, social, nil)

	if _, err := s.ScoreBatch(context.Background(), []curation.Candidate{cand("Home Alone")}); err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(social.calls) != 0 {
		t.Fatalf("social should not be called outside the borderline band, got %d", len(social.calls))
	}
}

func TestSocialCapAndPoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KBBandLow = 0
	cfg.KBBandHigh = 100
	cfg.SocialBandLow = 0
	cfg.SocialBandHigh = 100
	cfg.SocialMaxLookups = 1
	kb := &fakeKB{results: map[string]curation.KnowledgeBaseResult{
		"Alpha Phrase": {Exists: true},
		"Beta Phrase":  {Exists: true},
	}}
	social := &fakeSocial{tiers: map[string]curation.EngagementTier{
		"Alpha Phrase": curation.EngagementHigh,
		"Beta Phrase":  curation.EngagementHigh,
	}}
	s := newScorer(t, cfg, kb, social, nil)

	out, err := s.ScoreBatch(context.Background(), []curation.Candidate{cand("Alpha Phrase"), cand("Beta Phrase")})
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(social.calls) != 1 {
		t.Fatalf("social lookups = %d, want 1 (capped)", len(social.calls))
	}
	if out[0].Score.Breakdown.Social != socialHighPoints {
		t.Fatalf("first borderline candidate should get social points, got %d", out[0].Score.Breakdown.Social)
	}
	if out[1].Score.Breakdown.Social != 0 {
		t.Fatalf("capped candidate should get no social points, got %d", out[1].Score.Breakdown.Social)
	}
}

func TestTotalClampedAndClassified(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KBBandLow = 0
	cfg.KBBandHigh = 100
	kb := &fakeKB{results: map[string]curation.KnowledgeBaseResult{
		"Tiktok Dance Challenge": {Exists: true, SourceCount: 5, CrossRefCount: 20},
	}}
	s := newScorer(t, cfg, kb, nil, func(string) int { return 15 })

	out, err := s.ScoreBatch(context.Background(), []curation.Candidate{cand("Tiktok Dance Challenge")})
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	total := out[0].Score.Total
	if total < 0 || total > 100 {
		t.Fatalf("total %d out of [0,100]", total)
	}
	if out[0].Score.Classification != curation.Classify(total) {
		t.Fatalf("classification mismatch: %s vs %s", out[0].Score.Classification, curation.Classify(total))
	}
	br := out[0].Score.Breakdown
	want := br.Local + br.KnowledgeBase + br.Social + br.CategoryModifier
	if want > 100 {
		want = 100
	}
	if total != want {
		t.Fatalf("total %d != breakdown sum %d", total, want)
	}
}

func TestDifficultyFor(t *testing.T) {
	easy := curation.Candidate{Text: "Star Wars"}
	easy.Score.Total = 85
	if got := DifficultyFor(easy); got != types.DifficultyEasy {
		t.Fatalf("short high-scoring phrase = %s, want easy", got)
	}

	hard := curation.Candidate{Text: "The Long Winding Mountain Road Home"}
	hard.Score.Total = 65
	if got := DifficultyFor(hard); got != types.DifficultyHard {
		t.Fatalf("six-word phrase = %s, want hard", got)
	}

	med := curation.Candidate{Text: "Binge Watching Shows"}
	med.Score.Total = 60
	if got := DifficultyFor(med); got != types.DifficultyMedium {
		t.Fatalf("mid phrase = %s, want medium", got)
	}
}
