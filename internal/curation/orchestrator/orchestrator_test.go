package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/dedupe"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/quota"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/scorer"
	types "github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

// fakeProvider hands out scripted responses in call order.
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	batches [][]string
	errs    []error
}

func (p *fakeProvider) Generate(ctx context.Context, category string, count int, biasRecent bool) ([]string, error) {
	p.mu.Lock()
	i := p.calls
	p.calls++
	p.mu.Unlock()

	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.batches) {
		return p.batches[i], nil
	}
	return nil, nil
}

func (p *fakeProvider) Name() string { return "fake-provider" }

type fakeStore struct {
	phrases []*types.Phrase
	reviews []*types.ReviewItem
}

func (s *fakeStore) AdmitPhrase(ctx context.Context, p *types.Phrase) error {
	s.phrases = append(s.phrases, p)
	return nil
}

func (s *fakeStore) QueueReview(ctx context.Context, item *types.ReviewItem) error {
	s.reviews = append(s.reviews, item)
	return nil
}

// acceptAllKB makes every looked-up phrase exist with full marks, so local
// score + 30 decides admission.
type acceptAllKB struct{}

func (acceptAllKB) LookupBatch(ctx context.Context, texts []string) (map[string]curation.KnowledgeBaseResult, error) {
	out := make(map[string]curation.KnowledgeBaseResult, len(texts))
	for _, t := range texts {
		out[t] = curation.KnowledgeBaseResult{Exists: true, SourceCount: 5, CrossRefCount: 20}
	}
	return out, nil
}

func testDeps(t *testing.T, provider curation.GenerationProvider, store Store, modifier int) Deps {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	cfg := scorer.DefaultConfig()
	cfg.KBBandLow = 0
	cfg.KBBandHigh = 100
	cfg.SocialMaxLookups = 0
	sc := scorer.New(cfg, acceptAllKB{}, nil, func(string) int { return modifier }, log)

	tr := quota.NewTracker(log)
	tr.Register(types.Category{Name: "movies", IdealTarget: 1000, RecencyTarget: 0.1})

	return Deps{
		Log:      log,
		Provider: provider,
		Scorer:   sc,
		Quota:    tr,
		Deduper:  dedupe.New(dedupe.NewIndex(50), log),
		Store:    store,
	}
}

func TestRunSatisfied(t *testing.T) {
	provider := &fakeProvider{batches: [][]string{
		{"alpha avalanche", "bravo blizzard"},
		{"charlie cyclone", "delta drizzle"},
		{"echo eclipse", "foxtrot flood"},
	}}
	store := &fakeStore{}
	deps := testDeps(t, provider, store, 15)

	res, err := Run(context.Background(), deps, Input{RunID: uuid.New(), Category: "movies", TargetCount: 6})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.MetTarget || res.State != types.RunStateSatisfied {
		t.Fatalf("expected satisfied run, got %+v", res)
	}
	if len(res.Admitted) != 6 || len(store.phrases) != 6 {
		t.Fatalf("admitted = %d stored = %d, want 6", len(res.Admitted), len(store.phrases))
	}
	if res.BatchesDispatched != 3 {
		t.Fatalf("BatchesDispatched = %d, want 3 (no retry)", res.BatchesDispatched)
	}
	for _, p := range store.phrases {
		if p.Source != "fake-provider" {
			t.Fatalf("phrase source = %q", p.Source)
		}
		if p.Difficulty == nil {
			t.Fatalf("admitted phrase must carry difficulty")
		}
	}
}

func TestRunPartialFailureThenRetry(t *testing.T) {
	provider := &fakeProvider{
		batches: [][]string{
			{"alpha avalanche", "bravo blizzard"},
			nil,
			nil,
			{"charlie cyclone", "delta drizzle"},
		},
		errs: []error{
			nil,
			curation.NewProviderError(curation.ProviderRateLimited, errors.New("429")),
			curation.NewProviderError(curation.ProviderTimeout, context.DeadlineExceeded),
			nil,
		},
	}
	store := &fakeStore{}
	deps := testDeps(t, provider, store, 15)

	res, err := Run(context.Background(), deps, Input{RunID: uuid.New(), Category: "movies", TargetCount: 4})
	if err != nil {
		t.Fatalf("partial provider failure must not raise: %v", err)
	}
	if len(res.Admitted) != 4 {
		t.Fatalf("admitted = %d, want 4", len(res.Admitted))
	}
	if !res.MetTarget {
		t.Fatalf("expected target met after retry, got %+v", res)
	}
	if res.ProviderFailures != 2 {
		t.Fatalf("ProviderFailures = %d, want 2", res.ProviderFailures)
	}
	if res.BatchesDispatched != 4 {
		t.Fatalf("BatchesDispatched = %d, want 4", res.BatchesDispatched)
	}
}

func TestRunExhaustedReturnsPartial(t *testing.T) {
	// Every call returns the same two phrases; after the first batch they
	// are duplicates, so the target can never be met.
	same := []string{"alpha avalanche", "bravo blizzard"}
	provider := &fakeProvider{batches: [][]string{same, same, same, same}}
	store := &fakeStore{}
	deps := testDeps(t, provider, store, 15)

	res, err := Run(context.Background(), deps, Input{RunID: uuid.New(), Category: "movies", TargetCount: 45})
	if err != nil {
		t.Fatalf("exhaustion must not raise: %v", err)
	}
	if res.MetTarget || res.State != types.RunStateExhausted {
		t.Fatalf("expected exhausted partial result, got %+v", res)
	}
	if len(res.Admitted) != 2 {
		t.Fatalf("admitted = %d, want 2", len(res.Admitted))
	}
	if res.BatchesDispatched != 4 {
		t.Fatalf("BatchesDispatched = %d, want max 4", res.BatchesDispatched)
	}
	if res.Drops[curation.DropDuplicate] == 0 {
		t.Fatalf("expected duplicate drops, got %v", res.Drops)
	}
}

func TestRunManualModeQueuesReview(t *testing.T) {
	provider := &fakeProvider{batches: [][]string{
		{"alpha avalanche"}, nil, nil, nil,
	}}
	store := &fakeStore{}
	// modifier 0: local + kb lands in the manual-review band.
	deps := testDeps(t, provider, store, 0)

	res, err := Run(context.Background(), deps, Input{RunID: uuid.New(), Category: "movies", TargetCount: 1, Mode: ModeManual})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.reviews) != 1 {
		t.Fatalf("reviews = %d, want 1", len(store.reviews))
	}
	if len(res.Admitted) != 0 || res.MetTarget {
		t.Fatalf("manual-review candidates must not be admitted, got %+v", res)
	}
	if res.Drops[curation.DropManualReview] == 0 {
		t.Fatalf("expected manual_review drop tally, got %v", res.Drops)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	store := &fakeStore{}
	deps := testDeps(t, &fakeProvider{}, store, 15)
	if _, err := Run(context.Background(), deps, Input{RunID: uuid.New(), Category: "movies", TargetCount: 0}); err == nil {
		t.Fatalf("non-positive target must be a hard error")
	}
}

func TestRunOverallDeadlineStopsRetries(t *testing.T) {
	provider := &fakeProvider{batches: [][]string{
		{"alpha avalanche"}, nil, nil, {"bravo blizzard"},
	}}
	store := &fakeStore{}
	deps := testDeps(t, provider, store, 15)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res, err := Run(ctx, deps, Input{RunID: uuid.New(), Category: "movies", TargetCount: 10})
	if err != nil {
		t.Fatalf("deadline mid-run must not raise: %v", err)
	}
	if res.State != types.RunStateExhausted {
		t.Fatalf("expected exhausted on deadline, got %+v", res)
	}
	if res.BatchesDispatched != 3 {
		t.Fatalf("expected no retry after deadline, dispatched %d", res.BatchesDispatched)
	}
}

func TestMergeOrderIsDispatchOrder(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	res := Result{Drops: map[curation.DropReason]int{}}
	batches := [][]string{
		{"alpha one", "bravo two"},
		{"ALPHA ONE", "charlie three"},
	}
	merged := merge(log, batches, Input{Category: "movies"}, 0, &res)

	if len(merged) != 4 {
		t.Fatalf("merged = %d, want 4", len(merged))
	}
	// Earliest by (dispatch index, position) wins in the deduper.
	d := dedupe.New(dedupe.NewIndex(10), log)
	kept, dropped := d.Dedupe(merged)
	if len(kept) != 3 || len(dropped) != 1 {
		t.Fatalf("kept=%d dropped=%d, want 3/1", len(kept), len(dropped))
	}
	if kept[0].BatchIndex != 0 || kept[0].Text != "Alpha One" {
		t.Fatalf("batch-0 instance should win: %+v", kept[0])
	}
	if dropped[0].Candidate.BatchIndex != 1 {
		t.Fatalf("batch-1 duplicate should drop: %+v", dropped[0])
	}
}
