package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/dedupe"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/normalizer"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/quota"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/scorer"
	types "github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

// Phase names for the run state machine.
type phase string

const (
	phaseIdle        phase = "idle"
	phaseDispatching phase = "dispatching"
	phaseMerging     phase = "merging"
	phaseEvaluating  phase = "evaluating"
	phaseSatisfied   phase = "satisfied"
	phaseRetrying    phase = "retrying"
	phaseExhausted   phase = "exhausted"
)

const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

type Config struct {
	// Parallelism is the number of concurrent provider calls in the first
	// round.
	Parallelism int
	// MaxTotalBatches bounds the whole run: first round plus sequential
	// retries.
	MaxTotalBatches int
	// CallTimeout applies to each provider call individually.
	CallTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Parallelism:     3,
		MaxTotalBatches: 4,
		CallTimeout:     8500 * time.Millisecond,
	}
}

// Store is the admission sink: corpus writes and the manual-review side
// channel.
type Store interface {
	AdmitPhrase(ctx context.Context, p *types.Phrase) error
	QueueReview(ctx context.Context, item *types.ReviewItem) error
}

type Deps struct {
	Log      *logger.Logger
	Config   Config
	Provider curation.GenerationProvider
	Scorer   *scorer.Scorer
	Quota    *quota.Tracker
	Deduper  *dedupe.Deduplicator
	Store    Store
}

type Input struct {
	RunID       uuid.UUID
	Category    string
	TargetCount int
	Mode        string
}

type Result struct {
	Admitted          []*types.Phrase
	MetTarget         bool
	State             types.RunState
	BatchesDispatched int
	ProviderFailures  int
	CandidatesSeen    int
	Drops             map[curation.DropReason]int
}

// Run drives one orchestration: fan-out generation, deterministic merge,
// dedupe/score/admit, then at most sequential retries up to the batch budget.
// Partial external failures never fail the run; it degrades toward
// MetTarget=false.
func Run(ctx context.Context, deps Deps, in Input) (Result, error) {
	res := Result{Drops: map[curation.DropReason]int{}}
	if deps.Log == nil || deps.Provider == nil || deps.Scorer == nil || deps.Quota == nil || deps.Deduper == nil || deps.Store == nil {
		return res, fmt.Errorf("orchestrator: missing deps")
	}
	if in.TargetCount <= 0 {
		return res, fmt.Errorf("orchestrator: non-positive target count")
	}
	if in.Mode == "" {
		in.Mode = ModeAuto
	}

	cfg := deps.Config
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultConfig().Parallelism
	}
	if cfg.MaxTotalBatches <= 0 {
		cfg.MaxTotalBatches = DefaultConfig().MaxTotalBatches
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	log := deps.Log.With("component", "BatchOrchestrator", "run_id", in.RunID.String(), "category", in.Category)

	st := phaseIdle
	perBatch := (in.TargetCount + cfg.Parallelism - 1) / cfg.Parallelism
	nextBatchIndex := 0

	// Round state handed from Dispatching/Retrying through Merging to
	// Evaluating.
	var roundBatches [][]string
	var roundFirst int
	var merged []curation.Candidate

	for {
		switch st {
		case phaseIdle:
			st = phaseDispatching

		case phaseDispatching:
			bias := deps.Quota.NeedsRecentBias(in.Category)
			log.Info("dispatching round", "parallel", cfg.Parallelism, "per_batch", perBatch, "bias_recent", bias)

			batches, failures := dispatchRound(ctx, deps, cfg, in.Category, cfg.Parallelism, perBatch, bias, nextBatchIndex)
			roundBatches, roundFirst = batches, nextBatchIndex
			nextBatchIndex += cfg.Parallelism
			res.BatchesDispatched += cfg.Parallelism
			res.ProviderFailures += failures
			st = phaseMerging

		case phaseRetrying:
			shortfall := in.TargetCount - len(res.Admitted)
			bias := deps.Quota.NeedsRecentBias(in.Category)
			log.Info("retrying with sequential batch", "shortfall", shortfall, "batches_so_far", res.BatchesDispatched)

			batches, failures := dispatchRound(ctx, deps, cfg, in.Category, 1, shortfall, bias, nextBatchIndex)
			roundBatches, roundFirst = batches, nextBatchIndex
			nextBatchIndex++
			res.BatchesDispatched++
			res.ProviderFailures += failures
			st = phaseMerging

		case phaseMerging:
			merged = merge(log, roundBatches, in, roundFirst, &res)
			res.CandidatesSeen += len(merged)
			st = phaseEvaluating

		case phaseEvaluating:
			if err := evaluate(ctx, deps, in, merged, &res); err != nil {
				return res, err
			}
			st = decide(ctx, &res, in.TargetCount, cfg)

		case phaseSatisfied:
			res.MetTarget = true
			res.State = types.RunStateSatisfied
			log.Info("run satisfied", "admitted", len(res.Admitted), "batches", res.BatchesDispatched)
			return res, nil

		case phaseExhausted:
			res.MetTarget = false
			res.State = types.RunStateExhausted
			log.Warn("run exhausted", "admitted", len(res.Admitted), "target", in.TargetCount, "batches", res.BatchesDispatched)
			return res, nil

		default:
			return res, fmt.Errorf("orchestrator: unknown phase %q", st)
		}
	}
}

func decide(ctx context.Context, res *Result, target int, cfg Config) phase {
	if len(res.Admitted) >= target {
		return phaseSatisfied
	}
	if res.BatchesDispatched >= cfg.MaxTotalBatches {
		return phaseExhausted
	}
	if ctx.Err() != nil {
		// Overall deadline hit mid-run: stop retrying, keep what we have.
		return phaseExhausted
	}
	return phaseRetrying
}

// dispatchRound issues n provider calls and waits for all of them to settle.
// A failed call loses its batch and nothing else.
func dispatchRound(ctx context.Context, deps Deps, cfg Config, category string, n, count int, biasRecent bool, firstIndex int) ([][]string, int) {
	batches := make([][]string, n)
	errs := make([]error, n)

	g := new(errgroup.Group)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
			defer cancel()
			raw, err := deps.Provider.Generate(callCtx, category, count, biasRecent)
			if err != nil {
				errs[i] = err
				return nil
			}
			batches[i] = raw
			return nil
		})
	}
	_ = g.Wait()

	failures := 0
	for i, err := range errs {
		if err != nil {
			failures++
			deps.Log.Warn("generation call failed",
				"category", category,
				"batch_index", firstIndex+i,
				"kind", string(curation.ProviderErrorKindOf(err)),
				"error", err,
			)
		}
	}
	return batches, failures
}

// merge unions the round's batches into one sequence ordered by dispatch
// index then in-batch position, normalizing as it goes. Network completion
// order never affects the result.
func merge(log *logger.Logger, batches [][]string, in Input, firstIndex int, res *Result) []curation.Candidate {
	var out []curation.Candidate
	for b, batch := range batches {
		for pos, raw := range batch {
			norm, err := normalizer.Normalize(raw)
			if err != nil {
				res.Drops[curation.DropInvalidFormat]++
				log.Debug("candidate rejected by normalizer", "raw", raw, "error", err)
				continue
			}
			out = append(out, curation.Candidate{
				Raw:        raw,
				Text:       norm.Text,
				FirstWord:  norm.FirstWord,
				Category:   in.Category,
				BatchIndex: firstIndex + b,
				Position:   pos,
			})
		}
	}
	return out
}

// evaluate runs dedupe, scoring and admission serially; this is the only
// place corpus state mutates during a run.
func evaluate(ctx context.Context, deps Deps, in Input, merged []curation.Candidate, res *Result) error {
	kept, dropped := deps.Deduper.Dedupe(merged)
	for _, d := range dropped {
		res.Drops[d.Reason]++
	}

	scored, err := deps.Scorer.ScoreBatch(ctx, kept)
	if err != nil {
		return fmt.Errorf("orchestrator: score batch: %w", err)
	}

	ix := deps.Deduper.Index()
	for _, c := range scored {
		c.Source = deps.Provider.Name()
		switch c.Score.Classification {
		case curation.ClassAutoAccept, curation.ClassAccept:
			if err := deps.Quota.CanAdmit(c.Category); err != nil {
				res.Drops[curation.DropQuotaExceeded]++
				ix.Release(c.Category, c.FirstWord)
				continue
			}
			p, err := buildPhrase(c)
			if err != nil {
				return err
			}
			if err := deps.Store.AdmitPhrase(ctx, p); err != nil {
				return fmt.Errorf("orchestrator: admit phrase: %w", err)
			}
			deps.Quota.Admit(c.Category, c.Recent)
			res.Admitted = append(res.Admitted, p)

		case curation.ClassManualReview:
			if in.Mode == ModeManual {
				item, err := buildReviewItem(in.RunID, c)
				if err != nil {
					return err
				}
				if err := deps.Store.QueueReview(ctx, item); err != nil {
					return fmt.Errorf("orchestrator: queue review: %w", err)
				}
			}
			res.Drops[curation.DropManualReview]++
			ix.Release(c.Category, c.FirstWord)

		case curation.ClassWarning:
			res.Drops[curation.DropWarning]++
			ix.Release(c.Category, c.FirstWord)

		default:
			res.Drops[curation.DropAutoReject]++
			ix.Release(c.Category, c.FirstWord)
		}
	}
	return nil
}

func buildPhrase(c curation.Candidate) (*types.Phrase, error) {
	breakdown, err := json.Marshal(c.Score.Breakdown)
	if err != nil {
		return nil, err
	}
	diff := scorer.DifficultyFor(c)
	return &types.Phrase{
		ID:             uuid.New(),
		Text:           c.Text,
		TextKey:        dedupe.TextKey(c.Text),
		Category:       c.Category,
		FirstWord:      c.FirstWord,
		Source:         c.Source,
		Score:          c.Score.Total,
		ScoreBreakdown: breakdown,
		Difficulty:     &diff,
		Recent:         c.Recent,
		AddedAt:        time.Now().UTC(),
	}, nil
}

func buildReviewItem(runID uuid.UUID, c curation.Candidate) (*types.ReviewItem, error) {
	breakdown, err := json.Marshal(c.Score.Breakdown)
	if err != nil {
		return nil, err
	}
	return &types.ReviewItem{
		ID:             uuid.New(),
		RunID:          runID,
		Text:           c.Text,
		Category:       c.Category,
		Score:          c.Score.Total,
		ScoreBreakdown: breakdown,
		Recent:         c.Recent,
		Source:         c.Source,
		Status:         types.ReviewPending,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
