package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/dedupe"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/normalizer"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/orchestrator"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/quota"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/scorer"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/data/repos"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/apierr"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

type BatchRequest struct {
	Category    string `json:"category"`
	TargetCount int    `json:"target_count"`
	Mode        string `json:"mode"`
}

type BatchResult struct {
	Run      *domain.CurationRun `json:"run"`
	Admitted []*domain.Phrase    `json:"admitted"`
}

type CategoryStats struct {
	Category     domain.Category    `json:"category"`
	Status       domain.QuotaStatus `json:"status"`
	RecencyRatio float64            `json:"recency_ratio"`
}

// ImportEntry mirrors the exported Phrase fields so an export feeds straight
// back into an import with nothing lost.
type ImportEntry struct {
	Text           string             `json:"text"`
	Category       string             `json:"category"`
	Score          int                `json:"score"`
	Recent         bool               `json:"recent"`
	Source         string             `json:"source,omitempty"`
	ScoreBreakdown datatypes.JSON     `json:"score_breakdown,omitempty"`
	Difficulty     *domain.Difficulty `json:"difficulty,omitempty"`
	OverrideReason *string            `json:"override_reason,omitempty"`
}

type ImportReport struct {
	Imported int               `json:"imported"`
	Skipped  map[string]string `json:"skipped,omitempty"`
}

type CurationService interface {
	InitQuota(ctx context.Context, registry []domain.Category) error
	RequestBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)
	ListCategories(ctx context.Context) ([]CategoryStats, error)
	GetCategoryStats(ctx context.Context, name string) (*CategoryStats, error)
	ExportCorpus(ctx context.Context, category, difficulty string) ([]*domain.Phrase, error)
	ImportCorpus(ctx context.Context, entries []ImportEntry) (*ImportReport, error)
	OverridePhrase(ctx context.Context, id uuid.UUID, difficulty domain.Difficulty, reason string) (*domain.Phrase, error)
	DeletePhrase(ctx context.Context, id uuid.UUID) error
	ListPendingReviews(ctx context.Context, category string) ([]*domain.ReviewItem, error)
	ResolveReview(ctx context.Context, id uuid.UUID, approve bool, resolvedBy string) (*domain.ReviewItem, error)
	ListRuns(ctx context.Context, category string, limit int) ([]*domain.CurationRun, error)
}

type Tunables struct {
	RunDeadline    time.Duration
	Orchestrator   orchestrator.Config
	FirstWordLimit int
	ScorerConfig   scorer.Config
}

type curationService struct {
	db  *gorm.DB
	log *logger.Logger

	phraseRepo   repos.PhraseRepo
	categoryRepo repos.CategoryRepo
	runRepo      repos.RunRepo
	reviewRepo   repos.ReviewRepo

	provider curation.GenerationProvider
	kb       curation.KnowledgeBaseLookup
	social   curation.SocialRelevanceLookup

	quota *quota.Tracker
	tun   Tunables
}

func NewCurationService(
	db *gorm.DB,
	log *logger.Logger,
	phraseRepo repos.PhraseRepo,
	categoryRepo repos.CategoryRepo,
	runRepo repos.RunRepo,
	reviewRepo repos.ReviewRepo,
	provider curation.GenerationProvider,
	kb curation.KnowledgeBaseLookup,
	social curation.SocialRelevanceLookup,
	tun Tunables,
) CurationService {
	serviceLog := log.With("service", "CurationService")
	if tun.RunDeadline <= 0 {
		tun.RunDeadline = time.Minute
	}
	return &curationService{
		db:           db,
		log:          serviceLog,
		phraseRepo:   phraseRepo,
		categoryRepo: categoryRepo,
		runRepo:      runRepo,
		reviewRepo:   reviewRepo,
		provider:     provider,
		kb:           kb,
		social:       social,
		quota:        quota.NewTracker(serviceLog),
		tun:          tun,
	}
}

// InitQuota writes the category registry, then seeds the in-memory quota
// tracker from the persisted corpus counts.
func (cs *curationService) InitQuota(ctx context.Context, registry []domain.Category) error {
	if err := cs.categoryRepo.Upsert(ctx, nil, registry); err != nil {
		return fmt.Errorf("upsert category registry: %w", err)
	}

	counts, err := cs.phraseRepo.CategoryCounts(ctx, nil)
	if err != nil {
		return fmt.Errorf("load corpus counts: %w", err)
	}
	byCat := map[string]repos.CategoryCount{}
	for _, c := range counts {
		byCat[c.Category] = c
	}

	for _, cat := range registry {
		cc := byCat[cat.Name]
		cat.PhraseCount = cc.Total
		cat.RecentCount = cc.Recent
		cs.quota.Register(cat)
		if err := cs.categoryRepo.UpdateCounts(ctx, nil, cat.Name, cc.Total, cc.Recent); err != nil {
			return fmt.Errorf("sync counts for %s: %w", cat.Name, err)
		}
	}
	cs.log.Info("quota tracker seeded", "categories", len(registry))
	return nil
}

func (cs *curationService) RequestBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if req.TargetCount <= 0 {
		return nil, apierr.New(http.StatusBadRequest, "invalid_target", fmt.Errorf("target count must be positive"))
	}
	if !cs.quota.Known(req.Category) {
		return nil, apierr.New(http.StatusNotFound, "unknown_category", fmt.Errorf("unknown category %q", req.Category))
	}
	mode := req.Mode
	if mode == "" {
		mode = orchestrator.ModeAuto
	}
	if mode != orchestrator.ModeAuto && mode != orchestrator.ModeManual {
		return nil, apierr.New(http.StatusBadRequest, "invalid_mode", fmt.Errorf("mode must be auto or manual"))
	}

	index, err := cs.buildIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("build dedupe index: %w", err)
	}

	runID := uuid.New()
	startedAt := time.Now().UTC()

	runCtx, cancel := context.WithTimeout(ctx, cs.tun.RunDeadline)
	defer cancel()

	sc := scorer.New(cs.tun.ScorerConfig, cs.kb, cs.social, cs.quota.ScoreModifier, cs.log)
	deps := orchestrator.Deps{
		Log:      cs.log,
		Config:   cs.tun.Orchestrator,
		Provider: cs.provider,
		Scorer:   sc,
		Quota:    cs.quota,
		Deduper:  dedupe.New(index, cs.log),
		Store:    cs,
	}
	res, err := orchestrator.Run(runCtx, deps, orchestrator.Input{
		RunID:       runID,
		Category:    req.Category,
		TargetCount: req.TargetCount,
		Mode:        mode,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestration: %w", err)
	}

	run, err := cs.recordRun(ctx, runID, req.Category, req.TargetCount, mode, startedAt, res)
	if err != nil {
		return nil, err
	}
	if err := cs.syncCategoryCounts(ctx, req.Category); err != nil {
		cs.log.Warn("category count sync failed", "category", req.Category, "error", err)
	}
	return &BatchResult{Run: run, Admitted: res.Admitted}, nil
}

// AdmitPhrase implements orchestrator.Store.
func (cs *curationService) AdmitPhrase(ctx context.Context, p *domain.Phrase) error {
	_, err := cs.phraseRepo.Create(ctx, nil, []*domain.Phrase{p})
	return err
}

// QueueReview implements orchestrator.Store.
func (cs *curationService) QueueReview(ctx context.Context, item *domain.ReviewItem) error {
	_, err := cs.reviewRepo.Create(ctx, nil, []*domain.ReviewItem{item})
	return err
}

func (cs *curationService) buildIndex(ctx context.Context) (*dedupe.Index, error) {
	index := dedupe.NewIndex(cs.tun.FirstWordLimit)

	keys, err := cs.phraseRepo.ListTextKeys(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		index.AddText(k)
	}

	buckets, err := cs.phraseRepo.FirstWordCounts(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, b := range buckets {
		index.SetFirstWordCount(b.Category, b.FirstWord, b.Count)
	}
	return index, nil
}

func (cs *curationService) recordRun(ctx context.Context, runID uuid.UUID, category string, target int, mode string, startedAt time.Time, res orchestrator.Result) (*domain.CurationRun, error) {
	tallies, err := json.Marshal(res.Drops)
	if err != nil {
		return nil, fmt.Errorf("marshal drop tallies: %w", err)
	}
	run := &domain.CurationRun{
		ID:                runID,
		Category:          category,
		TargetCount:       target,
		Mode:              mode,
		State:             res.State,
		BatchesDispatched: res.BatchesDispatched,
		ProviderFailures:  res.ProviderFailures,
		CandidatesSeen:    res.CandidatesSeen,
		AdmittedCount:     len(res.Admitted),
		MetTarget:         res.MetTarget,
		DropTallies:       tallies,
		StartedAt:         startedAt,
		FinishedAt:        time.Now().UTC(),
	}
	if _, err := cs.runRepo.Create(ctx, nil, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

func (cs *curationService) syncCategoryCounts(ctx context.Context, category string) error {
	stats, ok := cs.quota.Snapshot(category)
	if !ok {
		return nil
	}
	return cs.categoryRepo.UpdateCounts(ctx, nil, category, stats.Count, stats.RecentCount)
}

func (cs *curationService) ListCategories(ctx context.Context) ([]CategoryStats, error) {
	cats, err := cs.categoryRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryStats, 0, len(cats))
	for _, c := range cats {
		out = append(out, cs.statsFor(*c))
	}
	return out, nil
}

func (cs *curationService) GetCategoryStats(ctx context.Context, name string) (*CategoryStats, error) {
	cat, err := cs.categoryRepo.GetByName(ctx, nil, name)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierr.New(http.StatusNotFound, "unknown_category", fmt.Errorf("unknown category %q", name))
		}
		return nil, err
	}
	stats := cs.statsFor(*cat)
	return &stats, nil
}

func (cs *curationService) statsFor(cat domain.Category) CategoryStats {
	stats := CategoryStats{Category: cat}
	if snap, ok := cs.quota.Snapshot(cat.Name); ok {
		stats.Status = snap.Status
		stats.RecencyRatio = snap.RecencyRatio
		stats.Category.PhraseCount = snap.Count
		stats.Category.RecentCount = snap.RecentCount
	}
	return stats
}

func (cs *curationService) ExportCorpus(ctx context.Context, category, difficulty string) ([]*domain.Phrase, error) {
	if category != "" && !cs.quota.Known(category) {
		return nil, apierr.New(http.StatusNotFound, "unknown_category", fmt.Errorf("unknown category %q", category))
	}
	switch domain.Difficulty(difficulty) {
	case "", domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
	default:
		return nil, apierr.New(http.StatusBadRequest, "invalid_difficulty", fmt.Errorf("difficulty must be one of easy, medium, hard"))
	}
	phrases, err := cs.phraseRepo.List(ctx, nil, category)
	if err != nil || difficulty == "" {
		return phrases, err
	}
	filtered := make([]*domain.Phrase, 0, len(phrases))
	for _, p := range phrases {
		if p.Difficulty != nil && *p.Difficulty == domain.Difficulty(difficulty) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// ImportCorpus admits pre-scored phrases, normalizing and deduping them the
// same way generated candidates are. Rows that fail validation are reported,
// not fatal.
func (cs *curationService) ImportCorpus(ctx context.Context, entries []ImportEntry) (*ImportReport, error) {
	if len(entries) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "empty_import", fmt.Errorf("no entries to import"))
	}

	index, err := cs.buildIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("build dedupe index: %w", err)
	}

	report := &ImportReport{Skipped: map[string]string{}}
	var rows []*domain.Phrase
	now := time.Now().UTC()

	for _, e := range entries {
		if !cs.quota.Known(e.Category) {
			report.Skipped[e.Text] = "unknown category"
			continue
		}
		norm, err := normalizer.Normalize(e.Text)
		if err != nil {
			report.Skipped[e.Text] = "invalid format"
			continue
		}
		if index.Has(norm.Text) {
			report.Skipped[e.Text] = "duplicate"
			continue
		}
		if index.FirstWordCount(e.Category, norm.FirstWord) >= cs.firstWordLimit() {
			report.Skipped[e.Text] = "first-word limit"
			continue
		}
		if err := cs.quota.CanAdmit(e.Category); err != nil {
			report.Skipped[e.Text] = "quota exceeded"
			continue
		}

		score := e.Score
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		index.Add(norm.Text, e.Category, norm.FirstWord)
		cs.quota.Admit(e.Category, e.Recent)

		source := e.Source
		if source == "" {
			source = "import"
		}
		diff := difficultyForImport(norm.WordCount, score)
		if e.Difficulty != nil {
			switch *e.Difficulty {
			case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
				diff = *e.Difficulty
			}
		}
		rows = append(rows, &domain.Phrase{
			ID:             uuid.New(),
			Text:           norm.Text,
			TextKey:        dedupe.TextKey(norm.Text),
			Category:       e.Category,
			FirstWord:      norm.FirstWord,
			Source:         source,
			Score:          score,
			ScoreBreakdown: e.ScoreBreakdown,
			Difficulty:     &diff,
			Recent:         e.Recent,
			OverrideReason: e.OverrideReason,
			AddedAt:        now,
		})
	}

	if _, err := cs.phraseRepo.Create(ctx, nil, rows); err != nil {
		// The tracker was admitting as entries passed validation; put the
		// counts back so it still matches the corpus.
		for _, r := range rows {
			cs.quota.Remove(r.Category, r.Recent)
		}
		return nil, fmt.Errorf("persist import: %w", err)
	}
	report.Imported = len(rows)

	seen := map[string]bool{}
	for _, r := range rows {
		if !seen[r.Category] {
			seen[r.Category] = true
			if err := cs.syncCategoryCounts(ctx, r.Category); err != nil {
				cs.log.Warn("category count sync failed", "category", r.Category, "error", err)
			}
		}
	}
	return report, nil
}

func (cs *curationService) firstWordLimit() int {
	if cs.tun.FirstWordLimit > 0 {
		return cs.tun.FirstWordLimit
	}
	return dedupe.DefaultFirstWordLimit
}

func difficultyForImport(wordCount, score int) domain.Difficulty {
	switch {
	case wordCount <= 2 && score >= 70:
		return domain.DifficultyEasy
	case wordCount >= 5 || score < 45:
		return domain.DifficultyHard
	default:
		return domain.DifficultyMedium
	}
}

func (cs *curationService) OverridePhrase(ctx context.Context, id uuid.UUID, difficulty domain.Difficulty, reason string) (*domain.Phrase, error) {
	switch difficulty {
	case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
	default:
		return nil, apierr.New(http.StatusBadRequest, "invalid_difficulty", fmt.Errorf("difficulty must be one of easy, medium, hard"))
	}
	if reason == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_reason", fmt.Errorf("override requires a reason"))
	}
	if err := cs.phraseRepo.Override(ctx, nil, id, difficulty, reason); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierr.New(http.StatusNotFound, "phrase_not_found", fmt.Errorf("phrase %s not found", id))
		}
		return nil, err
	}
	return cs.phraseRepo.GetByID(ctx, nil, id)
}

func (cs *curationService) DeletePhrase(ctx context.Context, id uuid.UUID) error {
	removed, err := cs.phraseRepo.Delete(ctx, nil, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return apierr.New(http.StatusNotFound, "phrase_not_found", fmt.Errorf("phrase %s not found", id))
		}
		return err
	}
	cs.quota.Remove(removed.Category, removed.Recent)
	if err := cs.syncCategoryCounts(ctx, removed.Category); err != nil {
		cs.log.Warn("category count sync failed", "category", removed.Category, "error", err)
	}
	return nil
}

func (cs *curationService) ListPendingReviews(ctx context.Context, category string) ([]*domain.ReviewItem, error) {
	return cs.reviewRepo.ListPending(ctx, nil, category)
}

// ResolveReview approves or rejects a queued candidate. Approval admits it to
// the corpus under the same dedupe and quota rules as generation.
func (cs *curationService) ResolveReview(ctx context.Context, id uuid.UUID, approve bool, resolvedBy string) (*domain.ReviewItem, error) {
	item, err := cs.reviewRepo.GetByID(ctx, nil, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierr.New(http.StatusNotFound, "review_not_found", fmt.Errorf("review item %s not found", id))
		}
		return nil, err
	}
	if item.Status != domain.ReviewPending {
		return nil, apierr.New(http.StatusConflict, "already_resolved", fmt.Errorf("review item %s already %s", id, item.Status))
	}

	status := domain.ReviewRejected
	if approve {
		status = domain.ReviewApproved
	}

	if approve {
		exists, err := cs.phraseRepo.TextKeyExists(ctx, nil, dedupe.TextKey(item.Text))
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apierr.New(http.StatusConflict, "duplicate_phrase", fmt.Errorf("%q already in corpus", item.Text))
		}
		if err := cs.quota.CanAdmit(item.Category); err != nil {
			return nil, apierr.New(http.StatusConflict, "quota_exceeded", err)
		}

		norm, err := normalizer.Normalize(item.Text)
		if err != nil {
			return nil, fmt.Errorf("normalize review text: %w", err)
		}
		bucket, err := cs.phraseRepo.FirstWordBucket(ctx, nil, item.Category, norm.FirstWord)
		if err != nil {
			return nil, err
		}
		if bucket >= cs.firstWordLimit() {
			return nil, apierr.New(http.StatusConflict, "first_word_limit",
				fmt.Errorf("admitting %q would exceed %d %s phrases starting with %q", item.Text, cs.firstWordLimit(), item.Category, norm.FirstWord))
		}
		diff := difficultyForImport(norm.WordCount, item.Score)
		phrase := &domain.Phrase{
			ID:             uuid.New(),
			Text:           norm.Text,
			TextKey:        dedupe.TextKey(norm.Text),
			Category:       item.Category,
			FirstWord:      norm.FirstWord,
			Source:         item.Source,
			Score:          item.Score,
			ScoreBreakdown: item.ScoreBreakdown,
			Difficulty:     &diff,
			Recent:         item.Recent,
			AddedAt:        time.Now().UTC(),
		}
		if _, err := cs.phraseRepo.Create(ctx, nil, []*domain.Phrase{phrase}); err != nil {
			return nil, fmt.Errorf("admit reviewed phrase: %w", err)
		}
		cs.quota.Admit(item.Category, item.Recent)
		if err := cs.syncCategoryCounts(ctx, item.Category); err != nil {
			cs.log.Warn("category count sync failed", "category", item.Category, "error", err)
		}
	}

	if err := cs.reviewRepo.Resolve(ctx, nil, id, status, resolvedBy); err != nil {
		return nil, err
	}
	return cs.reviewRepo.GetByID(ctx, nil, id)
}

func (cs *curationService) ListRuns(ctx context.Context, category string, limit int) ([]*domain.CurationRun, error) {
	return cs.runRepo.List(ctx, nil, category, limit)
}
