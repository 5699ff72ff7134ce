package dedupe

import (
	"strings"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

// DefaultFirstWordLimit bounds how many phrases in a category may share a
// first word.
const DefaultFirstWordLimit = 2

// Index holds the corpus-wide exact-text set and per (category, firstWord)
// counters. It is mutated only from the single-threaded evaluation phase.
type Index struct {
	texts      map[string]bool
	firstWords map[string]int
	limit      int
}

func NewIndex(firstWordLimit int) *Index {
	if firstWordLimit <= 0 {
		firstWordLimit = DefaultFirstWordLimit
	}
	return &Index{
		texts:      map[string]bool{},
		firstWords: map[string]int{},
		limit:      firstWordLimit,
	}
}

func TextKey(text string) string { return strings.ToLower(strings.TrimSpace(text)) }

func fwKey(category, firstWord string) string {
	return category + "\x00" + strings.ToLower(firstWord)
}

// Add registers an admitted phrase (existing corpus rows at index build time,
// or run-local admissions as they happen).
func (ix *Index) Add(text, category, firstWord string) {
	ix.texts[TextKey(text)] = true
	ix.firstWords[fwKey(category, firstWord)]++
}

// AddText reserves an exact-text key without touching first-word counters,
// for index builds where per-bucket counts are loaded separately.
func (ix *Index) AddText(text string) { ix.texts[TextKey(text)] = true }

// SetFirstWordCount seeds one (category, firstWord) bucket from corpus
// aggregates.
func (ix *Index) SetFirstWordCount(category, firstWord string, n int) {
	ix.firstWords[fwKey(category, firstWord)] = n
}

func (ix *Index) Has(text string) bool { return ix.texts[TextKey(text)] }

func (ix *Index) FirstWordCount(category, firstWord string) int {
	return ix.firstWords[fwKey(category, firstWord)]
}

// Release frees a first-word slot that was reserved for a candidate the
// scorer later threw out. The exact-text reservation stays for the rest of
// the run so a regenerated copy is not rescored.
func (ix *Index) Release(category, firstWord string) {
	k := fwKey(category, firstWord)
	if ix.firstWords[k] > 0 {
		ix.firstWords[k]--
	}
}

// Deduplicator filters a merged candidate sequence against the index,
// reserving slots as it keeps candidates so a single batch cannot exceed the
// first-word limit on its own.
type Deduplicator struct {
	ix  *Index
	log *logger.Logger
}

func New(ix *Index, log *logger.Logger) *Deduplicator {
	return &Deduplicator{ix: ix, log: log.With("component", "Deduplicator")}
}

func (d *Deduplicator) Index() *Index { return d.ix }

// Dedupe keeps the earliest-seen instance of each text; candidates must
// already be in merge order (dispatch index, then in-batch position).
func (d *Deduplicator) Dedupe(cands []curation.Candidate) ([]curation.Candidate, []curation.Dropped) {
	kept := make([]curation.Candidate, 0, len(cands))
	var dropped []curation.Dropped

	for _, c := range cands {
		if d.ix.Has(c.Text) {
			dropped = append(dropped, curation.Dropped{Candidate: c, Reason: curation.DropDuplicate})
			continue
		}
		if d.ix.FirstWordCount(c.Category, c.FirstWord) >= d.ix.limit {
			dropped = append(dropped, curation.Dropped{Candidate: c, Reason: curation.DropFirstWordLimit})
			continue
		}
		d.ix.Add(c.Text, c.Category, c.FirstWord)
		kept = append(kept, c)
	}

	if len(dropped) > 0 {
		d.log.Debug("dedupe dropped candidates", "kept", len(kept), "dropped", len(dropped))
	}
	return kept, dropped
}
