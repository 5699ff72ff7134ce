package dedupe

import (
	"fmt"
	"testing"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func cand(text, first string, batch, pos int) curation.Candidate {
	return curation.Candidate{
		Text:       text,
		FirstWord:  first,
		Category:   "movies",
		BatchIndex: batch,
		Position:   pos,
	}
}

func TestDedupeExactCaseInsensitive(t *testing.T) {
	d := New(NewIndex(0), testLogger(t))

	kept, dropped := d.Dedupe([]curation.Candidate{
		cand("Jurassic Park", "jurassic", 0, 0),
		cand("JURASSIC PARK", "jurassic", 1, 0),
		cand("Home Alone", "home", 1, 1),
	})
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
	if kept[0].Text != "Jurassic Park" || kept[1].Text != "Home Alone" {
		t.Fatalf("unexpected kept order: %v", kept)
	}
	if len(dropped) != 1 || dropped[0].Reason != curation.DropDuplicate {
		t.Fatalf("unexpected dropped: %v", dropped)
	}
}

func TestDedupeAgainstExistingCorpus(t *testing.T) {
	ix := NewIndex(0)
	ix.Add("Home Alone", "movies", "home")
	d := New(ix, testLogger(t))

	kept, dropped := d.Dedupe([]curation.Candidate{cand("home alone", "home", 0, 0)})
	if len(kept) != 0 || len(dropped) != 1 || dropped[0].Reason != curation.DropDuplicate {
		t.Fatalf("corpus duplicate not dropped: kept=%v dropped=%v", kept, dropped)
	}
}

func TestDedupeFirstWordLimit(t *testing.T) {
	d := New(NewIndex(2), testLogger(t))

	kept, dropped := d.Dedupe([]curation.Candidate{
		cand("Star Wars", "star", 0, 0),
		cand("Star Trek", "star", 0, 1),
		cand("Star Gate", "star", 0, 2),
	})
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
	if len(dropped) != 1 || dropped[0].Reason != curation.DropFirstWordLimit {
		t.Fatalf("expected first-word-limit drop, got %v", dropped)
	}
}

func TestDedupeReleaseFreesFirstWordSlot(t *testing.T) {
	ix := NewIndex(2)
	d := New(ix, testLogger(t))

	d.Dedupe([]curation.Candidate{
		cand("Star Wars", "star", 0, 0),
		cand("Star Trek", "star", 0, 1),
	})
	ix.Release("movies", "star")

	kept, _ := d.Dedupe([]curation.Candidate{cand("Star Gate", "star", 1, 0)})
	if len(kept) != 1 {
		t.Fatalf("expected released slot to admit new candidate, kept=%v", kept)
	}
	// The released text itself stays reserved.
	kept, dropped := d.Dedupe([]curation.Candidate{cand("Star Trek", "star", 2, 0)})
	if len(kept) != 0 || dropped[0].Reason != curation.DropDuplicate {
		t.Fatalf("released text should remain a duplicate: kept=%v dropped=%v", kept, dropped)
	}
}

func TestMergedOverlapProperty(t *testing.T) {
	// 3 batches x 15 candidates with a 6-item overlap across batches
	// must leave 39 uniques.
	var cands []curation.Candidate
	for b := 0; b < 3; b++ {
		for i := 0; i < 15; i++ {
			text := fmt.Sprintf("Phrase B%d N%d", b, i)
			if b > 0 && i < 3 {
				// 3 overlaps per later batch = 6 total
				text = fmt.Sprintf("Phrase B0 N%d", i)
			}
			cands = append(cands, curation.Candidate{
				Text:       text,
				FirstWord:  fmt.Sprintf("b%dn%d", b, i),
				Category:   "movies",
				BatchIndex: b,
				Position:   i,
			})
		}
	}

	d := New(NewIndex(100), testLogger(t))
	kept, dropped := d.Dedupe(cands)
	if len(kept) != 39 {
		t.Fatalf("kept = %d, want 39", len(kept))
	}
	if len(dropped) != 6 {
		t.Fatalf("dropped = %d, want 6", len(dropped))
	}
}
