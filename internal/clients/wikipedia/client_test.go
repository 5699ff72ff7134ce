package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &Client{
		log:        log,
		baseURL:    srv.URL,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}, srv
}

func TestLookupBatchParsesPages(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("action"); got != "query" {
			t.Errorf("action = %q, want query", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"query": {
				"normalized": [{"from": "taj mahal", "to": "Taj mahal"}],
				"redirects": [{"from": "Taj mahal", "to": "Taj Mahal"}],
				"pages": {
					"100": {
						"title": "Taj Mahal",
						"langlinks": [{}, {}, {}, {}],
						"links": [{}, {}, {}, {}, {}, {}, {}, {}, {}, {}, {}, {}]
					},
					"-1": {"title": "Zxqvw Nonsense", "missing": ""}
				}
			}
		}`))
	})

	res, err := c.LookupBatch(context.Background(), []string{"taj mahal", "Zxqvw Nonsense"})
	if err != nil {
		t.Fatalf("LookupBatch: %v", err)
	}

	taj := res["taj mahal"]
	if !taj.Exists {
		t.Fatalf("taj mahal should exist, got %+v", taj)
	}
	if taj.SourceCount != 4 || taj.CrossRefCount != 12 {
		t.Errorf("taj mahal counts = %+v, want sources=4 crossrefs=12", taj)
	}
	if res["Zxqvw Nonsense"].Exists {
		t.Errorf("missing page reported as existing")
	}
}

func TestLookupBatchRejectsOversizedBatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be hit")
	})
	texts := make([]string, 51)
	for i := range texts {
		texts[i] = "x"
	}
	if _, err := c.LookupBatch(context.Background(), texts); err == nil {
		t.Fatal("expected error for oversized batch")
	}
}

func TestLookupBatchRateLimitedReturnsError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	if _, err := c.LookupBatch(context.Background(), []string{"anything"}); err == nil {
		t.Fatal("expected rate-limit error")
	}
}

func TestLookupBatchRetriesOnceAfterRateLimit(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"query": {"pages": {"1": {"title": "Pizza", "langlinks": [{}], "links": [{}]}}}}`))
	})

	res, err := c.LookupBatch(context.Background(), []string{"Pizza"})
	if err != nil {
		t.Fatalf("LookupBatch: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !res["Pizza"].Exists {
		t.Errorf("expected hit after retry, got %+v", res["Pizza"])
	}
}

func TestLookupBatchFallsBackToTitleVariants(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		titles := r.URL.Query().Get("titles")
		switch calls {
		case 1:
			if titles != "The Lion King" {
				t.Errorf("first call titles = %q", titles)
			}
			w.Write([]byte(`{"query": {"pages": {"-1": {"title": "The Lion King", "missing": ""}}}}`))
		case 2:
			if titles != "Lion King" {
				t.Errorf("variant call titles = %q", titles)
			}
			w.Write([]byte(`{"query": {"pages": {"7": {"title": "Lion King", "langlinks": [{}, {}], "links": [{}, {}, {}]}}}}`))
		default:
			t.Errorf("unexpected call %d", calls)
		}
	})

	res, err := c.LookupBatch(context.Background(), []string{"The Lion King"})
	if err != nil {
		t.Fatalf("LookupBatch: %v", err)
	}
	got := res["The Lion King"]
	if !got.Exists || got.SourceCount != 2 || got.CrossRefCount != 3 {
		t.Errorf("variant result = %+v, want exists with sources=2 crossrefs=3", got)
	}
}

func TestLookupBatchEmptyInput(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be hit")
	})
	res, err := c.LookupBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("LookupBatch: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("expected empty result, got %v", res)
	}
}
