package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &Client{
		log:         log,
		baseURL:     srv.URL,
		httpClient:  &http.Client{Timeout: 2 * time.Second},
		highScore:   5000,
		mediumScore: 500,
	}
}

func postsBody(scores ...int) string {
	children := ""
	for i, s := range scores {
		if i > 0 {
			children += ","
		}
		children += fmt.Sprintf(`{"data": {"score": %d, "num_comments": 0}}`, s)
	}
	return `{"data": {"children": [` + children + `]}}`
}

func TestLookupTiers(t *testing.T) {
	cases := []struct {
		name   string
		scores []int
		want   curation.EngagementTier
	}{
		{"high", []int{120, 9000, 40}, curation.EngagementHigh},
		{"medium", []int{700, 30}, curation.EngagementMedium},
		{"none", []int{12, 3}, curation.EngagementNone},
		{"empty", nil, curation.EngagementNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := postsBody(tc.scores...)
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if q := r.URL.Query().Get("q"); q != `"Taylor Swift"` {
					t.Errorf("q = %q, want quoted phrase", q)
				}
				w.Write([]byte(body))
			})
			got, err := c.Lookup(context.Background(), "Taylor Swift")
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if got != tc.want {
				t.Errorf("tier = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLookupCommentsCountTowardTier(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"children": [{"data": {"score": 300, "num_comments": 400}}]}}`))
	})
	got, err := c.Lookup(context.Background(), "Taylor Swift")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != curation.EngagementMedium {
		t.Errorf("tier = %q, want medium (score+comments = 700)", got)
	}
}

func TestLookupHTTPErrorSurfaces(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	if _, err := c.Lookup(context.Background(), "Taylor Swift"); err == nil {
		t.Fatal("expected error on 429")
	}
}
