package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/httpx"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/utils"
)

const (
	userAgent = "words-on-phone-curation/1.0 (phrase corpus validation)"

	maxRatePause = 30 * time.Second
)

// Client validates phrases against the MediaWiki query API in batched
// round-trips: existence, language-link breadth and outbound-link volume per
// title. It implements curation.KnowledgeBaseLookup.
type Client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client

	cache    *goredis.Client
	cacheTTL time.Duration

	ratePause time.Duration
}

// NewClient wires the lookup; rdb may be nil, which disables caching.
func NewClient(log *logger.Logger, rdb *goredis.Client) *Client {
	baseURL := strings.TrimRight(utils.GetEnv("WIKIPEDIA_API_URL", "https://en.wikipedia.org/w/api.php", log), "/")
	timeoutMS := utils.GetEnvAsInt("WIKIPEDIA_TIMEOUT_MS", 10000, log)
	cacheTTLHours := utils.GetEnvAsInt("WIKIPEDIA_CACHE_TTL_HOURS", 168, log)
	ratePauseMS := utils.GetEnvAsInt("WIKIPEDIA_RATE_PAUSE_MS", 5000, log)

	return &Client{
		log:        log.With("client", "WikipediaClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutMS) * time.Millisecond},
		cache:      rdb,
		cacheTTL:   time.Duration(cacheTTLHours) * time.Hour,
		ratePause:  time.Duration(ratePauseMS) * time.Millisecond,
	}
}

type queryResponse struct {
	Query struct {
		Normalized []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"normalized"`
		Redirects []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"redirects"`
		Pages map[string]struct {
			Title     string `json:"title"`
			Missing   *any   `json:"missing,omitempty"`
			LangLinks []any  `json:"langlinks"`
			Links     []any  `json:"links"`
		} `json:"pages"`
	} `json:"query"`
}

// LookupBatch resolves up to curation.KnowledgeBaseBatchMax texts per HTTP
// round-trip. Any transport or payload error returns an error so the scorer
// can degrade the stage to zero.
func (c *Client) LookupBatch(ctx context.Context, texts []string) (map[string]curation.KnowledgeBaseResult, error) {
	out := make(map[string]curation.KnowledgeBaseResult, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	if len(texts) > curation.KnowledgeBaseBatchMax {
		return nil, fmt.Errorf("wikipedia: batch of %d exceeds max %d", len(texts), curation.KnowledgeBaseBatchMax)
	}

	misses := make([]string, 0, len(texts))
	for _, t := range texts {
		if r, ok := c.cacheGet(ctx, t); ok {
			out[t] = r
			continue
		}
		misses = append(misses, t)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.queryTitles(ctx, misses)
	if err != nil {
		return nil, err
	}

	// Titles the direct lookup missed get one more round trip with relaxed
	// variants: apostrophes stripped, "&" spelled out, leading "The" dropped.
	variantOf := map[string]string{}
	var variants []string
	for _, t := range misses {
		if fetched[t].Exists {
			continue
		}
		for _, v := range titleVariants(t) {
			if _, taken := variantOf[v]; taken || len(variants) >= curation.KnowledgeBaseBatchMax {
				continue
			}
			variantOf[v] = t
			variants = append(variants, v)
		}
	}
	if len(variants) > 0 {
		if vf, verr := c.queryTitles(ctx, variants); verr == nil {
			for v, r := range vf {
				if !r.Exists {
					continue
				}
				if orig := variantOf[v]; !fetched[orig].Exists {
					fetched[orig] = r
				}
			}
		} else {
			c.log.Debug("variant lookup failed", "error", verr)
		}
	}

	for _, t := range misses {
		r := fetched[t]
		out[t] = r
		c.cacheSet(ctx, t, r)
	}
	return out, nil
}

func (c *Client) queryTitles(ctx context.Context, texts []string) (map[string]curation.KnowledgeBaseResult, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("redirects", "1")
	params.Set("prop", "langlinks|links")
	params.Set("lllimit", "max")
	params.Set("pllimit", "max")
	params.Set("titles", strings.Join(texts, "|"))

	var raw []byte
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			pause := httpx.RetryAfterDuration(resp, c.ratePause, maxRatePause)
			resp.Body.Close()
			if attempt > 0 {
				return nil, fmt.Errorf("wikipedia: rate limited")
			}
			// One long pause, then a single retry before degrading.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(httpx.JitterSleep(pause)):
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("wikipedia: http %d", resp.StatusCode)
		}

		raw, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		break
	}
	var qr queryResponse
	if err := json.Unmarshal(raw, &qr); err != nil {
		return nil, fmt.Errorf("wikipedia: decode: %w", err)
	}

	// Map response titles back through redirect/normalization chains to the
	// texts we asked for.
	aliases := map[string]string{}
	for _, n := range qr.Query.Normalized {
		aliases[n.To] = n.From
	}
	for _, r := range qr.Query.Redirects {
		from := r.From
		if orig, ok := aliases[from]; ok {
			from = orig
		}
		aliases[r.To] = from
	}

	results := make(map[string]curation.KnowledgeBaseResult, len(texts))
	for _, page := range qr.Query.Pages {
		asked := page.Title
		if orig, ok := aliases[page.Title]; ok {
			asked = orig
		}
		if page.Missing != nil {
			results[asked] = curation.KnowledgeBaseResult{}
			continue
		}
		results[asked] = curation.KnowledgeBaseResult{
			Exists:        true,
			SourceCount:   len(page.LangLinks),
			CrossRefCount: len(page.Links),
		}
	}
	return results, nil
}

func titleVariants(text string) []string {
	seen := map[string]struct{}{text: {}}
	var out []string
	add := func(v string) {
		v = strings.Join(strings.Fields(v), " ")
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(strings.ReplaceAll(text, "'", ""))
	add(strings.ReplaceAll(text, "&", "and"))
	if len(text) > 4 && strings.EqualFold(text[:4], "the ") {
		add(text[4:])
	}
	return out
}

func cacheKey(text string) string {
	return "kb:wikipedia:" + strings.ToLower(strings.TrimSpace(text))
}

func (c *Client) cacheGet(ctx context.Context, text string) (curation.KnowledgeBaseResult, bool) {
	if c.cache == nil {
		return curation.KnowledgeBaseResult{}, false
	}
	raw, err := c.cache.Get(ctx, cacheKey(text)).Bytes()
	if err != nil {
		return curation.KnowledgeBaseResult{}, false
	}
	var r curation.KnowledgeBaseResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return curation.KnowledgeBaseResult{}, false
	}
	return r, true
}

func (c *Client) cacheSet(ctx context.Context, text string, r curation.KnowledgeBaseResult) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(text), raw, c.cacheTTL).Err(); err != nil {
		c.log.Debug("cache set failed", "error", err)
	}
}
