package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/utils"
)

const userAgent = "words-on-phone-curation/1.0 (phrase engagement check)"

// Client measures recent social engagement for a phrase via reddit's public
// search endpoint. It implements curation.SocialRelevanceLookup; pacing is the
// caller's job.
type Client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client

	highScore   int
	mediumScore int
}

func NewClient(log *logger.Logger) *Client {
	baseURL := strings.TrimRight(utils.GetEnv("REDDIT_API_URL", "https://www.reddit.com", log), "/")
	timeoutMS := utils.GetEnvAsInt("REDDIT_TIMEOUT_MS", 8000, log)

	return &Client{
		log:         log.With("client", "RedditClient"),
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutMS) * time.Millisecond},
		highScore:   utils.GetEnvAsInt("REDDIT_HIGH_SCORE", 5000, log),
		mediumScore: utils.GetEnvAsInt("REDDIT_MEDIUM_SCORE", 500, log),
	}
}

type searchResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Score       int `json:"score"`
				NumComments int `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Lookup searches the past year of posts for the exact phrase and tiers the
// best post's combined score and comment count.
func (c *Client) Lookup(ctx context.Context, text string) (curation.EngagementTier, error) {
	params := url.Values{}
	params.Set("q", `"`+text+`"`)
	params.Set("limit", "10")
	params.Set("t", "year")
	params.Set("sort", "top")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return curation.EngagementNone, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return curation.EngagementNone, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return curation.EngagementNone, fmt.Errorf("reddit: http %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return curation.EngagementNone, fmt.Errorf("reddit: decode: %w", err)
	}

	best := 0
	for _, child := range sr.Data.Children {
		if v := child.Data.Score + child.Data.NumComments; v > best {
			best = v
		}
	}
	switch {
	case best >= c.highScore:
		return curation.EngagementHigh, nil
	case best >= c.mediumScore:
		return curation.EngagementMedium, nil
	default:
		return curation.EngagementNone, nil
	}
}
