package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/httpx"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/utils"
)

const defaultSystemPrompt = "You generate short party-game phrases for a given category. " +
	"Each phrase is 1-6 common English words that players can act out or describe."

// Client implements curation.GenerationProvider against an OpenAI-compatible
// responses API using structured (json_schema) output.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	system     string
	maxRetries int
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(utils.GetEnv("OPENAI_API_KEY", "", nil))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log), "/")
	model := utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log)
	// The prompt wording is an opaque knob; operators can replace it wholesale.
	system := utils.GetEnv("GENERATION_SYSTEM_PROMPT", defaultSystemPrompt, nil)
	maxRetries := utils.GetEnvAsInt("OPENAI_MAX_RETRIES", 2, log)
	timeoutMS := utils.GetEnvAsInt("OPENAI_TIMEOUT_MS", 30000, log)

	return &Client{
		log:        log.With("client", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		system:     system,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: time.Duration(timeoutMS) * time.Millisecond},
	}, nil
}

func (c *Client) Name() string { return "openai:" + c.model }

type responsesRequest struct {
	Model string `json:"model"`
	Input []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"input"`
	Text struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int { return e.StatusCode }

// Generate requests one batch of candidate phrases. Errors are classified
// into the provider taxonomy so the orchestrator can tally them.
func (c *Client) Generate(ctx context.Context, category string, count int, biasRecent bool) ([]string, error) {
	if count <= 0 {
		return nil, curation.NewProviderError(curation.ProviderMalformed, fmt.Errorf("non-positive count %d", count))
	}

	user := fmt.Sprintf("Generate exactly %d distinct phrases for the category %q.", count, category)
	if biasRecent {
		user += " Prefer phrases about things from roughly the last five years."
	}

	req := responsesRequest{Model: c.model}
	req.Input = []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	}{
		{Role: "system", Content: c.system},
		{Role: "user", Content: user},
	}
	req.Text.Format = map[string]any{
		"type": "json_schema",
		"name": "phrase_batch",
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phrases": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required":             []string{"phrases"},
			"additionalProperties": false,
		},
		"strict": true,
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", &req, &resp); err != nil {
		return nil, classify(err)
	}
	if resp.Refusal != "" {
		return nil, curation.NewProviderError(curation.ProviderMalformed, fmt.Errorf("model refused: %s", resp.Refusal))
	}

	jsonText := extractOutputText(resp)
	if strings.TrimSpace(jsonText) == "" {
		return nil, curation.NewProviderError(curation.ProviderMalformed, errors.New("no output_text in response"))
	}

	var payload struct {
		Phrases []string `json:"phrases"`
	}
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, curation.NewProviderError(curation.ProviderMalformed, fmt.Errorf("parse model JSON: %w", err))
	}
	return payload.Phrases, nil
}

func classify(err error) error {
	var he *openAIHTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == 429:
			return curation.NewProviderError(curation.ProviderRateLimited, err)
		case he.StatusCode == 408:
			return curation.NewProviderError(curation.ProviderTimeout, err)
		default:
			return curation.NewProviderError(curation.ProviderUnavailable, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return curation.NewProviderError(curation.ProviderTimeout, err)
	}
	return curation.NewProviderError(curation.ProviderUnavailable, err)
}

func extractOutputText(resp responsesResponse) string {
	for _, out := range resp.Output {
		if out.Type != "message" && out.Type != "" {
			continue
		}
		for _, c := range out.Content {
			if c.Type == "output_text" && c.Text != "" {
				return c.Text
			}
		}
	}
	return ""
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}
