// Package advice is the advisory text capability. It is a stateless
// request/response collaborator with no algorithmic content; the ledger
// neither calls nor depends on it. Any generation failure degrades to a
// static fallback string rather than an error at the HTTP boundary.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Fallback copy returned whenever generation fails or is unconfigured.
const (
	earningFallback    = "Keep engaging with tasks regularly to build your reputation and unlock higher-paying rewards!"
	engagementFallback = "Great content! Really enjoyed seeing this."
)

// Generator produces short advisory texts for earners and advertisers.
type Generator interface {
	EarningTips(ctx context.Context, balance int64, completedTasks int) string
	EngagementCopy(ctx context.Context, taskType, platform string) string
}

// Static always answers with the fallback copy. It serves tests and
// deployments with no generation endpoint configured.
type Static struct{}

func (Static) EarningTips(context.Context, int64, int) string        { return earningFallback }
func (Static) EngagementCopy(context.Context, string, string) string { return engagementFallback }

var _ Generator = Static{}

// Client calls an external text-generation endpoint. The endpoint takes
// {"prompt": "..."} and answers {"text": "..."}.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient returns a Generator backed by the given endpoint.
func NewClient(endpoint, apiKey string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

var _ Generator = (*Client)(nil)

func (c *Client) EarningTips(ctx context.Context, balance int64, completedTasks int) string {
	prompt := fmt.Sprintf(
		"I have a balance of %d kobo and have completed %d tasks on MediaEarn. Give me 3 short, professional tips on how to increase my earnings on a social media micro-tasking platform.",
		balance, completedTasks)
	return c.generate(ctx, prompt, earningFallback)
}

func (c *Client) EngagementCopy(ctx context.Context, taskType, platform string) string {
	prompt := fmt.Sprintf(
		"Generate a short, engaging comment or post caption for a %s task on %s. The tone should be natural and positive.",
		taskType, platform)
	return c.generate(ctx, prompt, engagementFallback)
}

func (c *Client) generate(ctx context.Context, prompt, fallback string) string {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return fallback
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fallback
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("advice generation failed", "error", err)
		return fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("advice generation failed", "status", resp.StatusCode)
		return fallback
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Text == "" {
		return fallback
	}
	return out.Text
}
