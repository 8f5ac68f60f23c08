// Package nfcorpus is the HTTP client for the external NFCorpus search
// capability. The capability owns all retrieval and ranking machinery; this
// client only carries query text over and scored candidates back.
package nfcorpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nfagent/internal/domain"
	"github.com/kailas-cloud/nfagent/internal/metrics"
)

// Client calls the search_nfcorpus capability endpoint.
type Client struct {
	endpoint   string
	hc         *http.Client
	maxRetries int
	backoffMin time.Duration
	backoffMax time.Duration
	logger     *zap.Logger
}

// Config holds the search capability client settings.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	BackoffMin time.Duration
	BackoffMax time.Duration
	Logger     *zap.Logger
}

// NewClient creates a search capability client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		hc:         &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		backoffMin: cfg.BackoffMin,
		backoffMax: cfg.BackoffMax,
		logger:     logger,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Results []domain.SearchResult `json:"results"`
}

// Search invokes the capability with bounded retries. Transport failures and
// 5xx responses are retried with jittered backoff; everything else fails
// fast. All failures are wrapped with domain.ErrDependency.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	body, err := json.Marshal(searchRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, backoffJitter(c.backoffMin, c.backoffMax)); err != nil {
				return nil, fmt.Errorf("search aborted: %w", err)
			}
		}

		results, retryable, err := c.doSearch(ctx, body)
		if err == nil {
			metrics.SearchCallsTotal.WithLabelValues("success").Inc()
			metrics.SearchCallDuration.WithLabelValues().Observe(time.Since(start).Seconds())
			return results, nil
		}

		lastErr = err
		if !retryable {
			break
		}
		c.logger.Warn("search capability call failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.maxRetries+1),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	metrics.SearchCallsTotal.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("search capability: %w: %w", domain.ErrDependency, lastErr)
}

// doSearch performs one attempt. The second return value reports whether the
// failure is worth retrying.
func (c *Client) doSearch(ctx context.Context, body []byte) ([]domain.SearchResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/search_nfcorpus", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("search endpoint returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("search endpoint returned %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.Results, false, nil
}

// Ping checks capability reachability for health reporting. Any HTTP
// response counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("search endpoint unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
