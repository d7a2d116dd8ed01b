package pod

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dispatch/internal/generation"
	"dispatch/internal/infra"
)

const defaultReadyTimeout = 3 * time.Second

// Options configures the direct pod client.
type Options struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	ReadyTimeout time.Duration
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Client performs one blocking HTTP call per job against an always-on worker
// at a fixed address. It never polls; the pod answers synchronously.
type Client struct {
	baseURL      string
	apiKey       string
	timeout      time.Duration
	readyTimeout time.Duration
	httpClient   *http.Client
	logger       *infra.Logger
}

// NewClient constructs a pod client. The base URL is mandatory; credentials
// are optional because self-hosted pods often run without auth.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("pod: base url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = defaultReadyTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(opts.APIKey),
		timeout:      timeout,
		readyTimeout: readyTimeout,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// GenerateImage posts the payload to {base}/generate and returns the
// normalized result on a 2xx response. Every failure mode, timeout, HTTP
// error status or transport error, is logged and collapses into a nil
// result; nothing is raised so the router can treat the pod uniformly.
func (c *Client) GenerateImage(ctx context.Context, payload map[string]any, requestID string) *generation.Result {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error().Err(err).Str("request_id", requestID).Msg("pod: encode payload failed")
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		c.logger.Error().Err(err).Str("request_id", requestID).Msg("pod: build request failed")
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("request_id", requestID).
			Dur("duration", time.Since(start)).
			Msg("pod: generate call failed")
		return nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn().Err(err).Str("request_id", requestID).Msg("pod: read response failed")
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Str("request_id", requestID).
			Str("body", truncate(string(raw), 512)).
			Dur("duration", time.Since(start)).
			Msg("pod: generate returned error status")
		return nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logger.Warn().Err(err).Str("request_id", requestID).Msg("pod: decode response failed")
		return nil
	}

	res := generation.Normalize(decoded)
	if res.Status == generation.StatusCompleted && len(res.Artifacts) == 0 {
		c.logger.Warn().Str("request_id", requestID).Msg("pod: completed without artifacts")
	}
	c.logger.Info().
		Str("request_id", requestID).
		Str("status", string(res.Status)).
		Int("artifacts", len(res.Artifacts)).
		Dur("duration", time.Since(start)).
		Msg("pod: generate finished")
	return &res
}

// CheckReady probes {base}/ready with a short timeout. Any failure counts as
// not ready.
func (c *Client) CheckReady(ctx context.Context) bool {
	callCtx, cancel := context.WithTimeout(ctx, c.readyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+"/ready", nil)
	if err != nil {
		return false
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ generation.PodBackend = (*Client)(nil)
