package runpod

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

	"github.com/rs/zerolog"

	"dispatch/internal/generation"
	"dispatch/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("runpod: api key is required")

var errJobNotFound = errors.New("runpod: job not found")

const cancelTimeout = 10 * time.Second

// EndpointResolver maps a generation mode onto a serverless endpoint
// identifier. *infra.Config satisfies it.
type EndpointResolver interface {
	ResolveEndpoint(mode string) (string, bool)
}

// Options configures the serverless client.
type Options struct {
	APIKey          string
	BaseURL         string
	Endpoints       EndpointResolver
	SyncTimeout     time.Duration
	PollInterval    time.Duration
	MaxPollDuration time.Duration
	MaxPollAttempts int
	HTTPClient      *http.Client
	Logger          *infra.Logger
}

// Client submits jobs to an elastic endpoint and drives each one to a
// terminal state. Submission goes through runsync, a long single request
// that blocks for early completion; jobs still queued after it returns are
// tracked through the status endpoint until they finish or the polling
// budget runs out.
type Client struct {
	apiKey          string
	baseURL         string
	endpoints       EndpointResolver
	syncTimeout     time.Duration
	pollInterval    time.Duration
	maxPollDuration time.Duration
	maxPollAttempts int
	httpClient      *http.Client
	logger          *infra.Logger
}

type jobState struct {
	id     string
	status generation.Status
	raw    map[string]any
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Endpoints == nil {
		return nil, errors.New("runpod: endpoint resolver is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.runpod.ai/v2"
	}
	syncTimeout := opts.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = 90 * time.Second
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	maxPollDuration := opts.MaxPollDuration
	if maxPollDuration <= 0 {
		maxPollDuration = 600 * time.Second
	}
	maxPollAttempts := opts.MaxPollAttempts
	if maxPollAttempts <= 0 {
		maxPollAttempts = 120
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
		apiKey:          strings.TrimSpace(opts.APIKey),
		baseURL:         baseURL,
		endpoints:       opts.Endpoints,
		syncTimeout:     syncTimeout,
		pollInterval:    pollInterval,
		maxPollDuration: maxPollDuration,
		maxPollAttempts: maxPollAttempts,
		httpClient:      httpClient,
		logger:          logger,
	}, nil
}

// GenerateImage submits the payload to the endpoint resolved for mode and
// returns a normalized result. All failure modes collapse into a synthetic
// FAILED result; no error crosses this boundary.
func (c *Client) GenerateImage(ctx context.Context, payload map[string]any, mode generation.Mode, requestID string) *generation.Result {
	endpointID, ok := c.endpoints.ResolveEndpoint(mode.String())
	if !ok {
		c.logger.Error().
			Str("mode", mode.String()).
			Str("request_id", requestID).
			Msg("runpod: no endpoint configured for mode")
		return generation.Failed(fmt.Sprintf("no serverless endpoint configured for mode %q", mode))
	}

	state, err := c.submit(ctx, endpointID, payload)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("endpoint", endpointID).
			Str("request_id", requestID).
			Msg("runpod: submission failed")
		return generation.Failed("submission failed: " + err.Error())
	}

	if state.status.Terminal() {
		return c.finish(state, requestID)
	}
	if state.id == "" {
		return generation.Failed("submission response carried no job id")
	}

	c.logger.Info().
		Str("endpoint", endpointID).
		Str("job_id", state.id).
		Str("request_id", requestID).
		Str("status", string(state.status)).
		Msg("runpod: job queued, entering polling loop")

	return c.poll(ctx, endpointID, state.id, requestID)
}

// poll drives one job to a terminal state. The loop is bounded by wall-clock
// time and by attempt count, whichever is reached first; exhaustion fires a
// best-effort cancel before a synthetic FAILED result is returned.
func (c *Client) poll(ctx context.Context, endpointID, jobID, requestID string) *generation.Result {
	deadline := time.Now().Add(c.maxPollDuration)

	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := c.pollInterval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			c.cancelJob(endpointID, jobID, requestID)
			return generation.Failed("polling aborted: " + ctx.Err().Error())
		case <-time.After(wait):
		}

		state, err := c.jobStatus(ctx, endpointID, jobID)
		if errors.Is(err, errJobNotFound) {
			c.logger.Warn().
				Str("job_id", jobID).
				Str("request_id", requestID).
				Int("attempt", attempt).
				Msg("runpod: job vanished during polling")
			return generation.Failed("job not found")
		}
		if err != nil {
			// Transient; the attempt budget is the only limit on these.
			c.logger.Warn().Err(err).
				Str("job_id", jobID).
				Str("request_id", requestID).
				Int("attempt", attempt).
				Msg("runpod: status check failed")
			continue
		}
		if state.status.Terminal() {
			return c.finish(state, requestID)
		}
	}

	c.logger.Warn().
		Str("job_id", jobID).
		Str("request_id", requestID).
		Dur("budget", c.maxPollDuration).
		Int("max_attempts", c.maxPollAttempts).
		Msg("runpod: polling budget exhausted, requesting cancel")
	c.cancelJob(endpointID, jobID, requestID)
	return generation.Failed("polling timeout: job did not reach a terminal state")
}

// submit issues the synchronous submission call. The payload is stamped with
// a submission timestamp on a copy so the caller's map is never mutated.
func (c *Client) submit(ctx context.Context, endpointID string, payload map[string]any) (jobState, error) {
	input := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		input[k] = v
	}
	input["submit_timestamp"] = time.Now().UTC().Format(time.RFC3339)

	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return jobState{}, fmt.Errorf("runpod: encode request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.syncTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/runsync", c.baseURL, endpointID)
	raw, err := c.do(callCtx, http.MethodPost, url, body)
	if err != nil {
		return jobState{}, err
	}
	return decodeJobState(raw), nil
}

// jobStatus performs a single status check. A 404 means the job identifier
// is gone for good and maps to errJobNotFound.
func (c *Client) jobStatus(ctx context.Context, endpointID, jobID string) (jobState, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.pollInterval+cancelTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/status/%s", c.baseURL, endpointID, jobID)
	raw, err := c.do(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return jobState{}, err
	}
	return decodeJobState(raw), nil
}

// cancelJob tells the backend to stop working on a job. Fire and forget: its
// own failure is logged and never propagated, and the remote job may keep
// running after the client has already given up.
func (c *Client) cancelJob(endpointID, jobID, requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/cancel/%s", c.baseURL, endpointID, jobID)
	if _, err := c.do(ctx, http.MethodPost, url, nil); err != nil {
		c.logger.Warn().Err(err).
			Str("job_id", jobID).
			Str("request_id", requestID).
			Msg("runpod: cancel request failed")
		return
	}
	c.logger.Info().
		Str("job_id", jobID).
		Str("request_id", requestID).
		Msg("runpod: cancel requested")
}

func (c *Client) finish(state jobState, requestID string) *generation.Result {
	res := generation.Normalize(state.raw)
	if res.Status == generation.StatusCompleted && len(res.Artifacts) == 0 {
		c.logger.Warn().
			Str("job_id", state.id).
			Str("request_id", requestID).
			Msg("runpod: completed without artifacts")
	}
	c.logger.Info().
		Str("job_id", state.id).
		Str("request_id", requestID).
		Str("status", string(res.Status)).
		Str("raw_status", res.RawStatus).
		Int("artifacts", len(res.Artifacts)).
		Msg("runpod: job finished")
	return &res
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("runpod: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runpod: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("runpod: read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errJobNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("runpod: status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(raw)), 512))
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("runpod: decode response: %w", err)
	}
	return decoded, nil
}

func decodeJobState(raw map[string]any) jobState {
	state := jobState{raw: raw}
	if id, ok := raw["id"].(string); ok {
		state.id = id
	}
	if status, ok := raw["status"].(string); ok {
		state.status = generation.Status(strings.ToUpper(status))
	}
	return state
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ generation.ServerlessBackend = (*Client)(nil)
