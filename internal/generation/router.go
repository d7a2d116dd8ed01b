package generation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dispatch/internal/infra"
)

// PodBackend is the direct, always-on worker. A nil result means the attempt
// failed; pod failures never surface as errors so the router can treat "no
// result" uniformly as "try the next backend".
type PodBackend interface {
	GenerateImage(ctx context.Context, payload map[string]any, requestID string) *Result
	CheckReady(ctx context.Context) bool
}

// ServerlessBackend is the elastic worker pool. It always returns a result,
// synthesizing a FAILED one for submission and polling failures.
type ServerlessBackend interface {
	GenerateImage(ctx context.Context, payload map[string]any, mode Mode, requestID string) *Result
}

// Options configures the Router.
type Options struct {
	Pod             PodBackend // optional, nil disables the pod path
	Serverless      ServerlessBackend
	ForceServerless bool
	Logger          *infra.Logger
}

// Router is the single entry point for job submission. It tries the pod
// first when one is configured, then falls back to the serverless backend
// exactly once. Backends are never raced and never retried against the same
// target twice; the serverless outcome is final.
type Router struct {
	pod             PodBackend
	serverless      ServerlessBackend
	forceServerless bool
	logger          infra.Logger
}

// NewRouter wires the two backends into a router.
func NewRouter(opts Options) (*Router, error) {
	if opts.Serverless == nil {
		return nil, errors.New("generation: serverless backend is required")
	}
	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Router{
		pod:             opts.Pod,
		serverless:      opts.Serverless,
		forceServerless: opts.ForceServerless,
		logger:          logger,
	}, nil
}

// Generate runs one job to completion and returns the normalized result.
// Callers only ever see COMPLETED or FAILED.
func (r *Router) Generate(ctx context.Context, req Request) *Result {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if r.pod != nil && !r.forceServerless && !req.ServerlessOnly {
		if res := r.pod.GenerateImage(ctx, req.Payload, requestID); res != nil && res.Status == StatusCompleted {
			return res
		}
		r.logger.Warn().
			Str("request_id", requestID).
			Str("mode", req.Mode.String()).
			Msg("pod attempt failed, falling back to serverless")
	}

	return r.serverless.GenerateImage(ctx, req.Payload, req.Mode, requestID)
}
