package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Serverless (RunPod-style) backend.
	RunpodAPIKey  string
	RunpodBaseURL string

	// Endpoint identifiers per generation mode.
	EndpointWizard      string
	EndpointNewPre      string
	EndpointPosterFrame string

	// Optional direct pod backend. An empty PodURL disables the pod path.
	PodURL    string
	PodAPIKey string

	PodTimeout      time.Duration
	SyncTimeout     time.Duration
	PollInterval    time.Duration
	MaxPollDuration time.Duration
	MaxPollAttempts int

	ForceServerless bool

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		RunpodAPIKey:  os.Getenv("RUNPOD_API_KEY"),
		RunpodBaseURL: getEnv("RUNPOD_BASE_URL", "https://api.runpod.ai/v2"),

		EndpointWizard:      os.Getenv("RUNPOD_ENDPOINT_WIZARD"),
		EndpointNewPre:      os.Getenv("RUNPOD_ENDPOINT_NEW_PRE"),
		EndpointPosterFrame: os.Getenv("RUNPOD_ENDPOINT_POSTER_FRAME"),

		PodURL:    os.Getenv("POD_URL"),
		PodAPIKey: os.Getenv("POD_API_KEY"),

		PodTimeout:      time.Second * time.Duration(getEnvInt("POD_TIMEOUT_SECONDS", 300)),
		SyncTimeout:     time.Second * time.Duration(getEnvInt("SYNC_TIMEOUT_SECONDS", 90)),
		PollInterval:    time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		MaxPollDuration: time.Second * time.Duration(getEnvInt("MAX_POLL_SECONDS", 600)),
		MaxPollAttempts: getEnvInt("MAX_POLL_ATTEMPTS", 120),

		ForceServerless: getEnvBool("DISPATCH_FORCE_SERVERLESS", false),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 900)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports whether the configuration can support remote calls at all.
func (c *Config) Validate() error {
	if c.RunpodAPIKey == "" {
		return fmt.Errorf("RUNPOD_API_KEY is required")
	}
	return nil
}

// ResolveEndpoint maps a generation mode onto a configured serverless endpoint
// identifier. Modes without a dedicated endpoint fall back to the wizard
// endpoint. The second return value is false when nothing is configured for
// the mode; callers must treat that as a precondition failure, not a network
// error.
func (c *Config) ResolveEndpoint(mode string) (string, bool) {
	switch mode {
	case "wizard":
		return nonEmpty(c.EndpointWizard)
	case "new_pre":
		if c.EndpointNewPre != "" {
			return c.EndpointNewPre, true
		}
		return nonEmpty(c.EndpointWizard)
	case "posterFrameRegeneration":
		if c.EndpointPosterFrame != "" {
			return c.EndpointPosterFrame, true
		}
		return nonEmpty(c.EndpointWizard)
	}
	return "", false
}

func nonEmpty(v string) (string, bool) {
	return v, v != ""
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
