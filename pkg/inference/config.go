package inference

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds classifier client configuration.
type Config struct {
	// Connection
	Endpoint string // Full classify URL, e.g. https://host/api/predict
	APIKey   string // Optional bearer token

	// Timeouts
	Timeout time.Duration

	// MaxRPS caps request starts per second. 0 = unlimited.
	MaxRPS int

	// HTTPClient overrides the client built from Timeout/MaxRPS.
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithEndpoint sets the classify URL.
func WithEndpoint(url string) Option {
	return func(c *Config) { c.Endpoint = url }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithMaxRPS caps the request rate.
func WithMaxRPS(n int) Option {
	return func(c *Config) { c.MaxRPS = n }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Config) { c.HTTPClient = h }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:5000/api/predict",
		Timeout:  15 * time.Second,
		Logger:   slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}
	return nil
}
