package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-pointdex/internal/httpc"
	"github.com/teslashibe/go-pointdex/pkg/frame"
)

const providerClient = "client"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client is the HTTP classifier. It POSTs {"image": <data URL>} and expects
// {"name": ..., "conf": ..., "stable": ...} back. "label" and "confidence"
// are accepted as aliases.
//
// Client never retries: a failed frame is dropped and the next tick samples
// a fresh one.
type Client struct {
	endpoint string
	apiKey   string
	config   *Config
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a new classifier client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := cfg.HTTPClient
	if h == nil {
		h = httpc.NewLimitedClient(cfg.Timeout, cfg.MaxRPS)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		config:   cfg,
		http:     h,
		logger:   logger.With("component", "inference.client"),
	}, nil
}

// Endpoint returns the classify URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Classify sends img to the classifier.
func (c *Client) Classify(ctx context.Context, img *frame.NormalizedImage) (*Result, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, WrapError(providerClient, ErrNoImage)
	}
	start := time.Now()
	requestID := uuid.NewString()

	body, err := json.Marshal(predictRequest{Image: EncodeDataURL(img)})
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, WrapError(providerClient, ErrCancelled)
		}
		return nil, &TransportError{Provider: providerClient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	result, err := decodePrediction(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, WrapError(providerClient, ErrCancelled)
		}
		return nil, err
	}
	result.RequestID = requestID
	result.Latency = time.Since(start)

	c.logger.Debug("classified",
		"request_id", requestID,
		"label", result.Label,
		"confidence", result.Confidence,
		"stable", result.ServerStable,
		"latency_ms", result.Latency.Milliseconds(),
	)
	return result, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// decodePrediction parses and validates a classifier response body.
func decodePrediction(r io.Reader) (*Result, error) {
	var p predictResponse
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, &MalformedResponseError{Provider: providerClient, Reason: "decode", Err: err}
	}

	conf := p.Conf
	if conf == nil {
		conf = p.Confidence
	}
	if conf == nil {
		return nil, &MalformedResponseError{Provider: providerClient, Reason: "missing confidence"}
	}
	if *conf < 0 || *conf > 1 {
		return nil, &MalformedResponseError{
			Provider: providerClient,
			Reason:   fmt.Sprintf("confidence %v outside [0,1]", *conf),
		}
	}

	label := p.Name
	if label == "" {
		label = p.Label
	}

	return &Result{
		Label:        label,
		Confidence:   *conf,
		ServerStable: p.Stable,
	}, nil
}

// parseError reads an error response.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	var errResp struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerClient,
	}
}

// Wire types
type predictRequest struct {
	Image string `json:"image"`
}

type predictResponse struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Conf       *float64 `json:"conf"`
	Confidence *float64 `json:"confidence"`
	Stable     bool     `json:"stable"`
}

// Verify Client implements Classifier at compile time.
var _ Classifier = (*Client)(nil)
