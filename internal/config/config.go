// Package config loads pointdex configuration: a YAML file, then
// environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-pointdex/pkg/camera"
	"github.com/teslashibe/go-pointdex/pkg/loop"
	"github.com/teslashibe/go-pointdex/pkg/stability"
)

// Default values.
const (
	DefaultEndpoint    = "http://localhost:5000/api/predict"
	DefaultPredictPath = "/api/predict"
	DefaultListen      = ":8080"
	DefaultLabelsPath  = "class_indices.json"
	DefaultFlavorPath  = "flavor_text.json"
)

// Config is the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Camera     camera.Config    `yaml:"camera"`
	Assets     AssetsConfig     `yaml:"assets"`
	Narration  NarrationConfig  `yaml:"narration"`
	Web        WebConfig        `yaml:"web"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ClassifierConfig describes the remote classifier.
type ClassifierConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`

	// Timeout bounds each request; it must be positive so a hung request
	// cannot hold the dispatcher busy forever.
	Timeout time.Duration `yaml:"timeout"`
	MaxRPS  int           `yaml:"max_rps"` // 0 = unlimited
}

// PipelineConfig holds the sampling and gating tunables.
type PipelineConfig struct {
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	StableFrames        int           `yaml:"stable_frames"`
	ImageQuality        float64       `yaml:"image_quality"`
	ReannounceCooldown  time.Duration `yaml:"reannounce_cooldown"`
	SuspensionGuard     time.Duration `yaml:"suspension_guard"`
	TickInterval        time.Duration `yaml:"tick_interval"`
	SupersedeAfter      time.Duration `yaml:"supersede_after"`

	// ResetOnResume zeroes the gate after every suspension, so the next
	// result starts a fresh run even when it repeats the last label.
	ResetOnResume bool `yaml:"reset_on_resume"`
}

// AssetsConfig locates the label table and flavor texts.
type AssetsConfig struct {
	Labels string `yaml:"labels"`
	Flavor string `yaml:"flavor"`
}

// NarrationConfig selects how flavor text is spoken. An empty command
// only logs the text.
type NarrationConfig struct {
	Command string        `yaml:"command"` // e.g. "espeak-ng --stdin"
	Timeout time.Duration `yaml:"timeout"`
}

// WebConfig controls the dashboard.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Metrics bool   `yaml:"metrics"`
}

// Default returns the configuration with every design default.
func Default() *Config {
	lc := loop.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Classifier: ClassifierConfig{
			URL:     DefaultEndpoint,
			Timeout: 15 * time.Second,
		},
		Pipeline: PipelineConfig{
			ConfidenceThreshold: lc.Stability.ConfidenceThreshold,
			StableFrames:        lc.Stability.StableN,
			ImageQuality:        lc.ImageQuality,
			ReannounceCooldown:  lc.Stability.ReannounceCooldown,
			SuspensionGuard:     lc.SuspensionGuard,
			TickInterval:        lc.TickInterval,
			SupersedeAfter:      lc.SupersedeAfter,
			ResetOnResume:       lc.ResetOnResume,
		},
		Camera: camera.DefaultConfig(),
		Assets: AssetsConfig{
			Labels: DefaultLabelsPath,
			Flavor: DefaultFlavorPath,
		},
		Narration: NarrationConfig{
			Timeout: 30 * time.Second,
		},
		Web: WebConfig{
			Enabled: true,
			Listen:  DefaultListen,
			Metrics: true,
		},
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults,
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()

		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates it.
// Environment overrides are not applied.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", c.Log.Format))
	}

	if c.Classifier.URL == "" {
		errs = append(errs, errors.New("classifier.url is required"))
	} else if u, err := url.Parse(c.Classifier.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("classifier.url %q must be an absolute http(s) URL", c.Classifier.URL))
	}
	if c.Classifier.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("classifier.timeout must be positive, got %s", c.Classifier.Timeout))
	}
	if c.Classifier.MaxRPS < 0 {
		errs = append(errs, fmt.Errorf("classifier.max_rps must not be negative, got %d", c.Classifier.MaxRPS))
	}

	if err := c.LoopConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}

	for _, msg := range c.Camera.Validate() {
		errs = append(errs, fmt.Errorf("camera: %s", msg))
	}

	if c.Narration.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("narration.timeout must be positive, got %s", c.Narration.Timeout))
	}

	if c.Web.Enabled && c.Web.Listen == "" {
		errs = append(errs, errors.New("web.listen is required when web.enabled is set"))
	}

	return errors.Join(errs...)
}

// LoopConfig converts the pipeline section into loop settings.
func (c *Config) LoopConfig() loop.Config {
	p := c.Pipeline
	return loop.Config{
		Stability: stability.Config{
			ConfidenceThreshold: p.ConfidenceThreshold,
			StableN:             p.StableFrames,
			ReannounceCooldown:  p.ReannounceCooldown,
		},
		ImageQuality:    p.ImageQuality,
		TickInterval:    p.TickInterval,
		SuspensionGuard: p.SuspensionGuard,
		SupersedeAfter:  p.SupersedeAfter,
		ResetOnResume:   p.ResetOnResume,
	}
}

// NormalizeEndpoint turns a bare base URL into the predict endpoint.
// "http://host:5000" becomes "http://host:5000/api/predict"; a URL that
// already has a path is kept.
func NormalizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPredictPath
	}
	return u.String()
}
