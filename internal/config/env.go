package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Environment variables that override the file.
const (
	EnvAPI                  = "POINTDEX_API"
	EnvAPIKey               = "POINTDEX_API_KEY"
	EnvConfThreshold        = "POINTDEX_CONF_THR"
	EnvStableN              = "POINTDEX_STABLE_N"
	EnvImageQuality         = "POINTDEX_IMAGE_QUALITY"
	EnvReannounceCooldownMS = "POINTDEX_REANNOUNCE_COOLDOWN_MS"
	EnvSuspensionGuardMS    = "POINTDEX_SUSPENSION_GUARD_MS"
	EnvLogLevel             = "POINTDEX_LOG_LEVEL"
	EnvCamera               = "POINTDEX_CAMERA"
	EnvListen               = "POINTDEX_LISTEN"
	EnvSpeakCommand         = "POINTDEX_SPEAK_CMD"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from the environment. Unparseable values are
// reported together.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = i
		}
	}
	millis := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			ms, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = time.Duration(ms) * time.Millisecond
		}
	}

	if v, ok := lookup(EnvAPI); ok && v != "" {
		c.Classifier.URL = NormalizeEndpoint(v)
	}
	str(EnvAPIKey, &c.Classifier.APIKey)
	float(EnvConfThreshold, &c.Pipeline.ConfidenceThreshold)
	integer(EnvStableN, &c.Pipeline.StableFrames)
	float(EnvImageQuality, &c.Pipeline.ImageQuality)
	millis(EnvReannounceCooldownMS, &c.Pipeline.ReannounceCooldown)
	millis(EnvSuspensionGuardMS, &c.Pipeline.SuspensionGuard)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvCamera, &c.Camera.Device)
	str(EnvListen, &c.Web.Listen)
	str(EnvSpeakCommand, &c.Narration.Command)

	return errors.Join(errs...)
}
