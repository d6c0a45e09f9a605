package camera

// Preset names for common configurations
const (
	PresetDefault  = "default"
	PresetLegacy   = "legacy"
	Preset1080p    = "1080p"
	PresetPortrait = "portrait"
	PresetZoom2x   = "zoom2x"
	PresetSelfie   = "selfie"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		PresetLegacy:   LegacyConfig(),
		Preset1080p:    HD1080Config(),
		PresetPortrait: PortraitConfig(),
		PresetZoom2x:   Zoom2xConfig(),
		PresetSelfie:   SelfieConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLegacy,
		Preset1080p,
		PresetPortrait,
		PresetZoom2x,
		PresetSelfie,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// HD1080Config returns 1080p. More detail for small subjects at the cost
// of slower normalization.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// PortraitConfig asks for a 720x1280 feed, as phones mounted upright
// deliver. Frames are rotated by the normalizer.
func PortraitConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 720
	cfg.Height = 1280
	return cfg
}

// Zoom2xConfig crops to the central half of the sensor.
func Zoom2xConfig() Config {
	cfg := DefaultConfig()
	cfg.ZoomLevel = 2.0
	return cfg
}

// SelfieConfig mirrors the image for front-facing cameras.
func SelfieConfig() Config {
	cfg := DefaultConfig()
	cfg.Mirror = true
	return cfg
}
