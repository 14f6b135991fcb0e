// Package camera acquires a live frame source from a capture device,
// degrading through constraint tiers until one is accepted.
package camera

// Config holds capture parameters applied to whichever device is opened.
type Config struct {
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100
}

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetVGA     = "vga"
	Preset720p    = "720p"
)

// DefaultConfig returns the 320x240 capture used for classification.
// The classifier downsamples anyway, so small frames keep the loop fast.
func DefaultConfig() Config {
	return Config{
		Width:     320,
		Height:    240,
		Framerate: 30,
		Quality:   85,
	}
}

// VGAConfig returns 640x480.
func VGAConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// HD720Config returns 1280x720 at a lower framerate.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	cfg.Framerate = 15
	return cfg
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	var cfg Config
	switch name {
	case PresetDefault, "":
		cfg = DefaultConfig()
	case PresetVGA:
		cfg = VGAConfig()
	case Preset720p:
		cfg = HD720Config()
	default:
		return nil
	}
	return &cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 160 || c.Width > 3840 {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > 2160 {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}
