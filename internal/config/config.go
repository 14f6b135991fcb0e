// Package config loads cuecam configuration from YAML with env overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full cuecam configuration.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Camera      CameraConfig      `yaml:"camera"`
	Model       ModelConfig       `yaml:"model"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Audio       AudioConfig       `yaml:"audio"`
	Session     SessionConfig     `yaml:"session"`
	Web         WebConfig         `yaml:"web"`
}

// CameraConfig selects capture devices and resolution.
type CameraConfig struct {
	// Facing is the initial preference: "user" or "environment".
	Facing string `yaml:"facing"`

	// Preset names a capture preset ("default", "vga", "720p").
	Preset string `yaml:"preset"`

	// Devices maps a facing name to a capture device index.
	Devices map[string]int `yaml:"devices"`

	// DefaultDevice is opened when no facing constraint applies.
	DefaultDevice int `yaml:"default_device"`
}

// ModelConfig points at the exported classifier.
type ModelConfig struct {
	Path         string `yaml:"path"`     // ONNX weights
	Metadata     string `yaml:"metadata"` // model.json with class labels
	InputSize    int    `yaml:"input_size"`
	ApplySoftmax bool   `yaml:"apply_softmax"`
}

// RecognitionConfig tunes the confidence gate.
// These fields are hot-reloadable.
type RecognitionConfig struct {
	Threshold            float64 `yaml:"threshold"`
	ResetOnLowConfidence bool    `yaml:"reset_on_low_confidence"`
}

// AudioConfig locates cue media and the playback command.
type AudioConfig struct {
	MediaDir  string   `yaml:"media_dir"`
	Extension string   `yaml:"extension"`
	Command   []string `yaml:"command"`
}

// SessionConfig controls the rotation store lifetime.
type SessionConfig struct {
	Dir      string        `yaml:"dir"`
	TTL      time.Duration `yaml:"ttl"`
	InMemory bool          `yaml:"in_memory"`
}

// WebConfig configures the HTTPS control surface.
type WebConfig struct {
	Addr      string `yaml:"addr"`
	CertFile  string `yaml:"cert_file"`
	KeyFile   string `yaml:"key_file"`
	StaticDir string `yaml:"static_dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
		Camera: CameraConfig{
			Facing:        "environment",
			Preset:        "default",
			Devices:       map[string]int{"user": 0, "environment": 1},
			DefaultDevice: 0,
		},
		Model: ModelConfig{
			Path:      "model/model.onnx",
			Metadata:  "model/model.json",
			InputSize: 224,
		},
		Recognition: RecognitionConfig{
			Threshold: 0.85,
		},
		Audio: AudioConfig{
			MediaDir:  "media",
			Extension: ".mp3",
		},
		Session: SessionConfig{
			Dir: ".cuecam/session",
			TTL: 12 * time.Hour,
		},
		Web: WebConfig{
			Addr: ":4443",
		},
	}
}

// Load reads a YAML file on top of Default and applies env overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	cfg.ApplyEnv()

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("validation failed: %v", errs)
	}
	return cfg, nil
}

// Validate checks value ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Camera.Facing != "user" && c.Camera.Facing != "environment" {
		errors = append(errors, "camera.facing must be user or environment")
	}
	if c.Recognition.Threshold <= 0 || c.Recognition.Threshold > 1 {
		errors = append(errors, "recognition.threshold must be in (0, 1]")
	}
	if c.Audio.MediaDir == "" {
		errors = append(errors, "audio.media_dir is required")
	}
	if c.Audio.Extension == "" || c.Audio.Extension[0] != '.' {
		errors = append(errors, "audio.extension must start with a dot")
	}
	if c.Model.InputSize < 0 {
		errors = append(errors, "model.input_size must not be negative")
	}
	if !c.Session.InMemory && c.Session.Dir == "" {
		errors = append(errors, "session.dir is required unless session.in_memory is set")
	}
	if c.Session.TTL < 0 {
		errors = append(errors, "session.ttl must not be negative")
	}
	if (c.Web.CertFile == "") != (c.Web.KeyFile == "") {
		errors = append(errors, "web.cert_file and web.key_file must be set together")
	}

	return errors
}
