package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables that override file values.
const (
	EnvLogLevel  = "CUECAM_LOG_LEVEL"
	EnvFacing    = "CUECAM_FACING"
	EnvMediaDir  = "CUECAM_MEDIA_DIR"
	EnvModelPath = "CUECAM_MODEL_PATH"
	EnvThreshold = "CUECAM_THRESHOLD"
	EnvSession   = "CUECAM_SESSION_DIR"
	EnvTTL       = "CUECAM_SESSION_TTL"
	EnvAddr      = "CUECAM_ADDR"
	EnvCertFile  = "CUECAM_CERT_FILE"
	EnvKeyFile   = "CUECAM_KEY_FILE"
)

// ApplyEnv overrides fields from CUECAM_* environment variables.
// Unparseable numeric values are ignored.
func (c *Config) ApplyEnv() {
	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.Camera.Facing, EnvFacing)
	setString(&c.Audio.MediaDir, EnvMediaDir)
	setString(&c.Model.Path, EnvModelPath)
	setString(&c.Session.Dir, EnvSession)
	setString(&c.Web.Addr, EnvAddr)
	setString(&c.Web.CertFile, EnvCertFile)
	setString(&c.Web.KeyFile, EnvKeyFile)

	if v := os.Getenv(EnvThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Recognition.Threshold = f
		}
	}
	if v := os.Getenv(EnvTTL); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Session.TTL = d
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
