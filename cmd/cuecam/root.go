package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-cuecam/internal/config"
	"github.com/teslashibe/go-cuecam/internal/log"
)

var (
	configPath string
	logLevel   string
	inMemory   bool
)

var rootCmd = &cobra.Command{
	Use:           "cuecam",
	Short:         "Live camera recognition with audio cues",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "keep the session store in memory")

	rootCmd.AddCommand(runCmd, probeCmd, rotationCmd)
}

// loadConfig reads the config file and applies flag overrides, then
// initializes logging from the result.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if inMemory {
		cfg.Session.InMemory = true
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return cfg, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	log.Init(cfg.LogLevel)
	return cfg, nil
}
