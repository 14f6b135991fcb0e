package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-cuecam/internal/app"
	"github.com/teslashibe/go-cuecam/internal/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run recognition and the control server",
	Long: `Start the camera, classify frames continuously and play a cue when a
new class is recognized. The control API, the media directory and the
event feed are served on web.addr (HTTPS when a certificate is set).

Editing the config file while running updates the recognition threshold
and low-confidence policy without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dev, err := newDevice(cfg.Camera, log.L())
		if err != nil {
			return err
		}
		clf, err := loadClassifier(cfg.Model, log.L())
		if err != nil {
			return fmt.Errorf("classifier init: %w", err)
		}

		opts := []app.Option{app.WithDevice(dev), app.WithClassifier(clf)}
		if configPath != "" {
			opts = append(opts, app.WithConfigPath(configPath))
		}

		a, err := app.New(cfg, log.L(), opts...)
		if err != nil {
			clf.Close()
			return err
		}
		if err := a.Init(); err != nil {
			a.Shutdown()
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		runErr := a.Run(ctx)
		if err := a.Shutdown(); err != nil {
			log.L().Warn("shutdown", "error", err)
		}
		return runErr
	},
}
