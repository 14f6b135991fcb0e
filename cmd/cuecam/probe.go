package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-cuecam/internal/log"
	"github.com/teslashibe/go-cuecam/pkg/camera"
)

var (
	probeFacing  string
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Negotiate a camera once and report the tier that succeeded",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		facingName := cfg.Camera.Facing
		if probeFacing != "" {
			facingName = probeFacing
		}
		facing, err := camera.ParseFacing(facingName)
		if err != nil {
			return err
		}

		dev, err := newDevice(cfg.Camera, log.L())
		if err != nil {
			return err
		}
		neg := camera.NewNegotiator(dev, camera.WithLogger(log.L()))

		ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
		defer cancel()

		stream, err := neg.Acquire(ctx, facing)
		if err != nil {
			return err
		}
		defer neg.Release()

		frame, err := stream.Next(ctx)
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		_, tier, _ := neg.Active()
		fmt.Fprintf(cmd.OutOrStdout(), "facing=%s tier=%s frame=%dx%d jpeg=%dB\n",
			facing, tier, frame.Width, frame.Height, len(frame.JPEG))
		return nil
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeFacing, "facing", "", "facing preference: user or environment")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 10*time.Second, "give up after this long")
}
