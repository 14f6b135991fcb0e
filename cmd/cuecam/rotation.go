package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-cuecam/internal/config"
	"github.com/teslashibe/go-cuecam/internal/log"
	"github.com/teslashibe/go-cuecam/pkg/cue"
	"github.com/teslashibe/go-cuecam/pkg/session"
)

var rotationCmd = &cobra.Command{
	Use:   "rotation",
	Short: "Inspect or reset cue rotation for the current session",
	Long: `Rotation tracks which numbered media file plays next for each label.
It lives in the session store, which a running server holds open; stop
"cuecam run" first or use the /api/rotation endpoints instead.`,
}

var rotationGetCmd = &cobra.Command{
	Use:   "get <label>...",
	Short: "Print the next media index for each label",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, label := range args {
			if err := cue.ValidLabel(label); err != nil {
				return err
			}
		}

		rot := cue.NewRotation(store, log.L())
		fmt.Fprintf(cmd.OutOrStdout(), "session %s\n", store.ID())
		for _, label := range args {
			idx := rot.Get(label)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", label, idx,
				cue.MediaPath(cfg.Audio.MediaDir, label, idx, cfg.Audio.Extension))
		}
		return nil
	},
}

var rotationResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a new session so every label rotates from 1",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "new session %s\n", store.ID())
		return nil
	},
}

func openStore(cfg config.Config) (session.Store, error) {
	return session.OpenBadger(session.BadgerOptions{
		Dir:      cfg.Session.Dir,
		InMemory: cfg.Session.InMemory,
		TTL:      cfg.Session.TTL,
		Logger:   log.L(),
	})
}

func init() {
	rotationCmd.AddCommand(rotationGetCmd, rotationResetCmd)
}
