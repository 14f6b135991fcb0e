package cue

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/teslashibe/go-cuecam/pkg/session"
)

const rotationKeyPrefix = "audio_index_"

// RotationKey is the session key holding label's rotation index.
func RotationKey(label string) string {
	return rotationKeyPrefix + label
}

// Rotation tracks the next media index for each label in a session store.
type Rotation struct {
	store  session.Store
	logger *slog.Logger
}

// NewRotation creates a rotation over store.
func NewRotation(store session.Store, logger *slog.Logger) *Rotation {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rotation{store: store, logger: logger.With("component", "cue.rotation")}
}

// Get returns label's index. Unseen labels and unreadable values start at 1.
func (r *Rotation) Get(label string) int {
	raw, err := r.store.Get(RotationKey(label))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			r.logger.Warn("reading rotation index failed", "label", label, "error", err)
		}
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Set stores label's index.
func (r *Rotation) Set(label string, index int) error {
	return r.store.Set(RotationKey(label), strconv.Itoa(index))
}
