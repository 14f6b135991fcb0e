// Package cue plays per-class audio cues, one at a time, rotating through
// numbered media files for each class.
package cue

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrMediaMissing is returned by Player.Start when the media resource
	// does not exist or its format is unsupported. The arbitrator falls
	// back to the next candidate.
	ErrMediaMissing = errors.New("cue: media missing or unsupported")

	// ErrPlaybackRejected is returned by Player.Start when the output
	// refuses to play at all. The arbitrator gives up without falling back
	// or advancing rotation.
	ErrPlaybackRejected = errors.New("cue: playback rejected")

	// ErrInvalidLabel is returned for labels that cannot name a media file.
	ErrInvalidLabel = errors.New("cue: invalid label")
)

// Player starts playback of a named media resource.
type Player interface {
	// Start begins playing path. It returns once playback has started.
	Start(ctx context.Context, path string) (Playback, error)
}

// Playback is one started playback.
type Playback interface {
	// Wait blocks until playback ends. A nil error means the media played
	// to its end.
	Wait() error

	// Stop aborts playback.
	Stop() error
}

// ValidLabel reports whether label can name a file inside the media
// directory. Labels come from the model metadata, so path separators and
// ".." are rejected.
func ValidLabel(label string) error {
	switch {
	case label == "":
		return fmt.Errorf("%w: empty", ErrInvalidLabel)
	case strings.ContainsAny(label, `/\`) || strings.Contains(label, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

// MediaPath returns the media file for label. An index of 0 or less names
// the index-less fallback file.
func MediaPath(dir, label string, index int, ext string) string {
	name := label
	if index > 0 {
		name += strconv.Itoa(index)
	}
	return filepath.Join(dir, name+ext)
}
