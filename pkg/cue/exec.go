package cue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultCommand plays a file through GStreamer's playbin.
var DefaultCommand = []string{"gst-launch-1.0", "-q", "playbin", "uri={uri}"}

// DefaultExtensions are the formats ExecPlayer accepts.
var DefaultExtensions = []string{".mp3", ".wav", ".ogg", ".m4a"}

// DefaultStartupWindow is how long Start watches a new player process.
const DefaultStartupWindow = 250 * time.Millisecond

// ExecPlayer plays media by running an external command per cue.
// Arguments may contain {path} (absolute file path) and {uri} (file:// URI).
//
// A player that exits with an error within the startup window is treated
// as unable to decode the file, and Start reports ErrMediaMissing so the
// next candidate is tried.
type ExecPlayer struct {
	command    []string
	extensions []string
	startup    time.Duration
	logger     *slog.Logger
}

// NewExecPlayer creates a player. A nil command uses DefaultCommand.
func NewExecPlayer(command []string, logger *slog.Logger) *ExecPlayer {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecPlayer{
		command:    command,
		extensions: DefaultExtensions,
		startup:    DefaultStartupWindow,
		logger:     logger.With("component", "cue.exec"),
	}
}

// SetStartupWindow changes how long Start waits for an early decode failure.
// Zero disables the check.
func (p *ExecPlayer) SetStartupWindow(d time.Duration) {
	p.startup = d
}

// Start implements Player.
func (p *ExecPlayer) Start(ctx context.Context, path string) (Playback, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMediaMissing, path)
	}
	if !p.supported(path) {
		return nil, fmt.Errorf("%w: unsupported format %s", ErrMediaMissing, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaMissing, err)
	}

	args := expand(p.command, abs)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: player %s not installed", ErrPlaybackRejected, args[0])
		}
		return nil, fmt.Errorf("%w: %v", ErrPlaybackRejected, err)
	}

	p.logger.Debug("player started", "path", abs, "pid", cmd.Process.Pid)

	pb := &execPlayback{cmd: cmd, done: make(chan struct{})}
	go func() {
		pb.err = cmd.Wait()
		close(pb.done)
	}()

	if p.startup <= 0 {
		return pb, nil
	}
	timer := time.NewTimer(p.startup)
	defer timer.Stop()
	select {
	case <-pb.done:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if pb.err != nil {
			return nil, fmt.Errorf("%w: player could not decode %s: %v", ErrMediaMissing, abs, pb.err)
		}
	case <-timer.C:
	}
	return pb, nil
}

func (p *ExecPlayer) supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range p.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func expand(template []string, abs string) []string {
	uri := "file://" + filepath.ToSlash(abs)
	r := strings.NewReplacer("{path}", abs, "{uri}", uri)
	out := make([]string, len(template))
	for i, a := range template {
		out[i] = r.Replace(a)
	}
	return out
}

type execPlayback struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error

	stopOnce sync.Once
}

func (pb *execPlayback) Wait() error {
	<-pb.done
	return pb.err
}

func (pb *execPlayback) Stop() error {
	var err error
	pb.stopOnce.Do(func() {
		select {
		case <-pb.done:
		default:
			err = pb.cmd.Process.Kill()
		}
	})
	return err
}

var _ Player = (*ExecPlayer)(nil)
