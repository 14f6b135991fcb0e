package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idFile = "session.id"

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// loadOrCreateID returns the session ID stored in dir when it was touched
// within ttl, and otherwise writes and returns a new one. A zero ttl never
// expires. When a stored session has expired its ID is returned as stale
// so the caller can drop its keys.
func loadOrCreateID(dir string, ttl time.Duration) (id, stale string, err error) {
	path := filepath.Join(dir, idFile)

	if info, statErr := os.Stat(path); statErr == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("read session id: %w", err)
		}
		prev := strings.TrimSpace(string(data))
		if _, err := uuid.Parse(prev); err == nil {
			if ttl <= 0 || time.Since(info.ModTime()) < ttl {
				return prev, "", nil
			}
			stale = prev
		}
	}

	id = NewID()
	if err := writeID(dir, id); err != nil {
		return "", "", err
	}
	return id, stale, nil
}

func writeID(dir, id string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, idFile), []byte(id+"\n"), 0o644); err != nil {
		return fmt.Errorf("write session id: %w", err)
	}
	return nil
}

// touchID extends the session's idle deadline.
func touchID(dir string) {
	now := time.Now()
	os.Chtimes(filepath.Join(dir, idFile), now, now)
}
