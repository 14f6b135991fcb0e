// Package session provides key/value storage that lives exactly as long as
// one browsing session: values survive a restart of the process, but a new
// session starts empty.
package session

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("session: key not found")

// Store is a session-scoped string key/value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)

	// Set stores value under key for the rest of the session.
	Set(key, value string) error

	// Reset ends the current session and starts an empty one.
	Reset() error

	// ID identifies the current session.
	ID() string

	// Close releases the store.
	Close() error
}

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu     sync.RWMutex
	id     string
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{id: NewID(), values: make(map[string]string)}
}

// Get implements Store.
func (m *Memory) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Reset implements Store.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = NewID()
	m.values = make(map[string]string)
	return nil
}

// ID implements Store.
func (m *Memory) ID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}

var _ Store = (*Memory)(nil)
