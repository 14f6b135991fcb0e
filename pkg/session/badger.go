package session

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir holds the database and the session ID file.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// TTL bounds how long a session survives without writes. It applies
	// to the session as a whole: every key lives until the session does.
	// Zero keeps the session until Reset.
	TTL time.Duration

	// Logger receives badger warnings and errors.
	Logger *slog.Logger
}

// Badger is a Store backed by BadgerDB v4. Keys are namespaced by session
// ID, so an expired or reset session reads as empty. Keys of an expired
// session are dropped when the store is reopened.
type Badger struct {
	db   *badger.DB
	opts BadgerOptions

	mu sync.RWMutex
	id string
}

// OpenBadger opens the store and resumes the current session if one is
// still live.
func OpenBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("session: BadgerOptions.Dir is required for on-disk mode")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	dbOpts := badger.DefaultOptions(filepath.Join(opts.Dir, "db"))
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(slogAdapter{opts.Logger.With("component", "session.badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	id := NewID()
	if !opts.InMemory {
		var stale string
		id, stale, err = loadOrCreateID(opts.Dir, opts.TTL)
		if err != nil {
			db.Close()
			return nil, err
		}
		if stale != "" {
			if err := db.DropPrefix(prefix(stale)); err != nil {
				opts.Logger.Warn("drop expired session", "session", stale, "error", err)
			}
		}
	}

	return &Badger{db: db, opts: opts, id: id}, nil
}

func prefix(id string) []byte {
	return []byte("session/" + id + "/")
}

func (b *Badger) key(k string) []byte {
	return append(prefix(b.id), k...)
}

// Get implements Store.
func (b *Badger) Get(key string) (string, error) {
	b.mu.RLock()
	k := b.key(key)
	b.mu.RUnlock()

	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// Set implements Store.
func (b *Badger) Set(key, value string) error {
	b.mu.RLock()
	k := b.key(key)
	b.mu.RUnlock()

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(value))
	})
	if err != nil {
		return err
	}
	if !b.opts.InMemory {
		touchID(b.opts.Dir)
	}
	return nil
}

// Reset implements Store. The previous session's keys are dropped.
func (b *Badger) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.db.DropPrefix(prefix(b.id)); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}

	b.id = NewID()
	if !b.opts.InMemory {
		return writeID(b.opts.Dir, b.id)
	}
	return nil
}

// ID implements Store.
func (b *Badger) ID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

// Close implements Store.
func (b *Badger) Close() error {
	return b.db.Close()
}

// slogAdapter routes badger logs to slog, suppressing debug and info.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Errorf(f string, v ...interface{})   { a.l.Error(fmt.Sprintf(f, v...)) }
func (a slogAdapter) Warningf(f string, v ...interface{}) { a.l.Warn(fmt.Sprintf(f, v...)) }
func (slogAdapter) Infof(string, ...interface{})          {}
func (slogAdapter) Debugf(string, ...interface{})         {}

var _ Store = (*Badger)(nil)
