// Package storage provides the durable key-value space that holds the local
// login session and UI preferences.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// KV is a flat string key-value store. Writes are last-write-wins and there
// are no transactions. Removing a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string // file and sqlite backends

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open returns the configured backend and a closer for its resources.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (KV, io.Closer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case "", BackendFile:
		st, err := NewFileStore(opts.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return st, nopCloser{}, nil
	case BackendSQLite:
		st, err := NewSQLiteStore(opts.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("migrate sqlite store: %w", err)
		}
		return st, st, nil
	case BackendRedis:
		st, err := NewRedisStore(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
