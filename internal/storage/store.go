// Package storage provides the durable key-value stores that back persisted
// widget sessions.
package storage

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnavailable is returned by stores that cannot be used at all.
	ErrUnavailable = errors.New("storage: unavailable")
)

// Store is a string key-value store. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Kind selects a Store implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
	KindNone   Kind = "none"
)

// Options configures Open.
type Options struct {
	Kind       Kind
	SQLitePath string
	RedisAddr  string
	RedisDB    int
}

// Open builds the store described by opts. An empty Kind means memory.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch Kind(strings.ToLower(string(opts.Kind))) {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	case KindRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB)
	case KindNone:
		return Unavailable{}, nil
	default:
		return nil, errors.Errorf("storage: unknown kind %q", opts.Kind)
	}
}

// Unavailable is a Store whose every operation fails, modelling a disabled
// or quota-exhausted durable store.
type Unavailable struct{}

func (Unavailable) Get(context.Context, string) (string, error) { return "", ErrUnavailable }
func (Unavailable) Set(context.Context, string, string) error    { return ErrUnavailable }
func (Unavailable) Remove(context.Context, string) error         { return ErrUnavailable }
func (Unavailable) Close() error                                 { return nil }
