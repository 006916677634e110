// Package sessionstore owns the persisted widget session record: it decides
// expiry, survives restarts through a durable key-value store, and treats that
// store as best-effort.
package sessionstore

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
	"github.com/zhouzirui/bellhop-widget/internal/storage"
)

// ErrCorruptRecord is returned by Get when the stored payload cannot be decoded
// into a valid record.
var ErrCorruptRecord = errors.New("sessionstore: corrupt record")

const probeKey = "bellhop_probe"

// wireRecord keeps the millisecond-epoch layout so records written by other
// widget builds stay readable.
type wireRecord struct {
	SessionID    string `json:"sessionId"`
	CreatedAt    int64  `json:"createdAt"`
	LastActivity int64  `json:"lastActivity"`
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces NewSessionID.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Store manages SessionRecords inside a storage.Store.
type Store struct {
	kv        storage.Store
	now       func() time.Time
	newID     func() string
	available bool
}

// New wraps kv and probes it once; the probe result is cached for the life of
// the Store.
func New(ctx context.Context, kv storage.Store, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		now:   time.Now,
		newID: NewSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.available = s.probe(ctx)
	if !s.available {
		log.Warn().Str("component", "sessionstore").Msg("durable storage unavailable, sessions will not persist")
	}
	return s
}

func (s *Store) probe(ctx context.Context) bool {
	if s.kv == nil {
		return false
	}
	if err := s.kv.Set(ctx, probeKey, "test"); err != nil {
		return false
	}
	if err := s.kv.Remove(ctx, probeKey); err != nil {
		return false
	}
	return true
}

// Available reports the cached result of the startup probe.
func (s *Store) Available() bool {
	return s.available
}

// NewID generates a session id with the configured generator.
func (s *Store) NewID() string {
	return s.newID()
}

// Get reads and decodes the record stored under key. Missing keys yield
// storage.ErrNotFound, undecodable payloads ErrCorruptRecord.
func (s *Store) Get(ctx context.Context, key string) (chat.SessionRecord, error) {
	if s.kv == nil {
		return chat.SessionRecord{}, storage.ErrUnavailable
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return chat.SessionRecord{}, err
	}
	var wire wireRecord
	if err := sonic.UnmarshalString(raw, &wire); err != nil {
		return chat.SessionRecord{}, errors.Wrapf(ErrCorruptRecord, "decode %s: %v", key, err)
	}
	rec := chat.SessionRecord{
		SessionID:    wire.SessionID,
		CreatedAt:    time.UnixMilli(wire.CreatedAt),
		LastActivity: time.UnixMilli(wire.LastActivity),
	}
	if !rec.Valid() {
		return chat.SessionRecord{}, errors.Wrapf(ErrCorruptRecord, "invalid record under %s", key)
	}
	return rec, nil
}

// Lookup is Get with every failure folded into "absent".
func (s *Store) Lookup(ctx context.Context, key string) (chat.SessionRecord, bool) {
	rec, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Debug().Err(err).Str("key", key).Msg("session record treated as absent")
		}
		return chat.SessionRecord{}, false
	}
	return rec, true
}

// Put encodes and writes rec. Callers treat the write as best-effort.
func (s *Store) Put(ctx context.Context, key string, rec chat.SessionRecord) error {
	if s.kv == nil {
		return storage.ErrUnavailable
	}
	raw, err := sonic.MarshalString(wireRecord{
		SessionID:    rec.SessionID,
		CreatedAt:    rec.CreatedAt.UnixMilli(),
		LastActivity: rec.LastActivity.UnixMilli(),
	})
	if err != nil {
		return errors.Wrap(err, "encode session record")
	}
	return s.kv.Set(ctx, key, raw)
}

func (s *Store) save(ctx context.Context, key string, rec chat.SessionRecord) {
	if err := s.Put(ctx, key, rec); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("session record write dropped")
	}
}

// Active returns the stored record when it exists and has not expired.
// It never writes.
func (s *Store) Active(ctx context.Context, key string) (chat.SessionRecord, bool) {
	rec, ok := s.Lookup(ctx, key)
	if !ok || rec.Expired(s.now()) {
		return chat.SessionRecord{}, false
	}
	return rec, true
}

// GetOrCreate returns the id of the live record under key after bumping its
// activity, or persists and returns a fresh one.
func (s *Store) GetOrCreate(ctx context.Context, key string) string {
	now := s.now()
	if rec, ok := s.Lookup(ctx, key); ok && !rec.Expired(now) {
		rec.Touch(now)
		s.save(ctx, key, rec)
		log.Info().Str("session_id", rec.SessionID).Msg("restored session")
		return rec.SessionID
	}

	rec := chat.NewSessionRecord(s.newID(), now)
	s.save(ctx, key, rec)
	log.Info().Str("session_id", rec.SessionID).Msg("new session")
	return rec.SessionID
}

// Touch bumps the activity of an existing record. It never creates one.
func (s *Store) Touch(ctx context.Context, key string) {
	rec, ok := s.Lookup(ctx, key)
	if !ok {
		return
	}
	rec.Touch(s.now())
	s.save(ctx, key, rec)
}

// Clear removes the record. Removing a missing record is a no-op.
func (s *Store) Clear(ctx context.Context, key string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Remove(ctx, key); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("session record removal dropped")
	}
}
