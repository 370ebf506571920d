package checksum

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"rommate/internal/digestcache"
	"rommate/internal/logging"
	"rommate/internal/romfile"
)

const defaultMemoSize = 256

// DigestStore persists digests between runs. *digestcache.Cache satisfies it.
type DigestStore interface {
	Lookup(key string) (digestcache.Entry, bool)
	Store(entry digestcache.Entry) error
}

// Engine computes digests with an in-memory memo and an optional persistent store.
type Engine struct {
	memo   *lru.Cache[string, Digests]
	store  DigestStore
	logger *slog.Logger
	passes atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore attaches a persistent digest store.
func WithStore(store DigestStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds a digest engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "checksum")
	memo, err := lru.New[string, Digests](defaultMemoSize)
	if err != nil {
		panic(fmt.Sprintf("checksum memo: %v", err))
	}
	e.memo = memo
	return e
}

// Digest returns the digests of src with skip leading bytes excluded.
// Failures wrap ErrUnreadable.
func (e *Engine) Digest(src *romfile.Source, skip int64) (Digests, error) {
	key := fmt.Sprintf("%s@%d", src.Key(), skip)
	if d, ok := e.memo.Get(key); ok {
		return d, nil
	}
	if e.store != nil {
		if entry, ok := e.store.Lookup(key); ok {
			d := Digests{CRC32: entry.CRC32, MD5: entry.MD5, SHA1: entry.SHA1}
			e.memo.Add(key, d)
			return d, nil
		}
	}

	d, err := Compute(src, skip)
	if err != nil {
		return Digests{}, err
	}
	e.passes.Add(1)
	e.memo.Add(key, d)

	if e.store != nil {
		entry := digestcache.Entry{Key: key, Path: src.Path(), Skip: skip, CRC32: d.CRC32, MD5: d.MD5, SHA1: d.SHA1}
		if err := e.store.Store(entry); err != nil {
			logging.WarnWithContext(e.logger, "digest cache write failed", "digest_cache_write_failed",
				logging.String(logging.FieldPath, src.Path()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "digests will be recomputed next run"))
		}
	}
	return d, nil
}

// Passes reports how many payloads were actually hashed.
func (e *Engine) Passes() int64 {
	return e.passes.Load()
}
