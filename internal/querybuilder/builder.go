package querybuilder

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/gqlgate/internal/compiler"
	"github.com/roach88/gqlgate/internal/version"
)

type compileFunc func(v version.Version, template, operation string) (*compiler.Result, error)

// Builder compiles version-gated templates for one server identity.
//
// Thread Safety:
//
//	Builder is safe for concurrent use. Concurrent Build calls for the same
//	key share a single compilation.
type Builder struct {
	identity string
	cache    Cache
	logger   *slog.Logger
	observer Observer
	compile  compileFunc
	flight   singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	compiles  atomic.Int64
	fallbacks atomic.Int64
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithCache replaces the default in-memory cache.
func WithCache(c Cache) Option {
	return func(b *Builder) {
		if c != nil {
			b.cache = c
		}
	}
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(b *Builder) {
		if o != nil {
			b.observer = o
		}
	}
}

// New creates a Builder. identity labels cache keys and log lines; it is
// never parsed.
func New(identity string, opts ...Option) *Builder {
	b := &Builder{
		identity: identity,
		cache:    NewMapCache(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: noopObserver{},
		compile:  compiler.Compile,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Identity returns the server identity the builder was created for.
func (b *Builder) Identity() string {
	return b.identity
}

// Build returns template compiled for targetVersion. Results are cached per
// (identity, operationName, normalized version); a cached result is
// returned without parsing. An unparseable targetVersion is treated as
// version.Baseline.
func (b *Builder) Build(targetVersion, template, operationName string) (string, error) {
	v, key := b.resolve(targetVersion, operationName)

	if q, ok := b.cache.Get(key); ok {
		b.hits.Add(1)
		b.observer.CacheHit(b.identity, operationName)
		return q, nil
	}
	b.misses.Add(1)
	b.observer.CacheMiss(b.identity, operationName)

	out, err, _ := b.flight.Do(key.String(), func() (any, error) {
		// a racing caller may have filled the cache since our lookup
		if q, ok := b.cache.Get(key); ok {
			return q, nil
		}

		start := time.Now()
		res, err := b.compile(v, template, operationName)
		if err != nil {
			return "", err
		}
		elapsed := time.Since(start)

		b.compiles.Add(1)
		b.cache.Put(key, res.Query)
		b.observer.Compiled(b.identity, operationName, elapsed)
		b.logger.Debug("compiled query",
			"identity", b.identity,
			"operation", operationName,
			"version", key.Version,
			"removed", len(res.Removed),
			"elapsed", elapsed)
		return res.Query, nil
	})
	if err != nil {
		code := "unknown"
		var terr *compiler.TemplateError
		if errors.As(err, &terr) {
			code = terr.Code
		}
		b.observer.CompileFailed(b.identity, operationName, code)
		b.logger.Error("template compilation failed",
			"identity", b.identity,
			"operation", operationName,
			"version", key.Version,
			"error", err)
		return "", err
	}
	return out.(string), nil
}

func (b *Builder) resolve(targetVersion, operationName string) (version.Version, Key) {
	key := Key{Identity: b.identity, Operation: operationName}

	v, err := version.Parse(targetVersion)
	if err != nil {
		b.fallbacks.Add(1)
		b.observer.VersionFallback(b.identity, operationName)
		b.logger.Warn("unparseable server version, using baseline query shape",
			"identity", b.identity,
			"operation", operationName,
			"version", targetVersion,
			"error", err)
		key.Version = unknownVersion
		return version.Baseline, key
	}
	key.Version = v.String()
	return v, key
}

// Stats is a snapshot of builder counters.
type Stats struct {
	Hits             int64
	Misses           int64
	Compiles         int64
	VersionFallbacks int64
	Cached           int
}

// Stats returns the current counters.
func (b *Builder) Stats() Stats {
	return Stats{
		Hits:             b.hits.Load(),
		Misses:           b.misses.Load(),
		Compiles:         b.compiles.Load(),
		VersionFallbacks: b.fallbacks.Load(),
		Cached:           b.cache.Len(),
	}
}
