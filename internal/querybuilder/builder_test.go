package querybuilder

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gqlgate/internal/compiler"
	"github.com/roach88/gqlgate/internal/testutil"
	"github.com/roach88/gqlgate/internal/version"
)

const identity = "gitlab*com"

func build(t *testing.T, b *Builder, v string) string {
	t.Helper()
	q, err := b.Build(v, testutil.MergeRequestTemplate, testutil.MergeRequestOperation)
	require.NoError(t, err)
	return q
}

// countCompiles wraps the builder's compile function with a call counter.
func countCompiles(b *Builder) *atomic.Int64 {
	var n atomic.Int64
	inner := b.compile
	b.compile = func(v version.Version, template, operation string) (*compiler.Result, error) {
		n.Add(1)
		return inner(v, template, operation)
	}
	return &n
}

func TestBuildDraftFieldByVersion(t *testing.T) {
	b := New(identity)

	q := build(t, b, "14.5.0")
	assert.Contains(t, q, "draft")
	assert.NotContains(t, q, "workInProgress")
	assert.NotContains(t, q, "@version")

	q = build(t, b, "13.6.1")
	assert.NotContains(t, q, "draft")
	assert.Contains(t, q, "workInProgress")
}

func TestBuildMatchesCompile(t *testing.T) {
	b := New(identity)

	for _, v := range []string{"13.6.1", "13.9.0", "14.5.0"} {
		res, err := compiler.Compile(version.MustParse(v), testutil.MergeRequestTemplate, testutil.MergeRequestOperation)
		require.NoError(t, err)
		assert.Equal(t, res.Query, build(t, b, v), v)
	}
}

func TestBuildCachesPerVersion(t *testing.T) {
	b := New(identity)
	calls := countCompiles(b)

	first := build(t, b, "14.5.0")
	second := build(t, b, "14.5.0")
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load())

	// "v14.5" normalizes to the same key
	assert.Equal(t, first, build(t, b, "v14.5"))
	assert.Equal(t, int64(1), calls.Load())

	build(t, b, "13.6.1")
	assert.Equal(t, int64(2), calls.Load())

	stats := b.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Compiles)
	assert.Equal(t, 2, stats.Cached)
}

func TestBuildCacheKeyIncludesOperation(t *testing.T) {
	b := New(identity)
	calls := countCompiles(b)

	_, err := b.Build("1.0.0", "query A {\n  a\n}\n", "A")
	require.NoError(t, err)
	q, err := b.Build("1.0.0", "query B {\n  b\n}\n", "B")
	require.NoError(t, err)

	assert.Contains(t, q, "query B")
	assert.Equal(t, int64(2), calls.Load())
}

func TestBuildConcurrentSameKeyCompilesOnce(t *testing.T) {
	b := New(identity)
	calls := countCompiles(b)

	const workers = 64
	results := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = b.Build("14.5.0", testutil.MergeRequestTemplate, testutil.MergeRequestOperation)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(1), b.Stats().Compiles)
	assert.Equal(t, int64(workers), b.Stats().Hits+b.Stats().Misses)
}

func TestBuildConcurrentMixedVersions(t *testing.T) {
	b := New(identity)
	versions := []string{"13.6.1", "13.8.0", "14.0.0", "14.5.0"}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			_, err := b.Build(v, testutil.MergeRequestTemplate, testutil.MergeRequestOperation)
			assert.NoError(t, err)
		}(versions[i%len(versions)])
	}
	wg.Wait()

	assert.Equal(t, int64(len(versions)), b.Stats().Compiles)
	assert.Equal(t, len(versions), b.Stats().Cached)
}

func TestBuildUnparseableVersionFallsBackToBaseline(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b := New(identity, WithLogger(logger))

	q := build(t, b, "garbage")

	baseline, err := compiler.Compile(version.Baseline, testutil.MergeRequestTemplate, testutil.MergeRequestOperation)
	require.NoError(t, err)
	assert.Equal(t, baseline.Query, q)
	assert.NotContains(t, q, "draft")
	assert.Contains(t, q, "workInProgress")

	assert.Equal(t, int64(1), b.Stats().VersionFallbacks)
	assert.Contains(t, logs.String(), `"level":"WARN"`)
	assert.Contains(t, logs.String(), `"version":"garbage"`)

	// all unparseable versions share the "unknown" key
	build(t, b, "")
	assert.Equal(t, int64(1), b.Stats().Compiles)
	assert.Equal(t, int64(2), b.Stats().VersionFallbacks)
}

func TestBuildBaselineDoesNotShareUnknownKey(t *testing.T) {
	cache := NewMapCache()
	b := New(identity, WithCache(cache))

	build(t, b, "garbage")
	build(t, b, "0.0.0")

	_, ok := cache.Get(Key{Identity: identity, Operation: testutil.MergeRequestOperation, Version: "unknown"})
	assert.True(t, ok)
	_, ok = cache.Get(Key{Identity: identity, Operation: testutil.MergeRequestOperation, Version: "0.0.0"})
	assert.True(t, ok)
}

func TestBuildTemplateError(t *testing.T) {
	b := New(identity)
	calls := countCompiles(b)
	src := "query Broken {\n  a\n  # @version >= 1.0.0\n}\n"

	for i := 0; i < 2; i++ {
		_, err := b.Build("1.0.0", src, "Broken")
		require.Error(t, err)

		var terr *compiler.TemplateError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, compiler.ErrDanglingGate, terr.Code)
		assert.Equal(t, "Broken", terr.Operation)
	}

	// failures are not cached
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, int64(0), b.Stats().Compiles)
	assert.Equal(t, 0, b.Stats().Cached)
}

func TestBuildUnbalancedTemplate(t *testing.T) {
	_, err := New(identity).Build("14.0.0", "query Q {\n  a {\n    b\n}\n", "Q")

	var terr *compiler.TemplateError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, compiler.ErrUnbalanced, terr.Code)
}

func TestBuildersAreIsolated(t *testing.T) {
	a := New("gitlab*com")
	b := New("gitlab*example*org")

	build(t, a, "14.5.0")
	assert.Equal(t, 1, a.Stats().Cached)
	assert.Equal(t, 0, b.Stats().Cached)

	build(t, b, "14.5.0")
	assert.Equal(t, int64(1), b.Stats().Misses)
	assert.Equal(t, "gitlab*example*org", b.Identity())
}

func TestWithCacheSharesAcrossBuilders(t *testing.T) {
	cache := NewMapCache()
	a := New(identity, WithCache(cache))
	b := New(identity, WithCache(cache))

	build(t, a, "14.5.0")
	calls := countCompiles(b)
	build(t, b, "14.5.0")

	assert.Equal(t, int64(0), calls.Load())
	assert.Equal(t, int64(1), b.Stats().Hits)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingObserver) CacheHit(_, op string)  { r.record("hit " + op) }
func (r *recordingObserver) CacheMiss(_, op string) { r.record("miss " + op) }
func (r *recordingObserver) Compiled(_, op string, _ time.Duration) {
	r.record("compiled " + op)
}
func (r *recordingObserver) CompileFailed(_, op, code string) {
	r.record("failed " + op + " " + code)
}
func (r *recordingObserver) VersionFallback(_, op string) { r.record("fallback " + op) }

func TestBuildNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	b := New(identity, WithObserver(obs))

	build(t, b, "14.5.0")
	build(t, b, "14.5.0")
	build(t, b, "nope")
	_, err := b.Build("1.0.0", "query Q {\n  # @version >= 2.0.0\n  a\n}\n", "Q")
	require.Error(t, err)

	assert.Equal(t, []string{
		"miss GetPullRequest",
		"compiled GetPullRequest",
		"hit GetPullRequest",
		"fallback GetPullRequest",
		"miss GetPullRequest",
		"compiled GetPullRequest",
		"miss Q",
		"failed Q E205",
	}, obs.events)
}

func TestMapCache(t *testing.T) {
	c := NewMapCache()
	k := Key{Identity: "x", Operation: "Op", Version: "1.2.3"}

	_, ok := c.Get(k)
	assert.False(t, ok)

	c.Put(k, "query { a }")
	q, ok := c.Get(k)
	assert.True(t, ok)
	assert.Equal(t, "query { a }", q)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "x|Op|1.2.3", k.String())
	assert.True(t, strings.HasPrefix(k.String(), "x|"))
}
