package querybuilder

import "time"

// Observer receives builder events, e.g. to export metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	CacheHit(identity, operation string)
	CacheMiss(identity, operation string)
	Compiled(identity, operation string, elapsed time.Duration)
	CompileFailed(identity, operation, code string)
	VersionFallback(identity, operation string)
}

type noopObserver struct{}

func (noopObserver) CacheHit(string, string)                {}
func (noopObserver) CacheMiss(string, string)               {}
func (noopObserver) Compiled(string, string, time.Duration) {}
func (noopObserver) CompileFailed(string, string, string)   {}
func (noopObserver) VersionFallback(string, string)         {}
