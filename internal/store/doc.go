// Package store provides SQLite-backed storage for compiled query matrices.
//
// A run records one compilation of a catalog; each query row is the text a
// builder produced for one (provider, operation, version) triple:
//   - Runs: run id (UUIDv7), catalog hash, logical sequence
//   - Queries: compiled text plus template and query hashes
//
// # Ordering
//
// All ordering uses seq/rowid INTEGER (logical clock), never timestamps.
// Listing the same run twice yields identical results.
//
// # Hashes
//
// Hashes are SHA-256 with domain separation over NFC-normalized text, so
// templates that differ only in Unicode normalization hash equal.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
