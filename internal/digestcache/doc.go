// Package digestcache persists computed ROM digests between runs.
//
// Entries are keyed by the payload identity (path, archive entry, size,
// modification time) plus the header skip offset, so a modified file never
// returns stale digests. The cache lives in a single JSON file that is
// rewritten atomically on every change.
package digestcache
