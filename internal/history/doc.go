// Package history persists folder scans and their per-file results in SQLite.
//
// Each scan is identified by a UUID. Begin records the scan as running,
// Record appends results in scan order and Finish stores the totals. The
// database lives at <state_dir>/history.db and uses WAL journaling so that
// "history list" can read while a scan is writing.
package history
