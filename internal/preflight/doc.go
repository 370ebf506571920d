// Package preflight provides readiness checks for the filesystem paths and
// external tools rommate depends on.
//
// The CLI "rommate doctor" command renders every check. "rommate scan" only
// runs CheckDatabases so that a missing database root is reported up front
// instead of as one no_database verdict per file.
package preflight
