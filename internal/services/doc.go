// Package services defines shared utilities consumed by the verification
// pipeline and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp scan IDs, system keys, and file paths for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent CLI exit codes.
//
// Tool clients live in subpackages (chdman) so their command execution can be
// stubbed in tests.
package services
