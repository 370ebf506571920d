// Package verify decides what a single dump is.
//
// Engine.Verify runs a strict-priority tier procedure and returns exactly one
// Result per path:
//
//  1. system detection by extension
//  2. hack or translation short-circuit (no I/O)
//  3. catalog availability
//  4. exact CRC32 and size match
//  5. exact CRC32 match after skipping a suspected copier header
//  6. at least two of three digests agree
//  7. name similarity with a size within tolerance
//  8. name similarity alone
//  9. unknown, with the computed digests
//
// CUE sheets and CHD images bypass the tiers and get a disc set check instead.
// Expected outcomes such as "no database" are statuses, never errors.
package verify
