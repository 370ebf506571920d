// Package textutil provides text processing utilities for ROM title matching.
//
// The primary use cases are:
//   - Normalizing dump file names and catalog titles by removing region,
//     language, revision, and dump-flag tags
//   - Scoring the similarity of two titles with a longest common subsequence ratio
package textutil
