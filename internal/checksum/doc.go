// Package checksum computes CRC32, MD5, and SHA1 digests of ROM payloads in a
// single streaming pass.
//
// Engine memoizes results per payload and skip offset so the raw and
// header-stripped passes of one verification never hash the same bytes twice,
// and can consult a persistent digest cache across runs.
package checksum
