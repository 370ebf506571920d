// Package header detects and removes external copier headers on cartridge dumps.
//
// Detection is advisory: it only decides whether the verifier should retry
// the digest with the header bytes skipped. Strip is the single operation that
// writes anything, and it never touches the original file.
package header
