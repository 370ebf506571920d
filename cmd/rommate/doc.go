// Package main hosts the rommate CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, the reference
// database store, the checksum engine and the chdman client into the
// verification engine and folder scanner, then renders their results for the
// terminal or as JSON. Heavy lifting lives in internal packages; commands
// here only translate flags and format output.
package main
