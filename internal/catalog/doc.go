// Package catalog loads reference databases of known-good dumps.
//
// A catalog is parsed from a Logiqx-style DAT document (<game>/<rom>) stored
// as <root>/<system>.dat, where root depends on the system's catalog family.
// Store caches one catalog per system for the life of the process and
// serializes the first load of each system.
package catalog
