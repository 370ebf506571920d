// Package scan walks a folder and verifies every candidate dump in it.
//
// Discovery happens once up front: files with a ROM, archive, or disc set
// extension become candidates, minus the track files claimed by CUE sheets.
// Candidates are then verified in discovery order. Cancellation is
// cooperative: the CancelToken is sampled before each file starts, and a file
// that has started always finishes.
package scan
