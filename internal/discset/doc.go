// Package discset checks the integrity of disc image sets.
//
// CUE sheets are checked for the presence of every referenced track file.
// CHD images are handed to chdman's own verifier. The folder scanner also uses
// ParseCue to keep referenced tracks out of cartridge verification.
package discset
