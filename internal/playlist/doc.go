// Package playlist groups multi-disc games in a folder and writes M3U
// playlists for them.
//
// Disc numbers are read from file names: "(Disc N)", "[Disc N]" and a bare
// "Disc N" are recognised in that order, with "Disk" accepted as a spelling.
// Only files directly inside the folder are considered, and a game whose discs
// use different image formats is reported rather than written.
package playlist
