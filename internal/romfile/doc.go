// Package romfile resolves the bytes that get verified for a path on disk.
//
// Plain files are read directly. ZIP, 7z, and RAR containers are opened and
// the first entry that looks like a ROM becomes the payload, so a zipped
// collection verifies the same way as an extracted one. Every Source can be
// opened at an offset, which is how copier headers are skipped.
package romfile
