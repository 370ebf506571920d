package header

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"rommate/internal/fileutil"
	"rommate/internal/romfile"
	"rommate/internal/systems"
)

// Rule describes how a system's copier header is recognised.
type Rule struct {
	// Size is the header length in bytes, taken from the system profile.
	Size int64
	// Granularity, when non-zero, flags a header if size % Granularity == Size.
	Granularity int64
	// Magic, when set, flags a header if the payload holds Magic at MagicOffset.
	Magic       []byte
	MagicOffset int64
}

// markers holds the detection half of each rule; sizes live on the profiles.
var markers = map[systems.System]Rule{
	systems.SNES:      {Granularity: 1024},
	systems.PCEngine:  {Granularity: 8192},
	systems.NES:       {Magic: []byte("NES\x1a")},
	systems.Atari7800: {Magic: []byte("ATARI7800"), MagicOffset: 1},
}

// RuleFor returns the header rule of system. Systems whose profile declares
// no header size have no rule.
func RuleFor(system systems.System) (Rule, bool) {
	size := int64(system.Profile().HeaderSize)
	r, ok := markers[system]
	if !ok || size <= 0 {
		return Rule{}, false
	}
	r.Size = size
	return r, true
}

// Detect returns the suspected header size of src, or zero. Systems without a
// rule return zero without touching the payload.
func Detect(src *romfile.Source, system systems.System) int64 {
	rule, ok := RuleFor(system)
	if !ok {
		return 0
	}
	if rule.Granularity > 0 {
		if src.Size()%rule.Granularity == rule.Size {
			return rule.Size
		}
		return 0
	}
	if len(rule.Magic) == 0 || src.Size() < rule.MagicOffset+int64(len(rule.Magic)) {
		return 0
	}

	rc, err := src.Open(0)
	if err != nil {
		return 0
	}
	defer rc.Close()
	buf := make([]byte, rule.MagicOffset+int64(len(rule.Magic)))
	if _, err := io.ReadFull(rc, buf); err != nil {
		return 0
	}
	if bytes.Equal(buf[rule.MagicOffset:], rule.Magic) {
		return rule.Size
	}
	return 0
}

// HasHeader reports whether the file at path likely carries a copier header.
func HasHeader(fsys afero.Fs, path string, system systems.System) bool {
	src, err := romfile.Open(fsys, path, systems.IsCandidate)
	if err != nil {
		return false
	}
	return Detect(src, system) > 0
}

// DefaultOutput is where Strip writes when no destination is given:
// a "headerless" directory next to the original, keeping the file name.
func DefaultOutput(path string) string {
	return filepath.Join(filepath.Dir(path), "headerless", filepath.Base(path))
}

// Strip writes a copy of src without its first size bytes to dst. The copy is
// verified and removed on mismatch; dst must not exist.
func Strip(fsys afero.Fs, src, dst string, size int64) (int64, error) {
	if size <= 0 {
		return 0, fmt.Errorf("invalid header size %d", size)
	}
	if romfile.IsArchive(src) {
		return 0, fmt.Errorf("%s: headers can only be stripped from extracted files", src)
	}
	written, err := fileutil.CopyRangeVerified(fsys, src, dst, size)
	if err != nil {
		return 0, fmt.Errorf("strip header: %w", err)
	}
	return written, nil
}
