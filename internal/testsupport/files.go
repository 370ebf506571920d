package testsupport

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// WriteFile writes data to path on fs, creating parent directories.
func WriteFile(t testing.TB, fs afero.Fs, path string, data []byte) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Pattern returns size bytes of a repeating pattern seeded by seed, so two
// calls with different seeds never share digests.
func Pattern(size int, seed byte) []byte {
	if size <= 0 {
		return nil
	}
	unit := []byte{seed, seed ^ 0x5A, seed + 1, 0x42}
	return bytes.Repeat(unit, size/len(unit)+1)[:size]
}
