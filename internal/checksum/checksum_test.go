package checksum_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"rommate/internal/checksum"
	"rommate/internal/digestcache"
	"rommate/internal/romfile"
)

func source(t *testing.T, fs afero.Fs, path string, data []byte) *romfile.Source {
	t.Helper()
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	src, err := romfile.Open(fs, path, nil)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return src
}

func TestComputeKnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  checksum.Digests
	}{
		{
			name:  "empty",
			input: "",
			want: checksum.Digests{
				CRC32: "00000000",
				MD5:   "D41D8CD98F00B204E9800998ECF8427E",
				SHA1:  "DA39A3EE5E6B4B0D3255BFEF95601890AFD80709",
			},
		},
		{
			name:  "abc",
			input: "abc",
			want: checksum.Digests{
				CRC32: "352441C2",
				MD5:   "900150983CD24FB0D6963F7D28E17F72",
				SHA1:  "A9993E364706816ABA3E25717850C26C9CD0D89D",
			},
		},
		{
			name:  "check value",
			input: "123456789",
			want: checksum.Digests{
				CRC32: "CBF43926",
				MD5:   "25F9E794323B453885F5181F1B624D0B",
				SHA1:  "F7C3BC1D808E04732ADF679965CCC34CA7AE3441",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checksum.ComputeReader(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ComputeReader: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeSkipsHeaderBytes(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := source(t, fs, "/roms/a.sfc", []byte("HDR!123456789"))

	stripped, err := checksum.Compute(src, 4)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if stripped.CRC32 != "CBF43926" {
		t.Fatalf("expected header-stripped crc, got %s", stripped.CRC32)
	}
	raw, err := checksum.Compute(src, 0)
	if err != nil {
		t.Fatalf("Compute raw: %v", err)
	}
	if raw.CRC32 == stripped.CRC32 {
		t.Fatal("raw and stripped digests should differ")
	}
}

func TestComputeSpansManyBlocks(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := []byte(strings.Repeat("0123456789abcdef", 3000))
	src := source(t, fs, "/roms/big.gba", data)

	got, err := checksum.Compute(src, 0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want, _ := checksum.ComputeReader(strings.NewReader(string(data)))
	if got != want {
		t.Fatalf("block streaming mismatch: %+v vs %+v", got, want)
	}
}

func TestComputeMissingFileIsUnreadable(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := source(t, fs, "/roms/gone.nes", []byte("x"))
	if err := fs.Remove("/roms/gone.nes"); err != nil {
		t.Fatal(err)
	}
	_, err := checksum.Compute(src, 0)
	if !errors.Is(err, checksum.ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestEngineMemoizesPerSkip(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := source(t, fs, "/roms/a.sfc", []byte("HDR!123456789"))
	engine := checksum.NewEngine()

	for range 3 {
		if _, err := engine.Digest(src, 0); err != nil {
			t.Fatalf("Digest: %v", err)
		}
	}
	if _, err := engine.Digest(src, 4); err != nil {
		t.Fatalf("Digest skip: %v", err)
	}
	if engine.Passes() != 2 {
		t.Fatalf("expected 2 hashing passes, got %d", engine.Passes())
	}
}

func TestEngineUsesPersistentStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := source(t, fs, "/roms/a.sfc", []byte("123456789"))
	cachePath := filepath.Join(t.TempDir(), "digests.json")

	first := checksum.NewEngine(checksum.WithStore(digestcache.NewCache(cachePath, nil)))
	d, err := first.Digest(src, 0)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}

	second := checksum.NewEngine(checksum.WithStore(digestcache.NewCache(cachePath, nil)))
	again, err := second.Digest(src, 0)
	if err != nil {
		t.Fatalf("Digest from store: %v", err)
	}
	if again != d {
		t.Fatalf("stored digests differ: %+v vs %+v", again, d)
	}
	if second.Passes() != 0 {
		t.Fatalf("expected digests from store without hashing, got %d passes", second.Passes())
	}
}
