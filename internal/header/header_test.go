package header_test

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"rommate/internal/header"
	"rommate/internal/romfile"
	"rommate/internal/systems"
)

func write(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestHasHeaderBySizeGranularity(t *testing.T) {
	fs := afero.NewMemMapFs()
	tests := []struct {
		name   string
		path   string
		system systems.System
		size   int
		want   bool
	}{
		{"snes with smc header", "/a.smc", systems.SNES, 1024*4 + 512, true},
		{"snes clean", "/b.sfc", systems.SNES, 1024 * 4, false},
		{"snes odd size", "/c.sfc", systems.SNES, 1024*4 + 100, false},
		{"pce with header", "/d.pce", systems.PCEngine, 8192*2 + 512, true},
		{"pce clean", "/e.pce", systems.PCEngine, 8192 * 2, false},
		{"gba never", "/f.gba", systems.GameBoyAdvance, 1024*4 + 512, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			write(t, fs, tt.path, make([]byte, tt.size))
			if got := header.HasHeader(fs, tt.path, tt.system); got != tt.want {
				t.Fatalf("HasHeader = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasHeaderBySignature(t *testing.T) {
	fs := afero.NewMemMapFs()
	ines := append([]byte("NES\x1a"), make([]byte, 16+8192)...)
	write(t, fs, "/ines.nes", ines)
	write(t, fs, "/raw.nes", make([]byte, 8192))
	write(t, fs, "/short.nes", []byte("NE"))
	a78 := append([]byte{0x01}, []byte("ATARI7800")...)
	a78 = append(a78, make([]byte, 200)...)
	write(t, fs, "/game.a78", a78)

	if !header.HasHeader(fs, "/ines.nes", systems.NES) {
		t.Fatal("expected iNES header")
	}
	if header.HasHeader(fs, "/raw.nes", systems.NES) {
		t.Fatal("headerless NES flagged")
	}
	if header.HasHeader(fs, "/short.nes", systems.NES) {
		t.Fatal("short file flagged")
	}
	src, err := romfile.Open(fs, "/game.a78", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := header.Detect(src, systems.Atari7800); got != 128 {
		t.Fatalf("expected 128-byte a78 header, got %d", got)
	}
}

func TestRulesFollowProfiles(t *testing.T) {
	for _, p := range systems.All() {
		rule, ok := header.RuleFor(p.System)
		if p.HeaderSize == 0 {
			if ok {
				t.Fatalf("%s has a rule but no header size", p.Key)
			}
			continue
		}
		if !ok {
			t.Fatalf("%s declares a %d-byte header but has no rule", p.Key, p.HeaderSize)
		}
		if rule.Size != int64(p.HeaderSize) {
			t.Fatalf("%s rule size %d, want profile size %d", p.Key, rule.Size, p.HeaderSize)
		}
		if rule.Granularity == 0 && len(rule.Magic) == 0 {
			t.Fatalf("%s rule has no marker", p.Key)
		}
	}
}

func TestStrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := bytes.Repeat([]byte{0xAB}, 2048)
	write(t, fs, "/roms/game.smc", append(make([]byte, 512), payload...))

	dst := header.DefaultOutput("/roms/game.smc")
	if dst != "/roms/headerless/game.smc" {
		t.Fatalf("unexpected default output %q", dst)
	}
	n, err := header.Strip(fs, "/roms/game.smc", dst, 512)
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}
	if n != int64(len(payload)) {
		t.Fatalf("unexpected size %d", n)
	}
	got, _ := afero.ReadFile(fs, dst)
	if !bytes.Equal(got, payload) {
		t.Fatal("stripped content mismatch")
	}
	if !header.HasHeader(fs, "/roms/game.smc", systems.SNES) || header.HasHeader(fs, dst, systems.SNES) {
		t.Fatal("header detection should flip after strip")
	}
}

func TestStripRejectsArchives(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/a.zip", []byte("x"))
	if _, err := header.Strip(fs, "/a.zip", "/b.zip", 512); err == nil {
		t.Fatal("expected archive rejection")
	}
}
