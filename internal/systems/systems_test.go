package systems_test

import (
	"encoding/json"
	"testing"

	"rommate/internal/systems"
)

func TestEveryEnumValueHasProfile(t *testing.T) {
	for s := systems.NES; s <= systems.Xbox360; s++ {
		p, ok := systems.Lookup(s)
		if !ok {
			t.Fatalf("system %d has no profile", s)
		}
		if p.System != s {
			t.Fatalf("profile order mismatch: %v holds %v", s, p.System)
		}
		if p.Key == "" || len(p.Extensions) == 0 {
			t.Fatalf("incomplete profile for %v: %+v", s, p)
		}
	}
	if _, ok := systems.Lookup(systems.Unknown); ok {
		t.Fatal("Unknown must not have a profile")
	}
	if _, ok := systems.Lookup(systems.Xbox360 + 1); ok {
		t.Fatal("out of range system must not have a profile")
	}
	if got := len(systems.All()); got != int(systems.Xbox360) {
		t.Fatalf("All() returned %d profiles", got)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		want systems.System
		ok   bool
	}{
		{"Super Mario World (USA).sfc", systems.SNES, true},
		{"Zelda.SMC", systems.SNES, true},
		{"Game (USA).nes", systems.NES, true},
		{"Sonic.md", systems.Genesis, true},
		{"Sonic.bin", systems.Genesis, true},
		{"Metroid Prime.iso", systems.GameCube, true},
		{"Mario Kart.wbfs", systems.Wii, true},
		{"Lynx.a78", systems.Atari7800, true},
		{"readme.txt", systems.Unknown, false},
		{"noextension", systems.Unknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := systems.Detect(tt.name)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("Detect(%q) = %v,%v want %v,%v", tt.name, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFamiliesAndHeaders(t *testing.T) {
	if systems.GameCube.Profile().Family != systems.FamilyDisc {
		t.Fatal("gamecube should use the disc family")
	}
	if systems.SNES.Profile().Family != systems.FamilyCartridge {
		t.Fatal("snes should use the cartridge family")
	}
	if systems.SNES.Profile().HeaderSize != 512 || systems.NES.Profile().HeaderSize != 16 {
		t.Fatal("unexpected header sizes")
	}
	if systems.GameBoyAdvance.Profile().HeaderSize != 0 {
		t.Fatal("gba has no copier header")
	}
	if systems.SNES.Profile().DatabaseFile() != "snes.dat" {
		t.Fatalf("unexpected database file %q", systems.SNES.Profile().DatabaseFile())
	}
}

func TestParseAndLabel(t *testing.T) {
	s, err := systems.Parse(" GBA ")
	if err != nil || s != systems.GameBoyAdvance {
		t.Fatalf("Parse = %v, %v", s, err)
	}
	if _, err := systems.Parse("dreamcast"); err == nil {
		t.Fatal("expected error for unsupported system")
	}
	if systems.SNES.Label() != "SNES" {
		t.Fatalf("unexpected label %q", systems.SNES.Label())
	}
	if systems.Unknown.String() != "unknown" {
		t.Fatalf("unexpected unknown string %q", systems.Unknown.String())
	}
}

func TestSystemJSONUsesKey(t *testing.T) {
	payload := struct {
		System systems.System `json:"system"`
	}{System: systems.Nintendo3DS}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"system":"3ds"}` {
		t.Fatalf("unexpected json %s", data)
	}
	payload.System = systems.Unknown
	if err := json.Unmarshal([]byte(`{"system":"wii"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.System != systems.Wii {
		t.Fatalf("unexpected system %v", payload.System)
	}
}
