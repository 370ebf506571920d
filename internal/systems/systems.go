// Package systems enumerates the platforms rommate can verify and maps file
// extensions onto them.
package systems

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// System identifies a supported platform.
type System int

const (
	Unknown System = iota
	NES
	SNES
	N64
	GameBoy
	GameBoyColor
	GameBoyAdvance
	NintendoDS
	Nintendo3DS
	Genesis
	MasterSystem
	GameGear
	Sega32X
	Atari2600
	Atari7800
	PCEngine
	NeoGeoPocket
	WonderSwan
	GameCube
	Wii
	PlayStation3
	Xbox
	Xbox360
)

// Family selects which reference database root holds a system's catalog.
type Family int

const (
	// FamilyCartridge catalogs follow the No-Intro conventions.
	FamilyCartridge Family = iota
	// FamilyDisc catalogs follow the Redump conventions.
	FamilyDisc
)

func (f Family) String() string {
	switch f {
	case FamilyDisc:
		return "disc"
	default:
		return "cartridge"
	}
}

// Profile is the static description of one system.
type Profile struct {
	System     System
	Key        string
	Name       string
	Extensions []string
	Family     Family
	// HeaderSize is the copier header length in bytes; zero when the system
	// has no external header convention.
	HeaderSize int
}

// Detection order matters: ".iso" resolves to the first disc system listed.
var profiles = []Profile{
	{NES, "nes", "Nintendo Entertainment System", []string{".nes", ".unf", ".unif"}, FamilyCartridge, 16},
	{SNES, "snes", "Super Nintendo", []string{".sfc", ".smc"}, FamilyCartridge, 512},
	{N64, "n64", "Nintendo 64", []string{".n64", ".z64", ".v64"}, FamilyCartridge, 0},
	{GameBoy, "gb", "Game Boy", []string{".gb"}, FamilyCartridge, 0},
	{GameBoyColor, "gbc", "Game Boy Color", []string{".gbc"}, FamilyCartridge, 0},
	{GameBoyAdvance, "gba", "Game Boy Advance", []string{".gba"}, FamilyCartridge, 0},
	{NintendoDS, "nds", "Nintendo DS", []string{".nds"}, FamilyCartridge, 0},
	{Nintendo3DS, "3ds", "Nintendo 3DS", []string{".3ds", ".cci", ".cia"}, FamilyCartridge, 0},
	{Genesis, "genesis", "Sega Genesis / Mega Drive", []string{".gen", ".md", ".smd", ".bin"}, FamilyCartridge, 0},
	{MasterSystem, "sms", "Sega Master System", []string{".sms"}, FamilyCartridge, 0},
	{GameGear, "gamegear", "Sega Game Gear", []string{".gg"}, FamilyCartridge, 0},
	{Sega32X, "sega32x", "Sega 32X", []string{".32x"}, FamilyCartridge, 0},
	{Atari2600, "a2600", "Atari 2600", []string{".a26"}, FamilyCartridge, 0},
	{Atari7800, "a7800", "Atari 7800", []string{".a78"}, FamilyCartridge, 128},
	{PCEngine, "pce", "PC Engine / TurboGrafx-16", []string{".pce"}, FamilyCartridge, 512},
	{NeoGeoPocket, "ngp", "Neo Geo Pocket", []string{".ngp", ".ngc"}, FamilyCartridge, 0},
	{WonderSwan, "ws", "WonderSwan", []string{".ws", ".wsc"}, FamilyCartridge, 0},
	{GameCube, "gamecube", "Nintendo GameCube", []string{".iso", ".gcm", ".gcz"}, FamilyDisc, 0},
	{Wii, "wii", "Nintendo Wii", []string{".iso", ".wbfs"}, FamilyDisc, 0},
	{PlayStation3, "ps3", "PlayStation 3", []string{".iso"}, FamilyDisc, 0},
	{Xbox, "xbox", "Xbox", []string{".iso"}, FamilyDisc, 0},
	{Xbox360, "xbox360", "Xbox 360", []string{".iso"}, FamilyDisc, 0},
}

var (
	byExtension = buildExtensionIndex()
	upper       = cases.Upper(language.Und)
)

func buildExtensionIndex() map[string]System {
	index := make(map[string]System)
	for _, p := range profiles {
		for _, ext := range p.Extensions {
			if _, taken := index[ext]; !taken {
				index[ext] = p.System
			}
		}
	}
	return index
}

// All returns every profile in detection order.
func All() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Lookup returns the profile for a system.
func Lookup(s System) (Profile, bool) {
	idx := int(s) - 1
	if idx < 0 || idx >= len(profiles) {
		return Profile{}, false
	}
	return profiles[idx], true
}

// Detect maps a file name onto a system by extension. The first profile
// listing the extension wins.
func Detect(name string) (System, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return Unknown, false
	}
	s, ok := byExtension[ext]
	return s, ok
}

// IsCandidate reports whether name carries any recognized ROM extension.
func IsCandidate(name string) bool {
	_, ok := Detect(name)
	return ok
}

// Parse resolves a system key such as "snes".
func Parse(key string) (System, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, p := range profiles {
		if p.Key == key {
			return p.System, nil
		}
	}
	return Unknown, fmt.Errorf("unknown system %q", key)
}

// Profile returns the system's profile; Unknown yields a zero profile.
func (s System) Profile() Profile {
	p, _ := Lookup(s)
	return p
}

func (s System) String() string {
	if p, ok := Lookup(s); ok {
		return p.Key
	}
	return "unknown"
}

// Label is the upper-cased key used in short user messages ("SNES", "GBA").
func (s System) Label() string {
	return upper.String(s.String())
}

// MarshalText encodes the system as its key.
func (s System) MarshalText() ([]byte, error) {
	if s == Unknown {
		return []byte(""), nil
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a system key; the empty string is Unknown.
func (s *System) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*s = Unknown
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DatabaseFile is the catalog file name for the system ("snes.dat").
func (p Profile) DatabaseFile() string {
	return p.Key + ".dat"
}
