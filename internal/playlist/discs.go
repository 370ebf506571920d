package playlist

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

var discPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.*?)[\s\-_]*\(Dis[ck]\s*(\d+)\)`),
	regexp.MustCompile(`(?i)^(.*?)[\s\-_]*\[Dis[ck]\s*(\d+)\]`),
	regexp.MustCompile(`(?i)^(.*?)[\s\-_]*Dis[ck]\s*(\d+)`),
}

// Image patterns for the two playlist sources.
var (
	OriginalPatterns = []string{"*.cue", "*.gdi", "*.cdi", "*.iso"}
	CHDPatterns      = []string{"*.chd"}
)

// ParseDiscName extracts the game title and disc number from a file name.
// ok is false when no disc marker is present, the title is empty or the disc
// number is zero.
func ParseDiscName(filename string) (title string, disc int, ok bool) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	for _, re := range discPatterns {
		m := re.FindStringSubmatch(stem)
		if m == nil {
			continue
		}
		title = strings.TrimSpace(m[1])
		n, err := strconv.Atoi(m[2])
		if err != nil || title == "" || n == 0 {
			return "", 0, false
		}
		return title, n, true
	}
	return "", 0, false
}

// Disc is one file of a multi-disc game.
type Disc struct {
	Number int
	File   string
}

// Game is a title with more than one disc, discs in ascending order.
type Game struct {
	Title string
	Discs []Disc
}

// Files returns the disc file names in playlist order.
func (g Game) Files() []string {
	out := make([]string, len(g.Discs))
	for i, d := range g.Discs {
		out[i] = d.File
	}
	return out
}

// MixedGame is a title whose discs use more than one file extension.
type MixedGame struct {
	Title      string
	Extensions []string
}

// FindMultiDisc groups the files matching patterns in dir by title. Games
// are returned sorted by title.
func FindMultiDisc(fsys afero.Fs, dir string, patterns []string) ([]Game, []MixedGame, error) {
	groups := make(map[string][]Disc)
	for _, pattern := range patterns {
		matches, err := afero.Glob(fsys, filepath.Join(dir, pattern))
		if err != nil {
			return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, match := range matches {
			name := filepath.Base(match)
			title, n, ok := ParseDiscName(name)
			if !ok {
				continue
			}
			groups[title] = append(groups[title], Disc{Number: n, File: name})
		}
	}

	titles := make([]string, 0, len(groups))
	for title, discs := range groups {
		if len(discs) > 1 {
			titles = append(titles, title)
		}
	}
	sort.Strings(titles)

	var games []Game
	var mixed []MixedGame
	for _, title := range titles {
		discs := groups[title]
		if exts := extensions(discs); len(exts) > 1 {
			mixed = append(mixed, MixedGame{Title: title, Extensions: exts})
			continue
		}
		sort.SliceStable(discs, func(i, j int) bool { return discs[i].Number < discs[j].Number })
		games = append(games, Game{Title: title, Discs: discs})
	}
	return games, mixed, nil
}

func extensions(discs []Disc) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range discs {
		ext := strings.ToLower(filepath.Ext(d.File))
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Formats reports which image kinds are present in a folder.
type Formats struct {
	Original bool
	CHD      bool
}

// DetectFormats looks for original images and CHDs directly inside dir.
func DetectFormats(fsys afero.Fs, dir string) (Formats, error) {
	var f Formats
	var err error
	if f.Original, err = anyMatch(fsys, dir, OriginalPatterns); err != nil {
		return Formats{}, err
	}
	if f.CHD, err = anyMatch(fsys, dir, CHDPatterns); err != nil {
		return Formats{}, err
	}
	return f, nil
}

func anyMatch(fsys afero.Fs, dir string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		matches, err := afero.Glob(fsys, filepath.Join(dir, pattern))
		if err != nil {
			return false, fmt.Errorf("glob %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			return true, nil
		}
	}
	return false, nil
}
