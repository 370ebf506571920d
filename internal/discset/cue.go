package discset

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Reference is one FILE entry of a CUE sheet.
type Reference struct {
	// Name is the file name as written in the sheet.
	Name string
	// Path is the resolved location, matched case-insensitively when the
	// exact name is absent. It is the exact join when nothing matches.
	Path string
}

// ParseCue extracts the track files referenced by a CUE sheet.
func ParseCue(fsys afero.Fs, path string) ([]Reference, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cue sheet: %w", err)
	}
	defer file.Close()

	dir := filepath.Dir(path)
	var listing []string
	var refs []Reference
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(strings.ToUpper(line), "FILE") {
			continue
		}
		parts := strings.Split(line, `"`)
		if len(parts) < 3 || parts[1] == "" {
			continue
		}
		name := parts[1]
		resolved := filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
		if ok, _ := afero.Exists(fsys, resolved); !ok {
			if listing == nil {
				listing = listDir(fsys, dir)
			}
			for _, candidate := range listing {
				if strings.EqualFold(candidate, filepath.Base(resolved)) {
					resolved = filepath.Join(filepath.Dir(resolved), candidate)
					break
				}
			}
		}
		refs = append(refs, Reference{Name: name, Path: resolved})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cue sheet: %w", err)
	}
	return refs, nil
}

func listDir(fsys afero.Fs, dir string) []string {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return []string{}
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names
}

// TrackState is the outcome of checking one referenced track.
type TrackState string

const (
	TrackFound   TrackState = "found"
	TrackMissing TrackState = "missing"
	TrackEmpty   TrackState = "empty"
)

// Track is the per-file detail of a CUE check.
type Track struct {
	Reference
	State TrackState
	Size  int64
}

// CueReport summarises a CUE check.
type CueReport struct {
	OK      bool
	Message string
	Tracks  []Track
}

// Problems returns the tracks that are missing or empty.
func (r CueReport) Problems() []Track {
	var out []Track
	for _, t := range r.Tracks {
		if t.State != TrackFound {
			out = append(out, t)
		}
	}
	return out
}

// CheckCue verifies that every track referenced by the sheet exists and is non-empty.
func CheckCue(fsys afero.Fs, path string) CueReport {
	refs, err := ParseCue(fsys, path)
	if err != nil || len(refs) == 0 {
		return CueReport{Message: "Could not parse CUE file or no track files referenced"}
	}

	report := CueReport{Tracks: make([]Track, 0, len(refs))}
	bad := 0
	for _, ref := range refs {
		track := Track{Reference: ref, State: TrackMissing}
		if info, err := fsys.Stat(ref.Path); err == nil && !info.IsDir() {
			track.Size = info.Size()
			track.State = TrackFound
			if info.Size() == 0 {
				track.State = TrackEmpty
			}
		}
		if track.State != TrackFound {
			bad++
		}
		report.Tracks = append(report.Tracks, track)
	}

	if bad > 0 {
		report.Message = fmt.Sprintf("%d track file(s) missing or unreadable", bad)
		return report
	}
	report.OK = true
	report.Message = fmt.Sprintf("All %d track file(s) found", len(refs))
	return report
}
