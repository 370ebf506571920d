package playlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"rommate/internal/fileutil"
	"rommate/internal/logging"
	"rommate/internal/services"
)

// Choice selects which image kind the playlists reference.
type Choice string

const (
	ChoiceAuto     Choice = "auto"
	ChoiceCHD      Choice = "chd"
	ChoiceOriginal Choice = "original"
)

// ParseChoice validates a user supplied format choice.
func ParseChoice(value string) (Choice, error) {
	switch c := Choice(strings.ToLower(strings.TrimSpace(value))); c {
	case ChoiceAuto, ChoiceCHD, ChoiceOriginal:
		return c, nil
	case "":
		return ChoiceAuto, nil
	default:
		return "", services.Wrap(services.ErrValidation, "playlist", "format", fmt.Sprintf("unsupported format %q (use auto, chd or original)", value), nil)
	}
}

// ErrNoImages reports a folder with nothing to build playlists from.
var ErrNoImages = errors.New("no disc images found")

// Create writes <title>.m3u into dir listing the game's disc files. An
// existing playlist is never overwritten; created is false in that case.
func Create(fsys afero.Fs, dir string, game Game) (path string, created bool, err error) {
	path = filepath.Join(dir, game.Title+".m3u")
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return path, false, fmt.Errorf("stat playlist: %w", err)
	}
	if exists {
		return path, false, nil
	}
	var b strings.Builder
	for _, file := range game.Files() {
		b.WriteString(file)
		b.WriteByte('\n')
	}
	if err := fileutil.WriteFileAtomic(fsys, path, []byte(b.String()), 0o644); err != nil {
		return path, false, err
	}
	return path, true, nil
}

// Outcome describes the playlist handling for one game.
type Outcome struct {
	Game    Game
	Path    string
	Created bool
	Err     error
}

// Summary totals a CreateAll run.
type Summary struct {
	Patterns []string
	Created  int
	Skipped  int
	Failed   int
	Mixed    []MixedGame
	Outcomes []Outcome
}

// Creator writes playlists for every multi-disc game in a folder.
type Creator struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewCreator constructs a Creator. A nil fs means the OS filesystem.
func NewCreator(fsys afero.Fs, logger *slog.Logger) *Creator {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Creator{fs: fsys, logger: logging.NewComponentLogger(logger, "playlist")}
}

// Patterns resolves a choice against the folder contents. auto prefers CHD
// files when both kinds are present.
func (c *Creator) Patterns(dir string, choice Choice) ([]string, error) {
	switch choice {
	case ChoiceCHD:
		return CHDPatterns, nil
	case ChoiceOriginal:
		return OriginalPatterns, nil
	}
	formats, err := DetectFormats(c.fs, dir)
	if err != nil {
		return nil, err
	}
	switch {
	case formats.CHD:
		return CHDPatterns, nil
	case formats.Original:
		return OriginalPatterns, nil
	default:
		return nil, ErrNoImages
	}
}

// CreateAll groups the folder's discs and writes one playlist per game.
// logf, when set, receives human readable progress lines.
func (c *Creator) CreateAll(ctx context.Context, dir string, choice Choice, logf func(string)) (Summary, error) {
	var summary Summary
	say := func(format string, args ...any) {
		if logf != nil {
			logf(fmt.Sprintf(format, args...))
		}
	}
	patterns, err := c.Patterns(dir, choice)
	if err != nil {
		return summary, err
	}
	summary.Patterns = patterns
	say("Scanning for %s files", strings.Join(patterns, ", "))

	games, mixed, err := FindMultiDisc(c.fs, dir, patterns)
	if err != nil {
		return summary, err
	}
	summary.Mixed = mixed
	for _, m := range mixed {
		say("Skipping '%s' - mixed formats detected (%s)", m.Title, strings.Join(m.Extensions, ", "))
		logging.WarnWithContext(c.logger, "mixed disc formats", "playlist_mixed_formats",
			logging.String("title", m.Title),
			logging.String("extensions", strings.Join(m.Extensions, ",")),
			logging.String(logging.FieldErrorHint, "convert every disc to the same format"),
			logging.String(logging.FieldImpact, "no playlist written for this game"))
	}
	if len(games) == 0 {
		say("No multi-disc games found")
		return summary, nil
	}
	say("Found %d multi-disc game(s)", len(games))

	for _, game := range games {
		if err := ctx.Err(); err != nil {
			return summary, services.Wrap(services.ErrCanceled, "playlist", "create", "", err)
		}
		path, created, err := Create(c.fs, dir, game)
		out := Outcome{Game: game, Path: path, Created: created, Err: err}
		switch {
		case err != nil:
			summary.Failed++
			say("Failed: %s.m3u: %v", game.Title, err)
			c.logger.Error("playlist write failed", logging.String(logging.FieldPath, path), logging.Error(err))
		case created:
			summary.Created++
			say("Created: %s.m3u (%d discs)", game.Title, len(game.Discs))
			c.logger.Info("playlist created", logging.String(logging.FieldPath, path), logging.Int("discs", len(game.Discs)))
		default:
			summary.Skipped++
			say("M3U already exists: %s.m3u", game.Title)
		}
		summary.Outcomes = append(summary.Outcomes, out)
	}
	return summary, nil
}
