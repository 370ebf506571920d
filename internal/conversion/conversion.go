// Package conversion compresses disc images in a folder to CHD.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"rommate/internal/discset"
	"rommate/internal/logging"
	"rommate/internal/services"
	"rommate/internal/services/chdman"
)

// Patterns are the image types picked up, in processing order.
var Patterns = []string{"*.cue", "*.gdi", "*.cdi", "*.iso"}

// Compressor produces a CHD from a disc image. *chdman.Client satisfies it.
type Compressor interface {
	Available() bool
	CreateCD(ctx context.Context, input, output string, progress func(chdman.ProgressUpdate)) error
}

// Outcome is the result of one file.
type Outcome string

const (
	OutcomeConverted Outcome = "converted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// FileResult describes one source image.
type FileResult struct {
	Source  string
	Output  string
	Outcome Outcome
	Err     error
	// Deleted lists originals removed after a successful conversion.
	Deleted []string
}

// Summary totals a folder conversion.
type Summary struct {
	Converted int
	Skipped   int
	Failed    int
	Canceled  bool
	Results   []FileResult
}

// Observer receives conversion events. Nil fields are skipped.
type Observer struct {
	File     func(current, total int, name string)
	Log      func(message string)
	Progress func(name string, update chdman.ProgressUpdate)
}

func (o *Observer) log(format string, args ...any) {
	if o != nil && o.Log != nil {
		o.Log(fmt.Sprintf(format, args...))
	}
}

// Converter runs folder conversions.
type Converter struct {
	fs              afero.Fs
	compressor      Compressor
	deleteOriginals bool
	logger          *slog.Logger
}

// New creates a converter. deleteOriginals removes the source image and, for
// CUE sheets, every referenced track once the CHD is written.
func New(fsys afero.Fs, compressor Compressor, deleteOriginals bool, logger *slog.Logger) *Converter {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Converter{
		fs:              fsys,
		compressor:      compressor,
		deleteOriginals: deleteOriginals,
		logger:          logging.NewComponentLogger(logger, "conversion"),
	}
}

// Discover lists convertible images directly inside dir (not recursive).
func (c *Converter) Discover(dir string) ([]string, error) {
	var out []string
	for _, pattern := range Patterns {
		found, err := afero.Glob(c.fs, filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		out = append(out, found...)
	}
	return out, nil
}

// OutputPath is the CHD written for source.
func OutputPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".chd"
}

// ConvertFolder converts every image in dir whose CHD does not exist yet.
// ctx cancellation stops before the next file; an in-flight conversion is
// aborted by chdman's own context handling.
func (c *Converter) ConvertFolder(ctx context.Context, dir string, obs *Observer) (Summary, error) {
	var summary Summary
	if c.compressor == nil || !c.compressor.Available() {
		return summary, services.Wrap(services.ErrExternalTool, "conversion", "start", "chdman", chdman.ErrNotInstalled)
	}
	sources, err := c.Discover(dir)
	if err != nil {
		return summary, err
	}
	if len(sources) == 0 {
		obs.log("No disc images found (looked for %s)", strings.Join(Patterns, ", "))
		return summary, nil
	}
	obs.log("Total files to convert: %d", len(sources))

	ctx = services.WithOperation(ctx, "convert")
	sampler := logging.NewProgressSampler(10)
	for i, source := range sources {
		if ctx.Err() != nil {
			summary.Canceled = true
			obs.log("Conversion canceled")
			break
		}
		name := filepath.Base(source)
		if obs != nil && obs.File != nil {
			obs.File(i+1, len(sources), name)
		}
		sampler.Reset()
		res := c.convertOne(services.WithPath(ctx, source), source, obs, sampler)
		switch res.Outcome {
		case OutcomeConverted:
			summary.Converted++
		case OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}
	return summary, nil
}

func (c *Converter) convertOne(ctx context.Context, source string, obs *Observer, sampler *logging.ProgressSampler) FileResult {
	name := filepath.Base(source)
	output := OutputPath(source)
	res := FileResult{Source: source, Output: output}
	logger := logging.WithContext(ctx, c.logger)

	if exists, _ := afero.Exists(c.fs, output); exists {
		res.Outcome = OutcomeSkipped
		obs.log("Skipped: %s (CHD already exists)", name)
		return res
	}

	// Tracks are resolved up front, while the sheet is known to be intact.
	var tracks []discset.Reference
	if c.deleteOriginals && strings.EqualFold(filepath.Ext(source), ".cue") {
		refs, err := discset.ParseCue(c.fs, source)
		if err == nil {
			tracks = refs
		}
	}

	obs.log("Converting: %s", name)
	err := c.compressor.CreateCD(ctx, source, output, func(update chdman.ProgressUpdate) {
		if obs != nil && obs.Progress != nil {
			obs.Progress(name, update)
		}
		if sampler.ShouldLog(update.Percent, update.Phase) {
			logger.Debug("chdman progress",
				logging.String("phase", update.Phase),
				logging.Float64("percent", update.Percent))
		}
	})
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		obs.log("Failed: %s: %v", name, err)
		if !errors.Is(err, services.ErrCanceled) {
			logging.WarnWithContext(logger, "conversion failed", "chd_convert_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run chdman createcd manually to inspect the image"),
				logging.String(logging.FieldImpact, "image left uncompressed"))
		}
		return res
	}
	res.Outcome = OutcomeConverted
	obs.log("Converted to CHD: %s", filepath.Base(output))
	logger.Info("image converted", logging.String("output", output))

	if c.deleteOriginals {
		res.Deleted = c.removeOriginals(logger, source, tracks, obs)
	}
	return res
}

func (c *Converter) removeOriginals(logger *slog.Logger, source string, tracks []discset.Reference, obs *Observer) []string {
	targets := []string{source}
	for _, t := range tracks {
		targets = append(targets, t.Path)
	}
	var deleted []string
	for _, target := range targets {
		if err := c.fs.Remove(target); err != nil {
			obs.log("Could not delete %s: %v", filepath.Base(target), err)
			logging.WarnWithContext(logger, "original not deleted", "chd_delete_original_failed",
				logging.String("target", target),
				logging.Error(err),
				logging.String(logging.FieldImpact, "original kept next to the CHD"))
			continue
		}
		deleted = append(deleted, target)
	}
	if len(deleted) > 0 {
		obs.log("Deleted %d original file(s)", len(deleted))
	}
	return deleted
}
