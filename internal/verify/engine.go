package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"rommate/internal/catalog"
	"rommate/internal/checksum"
	"rommate/internal/config"
	"rommate/internal/discset"
	"rommate/internal/hackdetect"
	"rommate/internal/logging"
	"rommate/internal/romfile"
	"rommate/internal/services"
	"rommate/internal/systems"
)

// Policy holds the fuzzy matching thresholds.
type Policy struct {
	SizeTolerance      int64
	NameSizeSimilarity float64
	NameOnlySimilarity float64
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{SizeTolerance: 512, NameSizeSimilarity: 0.80, NameOnlySimilarity: 0.70}
}

// PolicyFromConfig builds a policy from the verification config section.
func PolicyFromConfig(v config.Verification) Policy {
	return Policy{
		SizeTolerance:      v.SizeToleranceBytes,
		NameSizeSimilarity: v.NameSizeSimilarity,
		NameOnlySimilarity: v.NameOnlySimilarity,
	}
}

// Engine verifies individual paths. It is safe for concurrent use.
type Engine struct {
	fs        afero.Fs
	catalogs  *catalog.Store
	digests   *checksum.Engine
	chd       discset.CHDVerifier
	policy    Policy
	archives  bool
	verifyCHD bool
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFS sets the filesystem (defaults to the OS filesystem).
func WithFS(fsys afero.Fs) Option {
	return func(e *Engine) {
		if fsys != nil {
			e.fs = fsys
		}
	}
}

// WithDigests supplies a shared digest engine.
func WithDigests(d *checksum.Engine) Option {
	return func(e *Engine) {
		if d != nil {
			e.digests = d
		}
	}
}

// WithPolicy overrides the matching thresholds.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithArchives toggles looking inside .zip/.7z/.rar files.
func WithArchives(enabled bool) Option {
	return func(e *Engine) { e.archives = enabled }
}

// WithCHDVerifier enables CHD checks through v. A nil verifier disables them.
func WithCHDVerifier(v discset.CHDVerifier) Option {
	return func(e *Engine) {
		e.chd = v
		e.verifyCHD = v != nil
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds an engine over the catalog store.
func NewEngine(store *catalog.Store, opts ...Option) *Engine {
	e := &Engine{
		catalogs: store,
		policy:   DefaultPolicy(),
		archives: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}
	if e.digests == nil {
		e.digests = checksum.NewEngine(checksum.WithLogger(e.logger))
	}
	e.logger = logging.NewComponentLogger(e.logger, "verify")
	return e
}

// Policy returns the thresholds in use.
func (e *Engine) Policy() Policy { return e.policy }

// IsCandidate reports whether the engine would consider name at all: a ROM
// extension, a disc set descriptor, or (when enabled) an archive.
func (e *Engine) IsCandidate(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cue", ".chd":
		return true
	}
	if romfile.IsArchive(name) {
		return e.archives
	}
	return systems.IsCandidate(name)
}

// Verify produces the verdict for path. It never returns an error: failures
// are reported as StatusError results.
func (e *Engine) Verify(ctx context.Context, path string) Result {
	res := Result{Path: path, Filename: filepath.Base(path)}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return e.verifyCue(res)
	case ".chd":
		return e.verifyCHDImage(ctx, res)
	}

	if romfile.IsArchive(path) {
		if !e.archives {
			return finish(res, StatusUnknown, "Unknown file type")
		}
		return e.verifyArchive(ctx, res)
	}

	system, ok := systems.Detect(res.Filename)
	if !ok {
		return finish(res, StatusUnknown, "Unknown file type")
	}
	res.System = system
	if hacked, done := e.checkHack(res, res.Filename); done {
		return hacked
	}
	cat := e.catalogs.Load(system)
	if cat.Empty() {
		return noDatabase(res)
	}
	src, err := romfile.Open(e.fs, path, nil)
	if err != nil {
		return e.readError(ctx, res, err)
	}
	return e.match(ctx, res, src, cat)
}

func (e *Engine) verifyArchive(ctx context.Context, res Result) Result {
	if hacked, done := e.checkHack(res, res.Filename); done {
		return hacked
	}
	src, err := romfile.Open(e.fs, res.Path, systems.IsCandidate)
	if errors.Is(err, romfile.ErrNoEntry) {
		return finish(res, StatusUnknown, "Archive contains no ROM")
	}
	if err != nil {
		return e.readError(ctx, res, err)
	}
	res.Entry = src.Inner()

	system, _ := systems.Detect(src.Name())
	res.System = system
	if hacked, done := e.checkHack(res, src.Name()); done {
		return hacked
	}
	cat := e.catalogs.Load(system)
	if cat.Empty() {
		return noDatabase(res)
	}
	return e.match(ctx, res, src, cat)
}

func (e *Engine) checkHack(res Result, name string) (Result, bool) {
	c := hackdetect.Classify(name)
	if !c.Modified {
		return res, false
	}
	res.HackCategory = c.Category
	res.HackConfidence = c.Confidence
	return finish(res, StatusHack, fmt.Sprintf("Modified dump: %s (%s confidence)", c.Category, c.Confidence)), true
}

func noDatabase(res Result) Result {
	return finish(res, StatusNoDatabase, fmt.Sprintf("No database available for %s", res.System.Label()))
}

func (e *Engine) readError(ctx context.Context, res Result, err error) Result {
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), "rom unreadable", "rom_unreadable",
		logging.String(logging.FieldPath, res.Path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check file permissions and disk health"),
		logging.String(logging.FieldImpact, "file reported as error"))
	return finish(res, StatusError, "Could not read ROM file")
}

func (e *Engine) verifyCue(res Result) Result {
	report := discset.CheckCue(e.fs, res.Path)
	for _, t := range report.Tracks {
		switch t.State {
		case discset.TrackFound:
			res.Details = append(res.Details, fmt.Sprintf("Found: %s (%.1f MB)", t.Name, float64(t.Size)/(1024*1024)))
		case discset.TrackEmpty:
			res.Details = append(res.Details, "Empty file: "+t.Name)
		default:
			res.Details = append(res.Details, "Missing: "+t.Name)
		}
	}
	if report.OK {
		return finish(res, StatusVerified, report.Message)
	}
	return finish(res, StatusError, report.Message)
}

func (e *Engine) verifyCHDImage(ctx context.Context, res Result) Result {
	if !e.verifyCHD {
		return finish(res, StatusUnknown, "CHD verification disabled")
	}
	report := discset.CheckCHD(ctx, e.chd, res.Path)
	switch report.State {
	case discset.CHDVerified:
		return finish(res, StatusVerified, report.Message)
	case discset.CHDUnavailable:
		return finish(res, StatusUnknown, report.Message)
	default:
		if errors.Is(report.Err, services.ErrCanceled) {
			return finish(res, StatusError, "Verification interrupted")
		}
		e.logger.Debug("chd verification failed", logging.String(logging.FieldPath, res.Path), logging.Error(report.Err))
		return finish(res, StatusError, report.Message)
	}
}

func finish(res Result, status Status, message string) Result {
	res.Status = status
	res.Message = message
	res.Confidence = status.Confidence()
	return res
}
