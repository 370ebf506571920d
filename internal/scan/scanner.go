package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"rommate/internal/discset"
	"rommate/internal/logging"
	"rommate/internal/services"
	"rommate/internal/verify"
)

// ErrScanInProgress rejects a second concurrent Scan on the same Scanner.
var ErrScanInProgress = errors.New("scan already in progress")

// Verifier is the per-file decision procedure. *verify.Engine satisfies it.
type Verifier interface {
	Verify(ctx context.Context, path string) verify.Result
	IsCandidate(name string) bool
}

// Scanner drives batch verification of a folder.
type Scanner struct {
	fs       afero.Fs
	verifier Verifier
	workers  int
	logger   *slog.Logger
	running  atomic.Bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithFS sets the filesystem (defaults to the OS filesystem).
func WithFS(fsys afero.Fs) Option {
	return func(s *Scanner) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// WithWorkers bounds parallel verification; 1 or less is sequential.
func WithWorkers(n int) Option {
	return func(s *Scanner) { s.workers = n }
}

// WithLogger sets the scanner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// New creates a scanner around verifier.
func New(verifier Verifier, opts ...Option) *Scanner {
	s := &Scanner{verifier: verifier, workers: 1}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.workers < 1 {
		s.workers = 1
	}
	s.logger = logging.NewComponentLogger(s.logger, "scan")
	return s
}

// Discover walks root once and returns the candidates in walk order together
// with the CUE-referenced tracks that were removed from them.
func (s *Scanner) Discover(ctx context.Context, root string) ([]string, []string, error) {
	logger := logging.WithContext(ctx, s.logger)
	var found, sheets []string
	err := afero.Walk(s.fs, root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logging.WarnWithContext(logger, "skipping unreadable path", "scan_walk_error",
				logging.String(logging.FieldPath, path),
				logging.Error(walkErr),
				logging.String(logging.FieldImpact, "files below this path are not verified"))
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.EqualFold(filepath.Ext(name), ".cue") {
			sheets = append(sheets, path)
		}
		if s.verifier.IsCandidate(name) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, err)
	}

	claimed := make(map[string]struct{})
	for _, sheet := range sheets {
		refs, err := discset.ParseCue(s.fs, sheet)
		if err != nil {
			logger.Debug("cue sheet unreadable", logging.String(logging.FieldPath, sheet), logging.Error(err))
			continue
		}
		for _, ref := range refs {
			claimed[filepath.Clean(ref.Path)] = struct{}{}
		}
	}

	candidates := make([]string, 0, len(found))
	var excluded []string
	for _, path := range found {
		if _, ok := claimed[filepath.Clean(path)]; ok {
			excluded = append(excluded, path)
			continue
		}
		candidates = append(candidates, path)
	}
	return candidates, excluded, nil
}

// Scan verifies every candidate below root. A nil observer or token is
// allowed. The aggregate is returned even when the scan is canceled; only an
// unusable root or an overlapping scan produce an error.
func (s *Scanner) Scan(ctx context.Context, root string, obs Observer, token *CancelToken) (*Aggregate, error) {
	if strings.TrimSpace(root) == "" {
		return nil, services.Wrap(services.ErrValidation, "scan", "start", "root directory required", nil)
	}
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "scan", "start", root, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "scan", "start", root+" is not a directory", nil)
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	if obs == nil {
		obs = ObserverFuncs{}
	}
	ctx = services.WithOperation(ctx, "scan")
	logger := logging.WithContext(ctx, s.logger)

	agg := newAggregate(root)
	candidates, excluded, err := s.Discover(ctx, root)
	if err != nil {
		return nil, err
	}
	agg.Candidates = len(candidates)
	agg.Excluded = excluded

	if len(excluded) > 0 {
		obs.OnLog(fmt.Sprintf("Skipping %d track file(s) referenced by CUE sheets", len(excluded)))
	}
	if len(candidates) == 0 {
		obs.OnLog("No ROM files found in folder")
		agg.Finished = time.Now()
		return agg, nil
	}
	obs.OnLog(fmt.Sprintf("Found %d file(s) to verify", len(candidates)))
	logger.Info("scan started",
		logging.String(logging.FieldPath, root),
		logging.Int("candidates", len(candidates)),
		logging.Int("excluded_tracks", len(excluded)),
		logging.Int("workers", s.workers))

	if s.workers > 1 {
		s.runParallel(ctx, candidates, agg, obs, token)
	} else {
		s.runSequential(ctx, candidates, agg, obs, token)
	}
	agg.Finished = time.Now()

	logger.Info("scan finished",
		logging.Int("processed", agg.Processed()),
		logging.Int("verified", agg.Verified),
		logging.Int("attention", agg.Attention),
		logging.Int("failed", agg.Failed),
		logging.Bool("canceled", agg.Canceled),
		logging.Duration("duration", agg.Duration()))
	return agg, nil
}

func stopRequested(ctx context.Context, token *CancelToken) bool {
	return token.Canceled() || ctx.Err() != nil
}

func (s *Scanner) runSequential(ctx context.Context, candidates []string, agg *Aggregate, obs Observer, token *CancelToken) {
	total := len(candidates)
	for i, path := range candidates {
		if stopRequested(ctx, token) {
			agg.Canceled = true
			obs.OnLog("Scan canceled")
			return
		}
		obs.OnProgress(i+1, total, filepath.Base(path))
		res := s.verifier.Verify(ctx, path)
		agg.add(res)
		obs.OnResult(i, res)
		obs.OnLog(FormatLine(res))
	}
}

// runParallel verifies with a bounded pool. Results are delivered to the
// observer and the aggregate in discovery order.
func (s *Scanner) runParallel(ctx context.Context, candidates []string, agg *Aggregate, obs Observer, token *CancelToken) {
	total := len(candidates)
	results := make([]verify.Result, total)
	done := make([]bool, total)
	next := 0
	var mu sync.Mutex

	flush := func() {
		for next < total && done[next] {
			agg.add(results[next])
			obs.OnResult(next, results[next])
			obs.OnLog(FormatLine(results[next]))
			next++
		}
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, path := range candidates {
		if stopRequested(ctx, token) {
			mu.Lock()
			agg.Canceled = true
			mu.Unlock()
			break
		}
		mu.Lock()
		obs.OnProgress(i+1, total, filepath.Base(path))
		mu.Unlock()
		g.Go(func() error {
			res := s.verifier.Verify(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			done[i] = true
			flush()
			return nil
		})
	}
	_ = g.Wait()
	if agg.Canceled {
		obs.OnLog("Scan canceled")
	}
}

// FormatLine renders the human log line for one result.
func FormatLine(r verify.Result) string {
	var b strings.Builder
	b.WriteString(marker(r.Status))
	b.WriteByte(' ')
	b.WriteString(r.DisplayName())
	b.WriteString(" - ")
	b.WriteString(r.Message)
	if r.Game != "" {
		b.WriteString(" [")
		b.WriteString(r.Game)
		if extra := len(r.Matches) - 1; extra > 0 {
			fmt.Fprintf(&b, " +%d", extra)
		}
		b.WriteByte(']')
	}
	if r.Status == verify.StatusUnknown && r.CRC32 != "" {
		b.WriteString(" crc32=")
		b.WriteString(r.CRC32)
	}
	return b.String()
}

func marker(s verify.Status) string {
	switch s.Group() {
	case verify.GroupVerified:
		return "[ok]"
	case verify.GroupFailed:
		return "[!!]"
	default:
		return "[??]"
	}
}
