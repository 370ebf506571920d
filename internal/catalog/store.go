package catalog

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	"rommate/internal/logging"
	"rommate/internal/systems"
)

// Store resolves and caches catalogs. It is safe for concurrent use.
type Store struct {
	fs           afero.Fs
	cartridgeDir string
	discDir      string
	logger       *slog.Logger

	mu    sync.Mutex
	cells map[systems.System]*cell
	loads atomic.Int64
}

type cell struct {
	once sync.Once
	cat  *Catalog
}

// NewStore creates a store reading DATs from the two family roots.
func NewStore(fsys afero.Fs, cartridgeDir, discDir string, logger *slog.Logger) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Store{
		fs:           fsys,
		cartridgeDir: cartridgeDir,
		discDir:      discDir,
		logger:       logging.NewComponentLogger(logger, "catalog"),
		cells:        make(map[systems.System]*cell),
	}
}

// Path returns the DAT file backing system.
func (s *Store) Path(system systems.System) string {
	p := system.Profile()
	dir := s.cartridgeDir
	if p.Family == systems.FamilyDisc {
		dir = s.discDir
	}
	return filepath.Join(dir, p.DatabaseFile())
}

// Load returns the catalog for system, parsing it on first use. A missing DAT
// yields an empty catalog; so does a malformed one, after a warning. The
// returned catalog is never nil and is shared by every caller.
func (s *Store) Load(system systems.System) *Catalog {
	s.mu.Lock()
	c, ok := s.cells[system]
	if !ok {
		c = &cell{}
		s.cells[system] = c
	}
	s.mu.Unlock()

	c.once.Do(func() {
		c.cat = s.read(system)
	})
	return c.cat
}

// Loads reports how many DAT reads have been attempted.
func (s *Store) Loads() int64 {
	return s.loads.Load()
}

// Exists reports whether a DAT file is present for system.
func (s *Store) Exists(system systems.System) bool {
	info, err := s.fs.Stat(s.Path(system))
	return err == nil && !info.IsDir()
}

func (s *Store) read(system systems.System) *Catalog {
	s.loads.Add(1)
	path := s.Path(system)
	logger := s.logger.With(logging.String(logging.FieldSystem, system.String()), logging.String(logging.FieldPath, path))

	file, err := s.fs.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(logger, "catalog unreadable", "catalog_unreadable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the database directory"),
				logging.String(logging.FieldImpact, "system reported as having no database"))
		} else {
			logger.Debug("no catalog for system")
		}
		return newCatalog(system, path)
	}
	defer file.Close()

	cat, err := Parse(file, system, path)
	if err != nil {
		logging.WarnWithContext(logger, "catalog malformed", "catalog_malformed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "replace the DAT file with a fresh download"),
			logging.String(logging.FieldImpact, "system reported as having no database"))
		return newCatalog(system, path)
	}
	logger.Debug("catalog loaded",
		logging.Int("entries", cat.Len()),
		logging.String("dat_name", cat.Name),
		logging.String("dat_version", cat.Version))
	return cat
}
