package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directories for logs and persistent state.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Databases contains the two reference database roots, one per catalog family.
type Databases struct {
	CartridgeDir string `toml:"cartridge_dir"`
	DiscDir      string `toml:"disc_dir"`
}

// Verification contains the fuzzy matching thresholds used by the lower tiers.
type Verification struct {
	SizeToleranceBytes int64   `toml:"size_tolerance_bytes"`
	NameSizeSimilarity float64 `toml:"name_size_similarity"`
	NameOnlySimilarity float64 `toml:"name_only_similarity"`
}

// Scan contains folder scan behaviour.
type Scan struct {
	Workers         int  `toml:"workers"`
	IncludeArchives bool `toml:"include_archives"`
	VerifyCHD       bool `toml:"verify_chd"`
}

// Chdman contains configuration for the disc compression tool.
type Chdman struct {
	Binary          string `toml:"binary"`
	ConvertTimeout  int    `toml:"convert_timeout"`
	VerifyTimeout   int    `toml:"verify_timeout"`
	DeleteOriginals bool   `toml:"delete_originals"`
}

// DigestCache contains configuration for the persisted checksum cache.
type DigestCache struct {
	Enabled bool   `toml:"enabled"` // Default: false
	Path    string `toml:"path"`    // Default: ~/.cache/rommate/digests.json
}

// History contains configuration for the scan history database.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for rommate.
//
// Configuration sections by subsystem:
//   - Paths: log and state directories
//   - Databases: cartridge (No-Intro style) and disc (Redump style) DAT roots
//   - Verification: fuzzy match thresholds for the name based tiers
//   - Scan: worker count, archive handling, CHD verification
//   - Chdman: compression tool binary and timeouts
//   - DigestCache: persisted checksum cache
//   - History: scan history database
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	Databases    Databases    `toml:"databases"`
	Verification Verification `toml:"verification"`
	Scan         Scan         `toml:"scan"`
	Chdman       Chdman       `toml:"chdman"`
	DigestCache  DigestCache  `toml:"digest_cache"`
	History      History      `toml:"history"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rommate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories. Database roots are
// left alone: a missing database directory only means no catalogs are available.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.DigestCache.Enabled && strings.TrimSpace(c.DigestCache.Path) != "" {
		dir := filepath.Dir(c.DigestCache.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create digest cache directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the scan history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockDir returns the directory holding per-root scan locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// ChdmanBinary returns the configured chdman executable.
func (c *Config) ChdmanBinary() string {
	if strings.TrimSpace(c.Chdman.Binary) == "" {
		return defaultChdmanBinary
	}
	return c.Chdman.Binary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultDigestCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "rommate", "digests.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/rommate/digests.json"
	}
	return filepath.Join(home, ".cache", "rommate", "digests.json")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
