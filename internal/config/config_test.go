package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"rommate/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("ROMMATE_CHDMAN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "rommate")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	wantCart := filepath.Join(wantState, "databases", "no-intro")
	if cfg.Databases.CartridgeDir != wantCart {
		t.Fatalf("unexpected cartridge dir: got %q want %q", cfg.Databases.CartridgeDir, wantCart)
	}
	wantDisc := filepath.Join(wantState, "databases", "redump")
	if cfg.Databases.DiscDir != wantDisc {
		t.Fatalf("unexpected disc dir: got %q want %q", cfg.Databases.DiscDir, wantDisc)
	}
	if cfg.DigestCache.Path != filepath.Join(tempHome, ".cache", "rommate", "digests.json") {
		t.Fatalf("unexpected digest cache path: %q", cfg.DigestCache.Path)
	}
	if cfg.DigestCache.Enabled {
		t.Fatal("expected digest cache disabled by default")
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.Verification.SizeToleranceBytes != 512 {
		t.Fatalf("unexpected size tolerance: %d", cfg.Verification.SizeToleranceBytes)
	}
	if cfg.Verification.NameSizeSimilarity != 0.80 || cfg.Verification.NameOnlySimilarity != 0.70 {
		t.Fatalf("unexpected similarity thresholds: %+v", cfg.Verification)
	}
	if cfg.Scan.Workers != 1 {
		t.Fatalf("expected single worker default, got %d", cfg.Scan.Workers)
	}
	if cfg.ChdmanBinary() != "chdman" {
		t.Fatalf("unexpected chdman binary: %q", cfg.ChdmanBinary())
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ROMMATE_CHDMAN", "")

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"databases": map[string]any{
			"cartridge_dir": "~/dats/nointro",
			"disc_dir":      filepath.Join(tempHome, "dats", "redump"),
		},
		"verification": map[string]any{
			"size_tolerance_bytes": 1024,
			"name_size_similarity": 0.9,
		},
		"scan": map[string]any{
			"workers":          4,
			"include_archives": false,
		},
		"chdman": map[string]any{
			"binary": "/opt/mame/chdman",
		},
		"logging": map[string]any{
			"format": " JSON ",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Databases.CartridgeDir != filepath.Join(tempHome, "dats", "nointro") {
		t.Fatalf("expected tilde expansion, got %q", cfg.Databases.CartridgeDir)
	}
	if cfg.Verification.SizeToleranceBytes != 1024 {
		t.Fatalf("unexpected size tolerance: %d", cfg.Verification.SizeToleranceBytes)
	}
	if cfg.Verification.NameSizeSimilarity != 0.9 {
		t.Fatalf("unexpected name/size threshold: %v", cfg.Verification.NameSizeSimilarity)
	}
	if cfg.Verification.NameOnlySimilarity != 0.70 {
		t.Fatalf("expected untouched default for name-only threshold, got %v", cfg.Verification.NameOnlySimilarity)
	}
	if cfg.Scan.Workers != 4 || cfg.Scan.IncludeArchives {
		t.Fatalf("unexpected scan section: %+v", cfg.Scan)
	}
	if !cfg.Scan.VerifyCHD {
		t.Fatal("expected verify_chd default to survive partial section")
	}
	if cfg.ChdmanBinary() != "/opt/mame/chdman" {
		t.Fatalf("unexpected chdman binary: %q", cfg.ChdmanBinary())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %+v", cfg.Logging)
	}
}

func TestChdmanEnvironmentFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROMMATE_CHDMAN", "/usr/local/bin/chdman-git")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ChdmanBinary() != "/usr/local/bin/chdman-git" {
		t.Fatalf("expected env override, got %q", cfg.ChdmanBinary())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "negative tolerance",
			mutate: func(c *config.Config) { c.Verification.SizeToleranceBytes = -1 },
			want:   "size_tolerance_bytes",
		},
		{
			name:   "zero similarity",
			mutate: func(c *config.Config) { c.Verification.NameOnlySimilarity = 0 },
			want:   "name_only_similarity",
		},
		{
			name:   "similarity above one",
			mutate: func(c *config.Config) { c.Verification.NameSizeSimilarity = 1.5 },
			want:   "name_size_similarity",
		},
		{
			name:   "too many workers",
			mutate: func(c *config.Config) { c.Scan.Workers = 65 },
			want:   "scan.workers",
		},
		{
			name:   "negative verify timeout",
			mutate: func(c *config.Config) { c.Chdman.VerifyTimeout = -5 },
			want:   "verify_timeout",
		},
		{
			name:   "unknown log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesStateAndLogs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.DigestCache.Enabled = true
	cfg.DigestCache.Path = filepath.Join(base, "cache", "digests.json")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir, filepath.Dir(cfg.DigestCache.Path)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROMMATE_CHDMAN", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Scan.Workers != 1 || !cfg.Scan.VerifyCHD {
		t.Fatalf("unexpected sample scan section: %+v", cfg.Scan)
	}
}
