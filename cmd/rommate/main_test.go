package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"rommate/internal/digestcache"
	"rommate/internal/services"
	"rommate/internal/testsupport"
	"rommate/internal/verify"
)

type cliTestEnv struct {
	base       string
	configPath string
	cartDir    string
	discDir    string
	stateDir   string
}

func setupCLITestEnv(t *testing.T, digestCache bool) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("ROMMATE_CHDMAN", "")
	env := &cliTestEnv{
		base:       base,
		configPath: filepath.Join(base, "config.toml"),
		cartDir:    filepath.Join(base, "databases", "no-intro"),
		discDir:    filepath.Join(base, "databases", "redump"),
		stateDir:   filepath.Join(base, "state"),
	}
	payload := map[string]any{
		"paths": map[string]any{
			"log_dir":   filepath.Join(base, "logs"),
			"state_dir": env.stateDir,
		},
		"databases": map[string]any{
			"cartridge_dir": env.cartDir,
			"disc_dir":      env.discDir,
		},
		"digest_cache": map[string]any{
			"enabled": digestCache,
			"path":    filepath.Join(base, "cache", "digests.json"),
		},
		"logging": map[string]any{
			"level": "error",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(env.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// seedLibrary writes a GBA catalog with one game and a folder holding that
// game plus one unknown ROM.
func seedLibrary(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	fs := afero.NewOsFs()
	good := testsupport.Pattern(4096, 3)
	testsupport.WriteDAT(t, fs, filepath.Join(env.cartDir, "gba.dat"), testsupport.Game{
		Name: "Sample Quest (USA)",
		ROMs: []testsupport.ROM{testsupport.ROMFor(t, "Sample Quest (USA).gba", good)},
	})
	roms := filepath.Join(env.base, "roms")
	testsupport.WriteFile(t, fs, filepath.Join(roms, "Sample Quest (USA).gba"), good)
	testsupport.WriteFile(t, fs, filepath.Join(roms, "Zzyzx Mystery.gba"), testsupport.Pattern(2048, 99))
	return roms
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, false)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cartDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestScanJSONAndHistory(t *testing.T) {
	env := setupCLITestEnv(t, false)
	roms := seedLibrary(t, env)

	out, _, err := runCLI(t, []string{"scan", roms, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var report scanReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode scan report: %v\n%s", err, out)
	}
	if report.Candidates != 2 || report.Verified != 1 || report.Attention != 1 {
		t.Fatalf("unexpected report totals: %+v", report)
	}
	if report.Results[0].Status != verify.StatusVerified || report.Results[0].Game != "Sample Quest (USA)" {
		t.Fatalf("unexpected first result: %+v", report.Results[0])
	}
	if report.Results[1].Status != verify.StatusUnknown {
		t.Fatalf("unexpected second result: %+v", report.Results[1])
	}
	if report.ScanID == "" {
		t.Fatal("expected scan to be recorded")
	}

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, report.ScanID[:8])
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"history", "show", report.ScanID[:8], "--status", "unknown"}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "Zzyzx Mystery.gba")
	if strings.Contains(out, "Sample Quest (USA).gba -") {
		t.Fatalf("status filter ignored: %s", out)
	}

	out, _, err = runCLI(t, []string{"history", "remove", report.ScanID}, env.configPath)
	if err != nil {
		t.Fatalf("history remove: %v", err)
	}
	requireContains(t, out, "Removed scan")
	out, _, _ = runCLI(t, []string{"history", "list"}, env.configPath)
	requireContains(t, out, "No scans recorded")
}

func TestScanConsoleOutputWithoutHistory(t *testing.T) {
	env := setupCLITestEnv(t, false)
	roms := seedLibrary(t, env)

	out, errOut, err := runCLI(t, []string{"scan", roms, "--no-history", "--workers", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "[ok] Sample Quest (USA).gba - Verified Good Dump")
	requireContains(t, out, "[??] Zzyzx Mystery.gba - Unknown ROM (not in database)")
	requireContains(t, out, "Verified: 1")
	requireContains(t, errOut, "Found 2 file(s) to verify")
	requireContains(t, errOut, "Databases (disc)")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No scans recorded")
}

func TestScanMissingFolder(t *testing.T) {
	env := setupCLITestEnv(t, false)
	_, _, err := runCLI(t, []string{"scan", filepath.Join(env.base, "nope"), "--no-history"}, env.configPath)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if exitCode(err) != services.ExitNotFound {
		t.Fatalf("unexpected exit code %d", exitCode(err))
	}
}

func TestVerifyCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t, false)
	roms := seedLibrary(t, env)
	notes := filepath.Join(roms, "notes.txt")
	testsupport.WriteFile(t, afero.NewOsFs(), notes, []byte("hello"))

	out, _, err := runCLI(t, []string{"verify", "--json", filepath.Join(roms, "Sample Quest (USA).gba"), notes}, env.configPath)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	var results []verify.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(results) != 2 || results[0].Status != verify.StatusVerified || results[1].Message != "Unknown file type" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestVerifyCommandReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t, false)
	cue := filepath.Join(env.base, "discs", "Game.cue")
	testsupport.WriteFile(t, afero.NewOsFs(), cue, []byte("FILE \"Game.bin\" BINARY\n"))

	out, _, err := runCLI(t, []string{"verify", cue}, env.configPath)
	var problem *verifyProblemError
	if !errors.As(err, &problem) || exitCode(err) != services.ExitVerifyProblem {
		t.Fatalf("expected verify problem, got %v", err)
	}
	requireContains(t, out, "Missing: Game.bin")
}

func TestFixHeaderCommand(t *testing.T) {
	env := setupCLITestEnv(t, false)
	fs := afero.NewOsFs()
	path := filepath.Join(env.base, "roms", "Game.sfc")
	data := append(bytes.Repeat([]byte{0xEE}, 512), testsupport.Pattern(2048, 5)...)
	testsupport.WriteFile(t, fs, path, data)

	out, _, err := runCLI(t, []string{"fix-header", path}, env.configPath)
	if err != nil {
		t.Fatalf("fix-header: %v", err)
	}
	requireContains(t, out, "Removed 512-byte")
	stripped, err := os.ReadFile(filepath.Join(env.base, "roms", "headerless", "Game.sfc"))
	if err != nil {
		t.Fatalf("read stripped copy: %v", err)
	}
	if !bytes.Equal(stripped, data[512:]) {
		t.Fatal("stripped copy does not match payload")
	}

	clean := filepath.Join(env.base, "roms", "Clean.sfc")
	testsupport.WriteFile(t, fs, clean, testsupport.Pattern(2048, 6))
	out, _, err = runCLI(t, []string{"fix-header", clean}, env.configPath)
	if err != nil {
		t.Fatalf("fix-header clean: %v", err)
	}
	requireContains(t, out, "No external header detected")
}

func TestPlaylistCommand(t *testing.T) {
	env := setupCLITestEnv(t, false)
	fs := afero.NewOsFs()
	dir := filepath.Join(env.base, "psx")
	for _, name := range []string{"Epic (USA) (Disc 1).cue", "Epic (USA) (Disc 2).cue", "Single (USA).cue"} {
		testsupport.WriteFile(t, fs, filepath.Join(dir, name), []byte("FILE \"x.bin\" BINARY\n"))
	}

	out, _, err := runCLI(t, []string{"playlist", dir}, env.configPath)
	if err != nil {
		t.Fatalf("playlist: %v", err)
	}
	requireContains(t, out, "Created: 1")
	data, err := os.ReadFile(filepath.Join(dir, "Epic (USA).m3u"))
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	if string(data) != "Epic (USA) (Disc 1).cue\nEpic (USA) (Disc 2).cue\n" {
		t.Fatalf("unexpected playlist: %q", data)
	}

	if _, _, err := runCLI(t, []string{"playlist", dir, "--format", "zip"}, env.configPath); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConvertThenVerifyCHD(t *testing.T) {
	env := setupCLITestEnv(t, false)
	t.Setenv("ROMMATE_CHDMAN", testsupport.StubChdman(t, filepath.Join(env.base, "bin")))
	fs := afero.NewOsFs()
	dir := filepath.Join(env.base, "discs")
	testsupport.WriteFile(t, fs, filepath.Join(dir, "Game (USA).cue"), []byte("FILE \"Game (USA).bin\" BINARY\n"))
	testsupport.WriteFile(t, fs, filepath.Join(dir, "Game (USA).bin"), testsupport.Pattern(4096, 1))

	out, _, err := runCLI(t, []string{"convert", dir, "--delete-originals"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	requireContains(t, out, "[1/1] Game (USA).cue")
	requireContains(t, out, "Converted: 1")
	chd := filepath.Join(dir, "Game (USA).chd")
	if _, err := os.Stat(chd); err != nil {
		t.Fatalf("expected CHD output: %v", err)
	}
	for _, name := range []string{"Game (USA).cue", "Game (USA).bin"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err=%v", name, err)
		}
	}

	out, _, err = runCLI(t, []string{"verify", chd}, env.configPath)
	if err != nil {
		t.Fatalf("verify chd: %v", err)
	}
	requireContains(t, out, "[ok] Game (USA).chd - Verified OK")

	corrupt := filepath.Join(dir, "corrupt.chd")
	testsupport.WriteFile(t, fs, corrupt, []byte("MComprHD"))
	out, _, err = runCLI(t, []string{"verify", corrupt}, env.configPath)
	if exitCode(err) != services.ExitVerifyProblem {
		t.Fatalf("expected verify problem exit, got %v", err)
	}
	requireContains(t, out, "Verification failed")
}

func TestConvertWithoutChdman(t *testing.T) {
	env := setupCLITestEnv(t, false)
	t.Setenv("ROMMATE_CHDMAN", filepath.Join(env.base, "missing", "chdman"))
	dir := filepath.Join(env.base, "discs")
	testsupport.WriteFile(t, afero.NewOsFs(), filepath.Join(dir, "Game.iso"), testsupport.Pattern(2048, 2))

	_, _, err := runCLI(t, []string{"convert", dir}, env.configPath)
	if exitCode(err) != services.ExitExternalTool {
		t.Fatalf("expected external tool exit, got %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	disabled := setupCLITestEnv(t, false)
	if _, _, err := runCLI(t, []string{"cache", "list"}, disabled.configPath); !errors.Is(err, errCacheDisabled) {
		t.Fatalf("expected disabled cache error, got %v", err)
	}

	env := setupCLITestEnv(t, true)
	roms := seedLibrary(t, env)
	if _, _, err := runCLI(t, []string{"scan", roms, "--no-history"}, env.configPath); err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, _, err := runCLI(t, []string{"cache", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	var entries []digestcache.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(entries) == 0 {
		t.Fatal("expected cached digests after scan")
	}

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Cleared")
	out, _, _ = runCLI(t, []string{"cache", "list"}, env.configPath)
	requireContains(t, out, "empty")
}

func TestDoctorReportsMissingDiscDatabases(t *testing.T) {
	env := setupCLITestEnv(t, false)
	seedLibrary(t, env)

	out, _, err := runCLI(t, []string{"doctor", "--verbose"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail without disc databases")
	}
	requireContains(t, out, "Databases (cartridge)")
	requireContains(t, out, "1/")
	requireContains(t, out, "chdman")
	requireContains(t, out, "No disc database for")
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, services.ExitOK},
		{&verifyProblemError{failed: 2}, services.ExitVerifyProblem},
		{services.Wrap(services.ErrCanceled, "scan", "run", "", nil), services.ExitCanceled},
		{services.Wrap(services.ErrValidation, "playlist", "format", "", nil), services.ExitUsage},
		{errors.New("boom"), services.ExitFailure},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
