package chdman_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rommate/internal/services"
	"rommate/internal/services/chdman"
)

type stubExecutor struct {
	lines  []string
	err    error
	create bool
	calls  int
	args   [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	s.calls++
	s.args = append(s.args, append([]string(nil), args...))
	for _, line := range s.lines {
		onLine(line)
	}
	if s.create {
		for i, arg := range args {
			if arg == "-o" && i+1 < len(args) {
				if err := os.WriteFile(args[i+1], []byte("MComprHD"), 0o644); err != nil {
					return err
				}
			}
		}
	}
	return s.err
}

func found(string) (string, error) { return "/usr/bin/chdman", nil }

func missing(string) (string, error) { return "", errors.New("not found") }

func TestCreateCDPassesArgumentsAndReportsProgress(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Game (Disc 1).cue")
	output := filepath.Join(dir, "Game (Disc 1).chd")
	exec := &stubExecutor{create: true, lines: []string{
		"chdman - MAME Compressed Hunks of Data (CHD) manager 0.262",
		"Compressing, 12.5% complete... (ratio=55.0%)",
		"Compressing, 100.0% complete... (ratio=48.1%)",
	}}
	client, err := chdman.New("chdman", 0, 0, chdman.WithExecutor(exec), chdman.WithLookPath(found))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	var updates []chdman.ProgressUpdate
	if err := client.CreateCD(context.Background(), input, output, func(u chdman.ProgressUpdate) {
		updates = append(updates, u)
	}); err != nil {
		t.Fatalf("CreateCD returned error: %v", err)
	}

	want := []string{"createcd", "-i", input, "-o", output}
	if strings.Join(exec.args[0], "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected args: got %v want %v", exec.args[0], want)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}
	if updates[1].Percent != 100 || updates[1].Ratio != 48.1 {
		t.Fatalf("unexpected final update: %+v", updates[1])
	}
}

func TestCreateCDFailureSurfacesOutputAndRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.chd")
	longLine := "Error: " + strings.Repeat("x", 400)
	exec := &stubExecutor{create: true, err: errors.New("exit status 1"), lines: []string{longLine}}
	client, _ := chdman.New("chdman", 0, 0, chdman.WithExecutor(exec), chdman.WithLookPath(found))

	err := client.CreateCD(context.Background(), filepath.Join(dir, "in.cue"), output, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "Error: xxx") {
		t.Fatalf("expected tool output in error, got %v", err)
	}
	if strings.Contains(err.Error(), strings.Repeat("x", 250)) {
		t.Fatalf("expected output to be truncated, got %d bytes", len(err.Error()))
	}
	if _, statErr := os.Stat(output); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected partial output removed, stat err=%v", statErr)
	}
}

func TestCreateCDRequiresOutputFile(t *testing.T) {
	dir := t.TempDir()
	client, _ := chdman.New("chdman", 0, 0, chdman.WithExecutor(&stubExecutor{}), chdman.WithLookPath(found))
	err := client.CreateCD(context.Background(), filepath.Join(dir, "in.iso"), filepath.Join(dir, "out.chd"), nil)
	if err == nil || !strings.Contains(err.Error(), "no output file") {
		t.Fatalf("expected missing output error, got %v", err)
	}
}

func TestMissingBinaryReturnsErrNotInstalled(t *testing.T) {
	exec := &stubExecutor{}
	client, _ := chdman.New("chdman", 0, 0, chdman.WithExecutor(exec), chdman.WithLookPath(missing))
	if client.Available() {
		t.Fatal("expected binary to be unavailable")
	}
	if err := client.Verify(context.Background(), "/roms/game.chd"); !errors.Is(err, chdman.ErrNotInstalled) {
		t.Fatalf("expected ErrNotInstalled, got %v", err)
	}
	if exec.calls != 0 {
		t.Fatalf("executor should not run when binary is missing")
	}
}

func TestVerifyArgumentsAndFailure(t *testing.T) {
	exec := &stubExecutor{lines: []string{"Verifying, 50.0% complete...", "Error: Raw SHA1 mismatch"}, err: errors.New("exit status 1")}
	client, _ := chdman.New("chdman", 0, 30, chdman.WithExecutor(exec), chdman.WithLookPath(found))
	err := client.Verify(context.Background(), "/roms/game.chd")
	if err == nil {
		t.Fatal("expected verify failure")
	}
	if !strings.Contains(err.Error(), "SHA1 mismatch") {
		t.Fatalf("expected tool message, got %v", err)
	}
	if strings.Contains(err.Error(), "50.0%") {
		t.Fatalf("progress lines should not be part of the error: %v", err)
	}
	if got := strings.Join(exec.args[0], " "); got != "verify -i /roms/game.chd" {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestVerifyDetectsReportedFailureWithZeroExit(t *testing.T) {
	exec := &stubExecutor{lines: []string{"Error: verification failed: raw SHA1 incorrect"}}
	client, _ := chdman.New("chdman", 0, 0, chdman.WithExecutor(exec), chdman.WithLookPath(found))
	if err := client.Verify(context.Background(), "/roms/game.chd"); err == nil {
		t.Fatal("expected failure when chdman reports verification failed")
	}
	ok := &stubExecutor{lines: []string{"Verifying, 100.0% complete...", "Verification successful!"}}
	client, _ = chdman.New("chdman", 0, 0, chdman.WithExecutor(ok), chdman.WithLookPath(found))
	if err := client.Verify(context.Background(), "/roms/game.chd"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := chdman.New("  ", 0, 0); err == nil {
		t.Fatal("expected error for blank binary")
	}
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line    string
		ok      bool
		phase   string
		percent float64
		ratio   float64
	}{
		{"Compressing, 45.2% complete... (ratio=40.5%)", true, "Compressing", 45.2, 40.5},
		{"Verifying, 3% complete...", true, "Verifying", 3, -1},
		{"  Compressing, 100.0% complete... (ratio=12.0%)  ", true, "Compressing", 100, 12},
		{"Compression complete ... final ratio = 48.1%", false, "", 0, 0},
		{"Input file:   game.cue", false, "", 0, 0},
		{"", false, "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := chdman.ParseProgress(tt.line)
			if ok != tt.ok {
				t.Fatalf("ParseProgress(%q) ok=%v want %v", tt.line, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Phase != tt.phase || got.Percent != tt.percent || got.Ratio != tt.ratio {
				t.Fatalf("ParseProgress(%q) = %+v", tt.line, got)
			}
		})
	}
}
