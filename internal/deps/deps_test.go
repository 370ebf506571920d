package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary", Optional: true},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if !results[1].Optional {
		t.Fatal("expected optional flag to carry through")
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestResolveChdmanPathPrefersExplicitPath(t *testing.T) {
	if got := ResolveChdmanPath("/opt/mame/chdman"); got != "/opt/mame/chdman" {
		t.Fatalf("expected explicit path, got %q", got)
	}
}

func TestResolveChdmanPathSearchesPATH(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, executableName("chdman"))
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	if got := ResolveChdmanPath("chdman"); got != stub {
		t.Fatalf("expected PATH lookup %q, got %q", stub, got)
	}
}

func TestResolveChdmanPathFallsBackToName(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if got := ResolveChdmanPath(""); got != executableName("chdman") {
		t.Fatalf("expected bare name fallback, got %q", got)
	}
}
