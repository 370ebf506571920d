package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"rommate/internal/config"
)

// ConfigOption customizes the configuration built by NewConfig.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig returns defaults rooted in a per-test temp directory: logs,
// state, both database roots and the digest cache path all live below it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Databases.CartridgeDir = filepath.Join(base, "databases", "no-intro")
	cfg.Databases.DiscDir = filepath.Join(base, "databases", "redump")
	cfg.DigestCache.Path = filepath.Join(base, "cache", "digests.json")

	b := &configBuilder{t: t, baseDir: base, cfg: &cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b.cfg
}

// chdmanStub mimics the two chdman subcommands rommate runs. createcd writes
// a small CHD-looking file to the -o path after one progress line; verify
// fails for any input whose name contains "corrupt".
const chdmanStub = `#!/bin/sh
cmd="$1"
shift
in=""
out=""
while [ $# -gt 0 ]; do
	case "$1" in
	-i) shift; in="$1" ;;
	-o) shift; out="$1" ;;
	esac
	shift
done
case "$cmd" in
createcd)
	echo "Compressing, 50.0% complete... (ratio=40.0%)" 1>&2
	printf 'MComprHD' > "$out"
	;;
verify)
	case "$in" in
	*corrupt*) echo "Error: verification failed" 1>&2; exit 1 ;;
	esac
	echo "Overall SHA1 verification successful!"
	;;
esac
exit 0
`

// StubChdman writes the chdman stub into dir and returns its path.
func StubChdman(t testing.TB, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	path := filepath.Join(dir, "chdman")
	if err := os.WriteFile(path, []byte(chdmanStub), 0o755); err != nil {
		t.Fatalf("write chdman stub: %v", err)
	}
	return path
}

// WithStubbedBinaries puts stub executables first on PATH. chdman gets the
// scripted stub; any other name exits 0. With no names, chdman is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"chdman"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if name == "chdman" {
				StubChdman(b.t, binDir)
				continue
			}
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
