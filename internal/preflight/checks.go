package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"rommate/internal/config"
	"rommate/internal/deps"
	"rommate/internal/systems"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// Coverage describes one catalog family root and which systems have a DAT.
type Coverage struct {
	Family  systems.Family
	Root    string
	Exists  bool
	Present []systems.Profile
	Missing []systems.Profile
}

// Result summarizes the coverage as a pass/fail line. A root without any DAT
// fails; partial coverage passes with the count in the detail.
func (c Coverage) Result() Result {
	name := fmt.Sprintf("Databases (%s)", c.Family)
	switch {
	case !c.Exists:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", c.Root)}
	case len(c.Present) == 0:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no .dat files for any system)", c.Root)}
	default:
		total := len(c.Present) + len(c.Missing)
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d/%d systems)", c.Root, len(c.Present), total)}
	}
}

// MissingKeys lists the system keys without a catalog.
func (c Coverage) MissingKeys() []string {
	keys := make([]string, len(c.Missing))
	for i, p := range c.Missing {
		keys[i] = p.Key
	}
	return keys
}

// CheckDatabases reports, per catalog family, which systems have a database
// file under the configured root. A nil fs means the OS filesystem.
func CheckDatabases(fsys afero.Fs, cfg *config.Config) []Coverage {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	roots := map[systems.Family]string{
		systems.FamilyCartridge: cfg.Databases.CartridgeDir,
		systems.FamilyDisc:      cfg.Databases.DiscDir,
	}
	out := make([]Coverage, 0, len(roots))
	for _, family := range []systems.Family{systems.FamilyCartridge, systems.FamilyDisc} {
		cov := Coverage{Family: family, Root: roots[family]}
		if ok, _ := afero.DirExists(fsys, cov.Root); ok {
			cov.Exists = true
		}
		for _, p := range systems.All() {
			if p.Family != family {
				continue
			}
			if cov.Exists && hasFile(fsys, cov.Root, p.DatabaseFile()) {
				cov.Present = append(cov.Present, p)
			} else {
				cov.Missing = append(cov.Missing, p)
			}
		}
		out = append(out, cov)
	}
	return out
}

func hasFile(fsys afero.Fs, dir, name string) bool {
	info, err := fsys.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}

// CheckSystemDeps evaluates the external tools rommate can use. chdman is
// optional: without it CHD checks report unknown and conversion is refused.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "chdman",
			Command:     deps.ResolveChdmanPath(cfg.ChdmanBinary()),
			Description: "CHD verification and disc image conversion",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
