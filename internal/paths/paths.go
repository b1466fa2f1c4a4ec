// Package paths resolves the filesystem locations hginstall reads and writes.
//
// The package wraps github.com/adrg/xdg so that defaults follow the XDG Base
// Directory specification on Linux and the platform conventions elsewhere.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// AppName names the per-application config directory.
const AppName = "hginstall"

// ConfigHome returns the user's base config directory.
func ConfigHome() string {
	return xdg.ConfigHome
}

// ConfigDir returns the hginstall config directory.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultInstallDir returns the directory executables are installed into
// when no --dir flag or install_dir setting is given (~/.local/bin on Linux).
func DefaultInstallDir() string {
	return xdg.BinHome
}

// LockDir holds the per-target install locks, outside any install
// directory ($XDG_STATE_HOME/hginstall/locks on Linux).
func LockDir() string {
	return filepath.Join(xdg.StateHome, AppName, "locks")
}

// Reload re-reads the XDG environment variables. Tests call it after
// t.Setenv.
func Reload() {
	xdg.Reload()
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = xdg.Home
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
