// Package testutil provides utilities for testing hginstall in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/watchthelight/hginstall/internal/paths"
)

// Env describes the isolated directories created by SetupTestEnv.
type Env struct {
	Root      string
	Home      string
	ConfigDir string // $XDG_CONFIG_HOME/hginstall
	BinDir    string // $XDG_BIN_HOME
}

// SetupTestEnv points HOME and the XDG directories at a fresh temp tree and
// clears HGINSTALL_* overrides, so tests never read the user's config or
// write into their bin directory. The working directory also moves into the
// tree, since ./config.yaml is searched too.
//
// Cleanup is automatic.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	root := t.TempDir()
	env := &Env{
		Root:      root,
		Home:      filepath.Join(root, "home"),
		ConfigDir: filepath.Join(root, "config", paths.AppName),
		BinDir:    filepath.Join(root, "bin"),
	}

	// registered first so it runs after the env vars are restored
	t.Cleanup(paths.Reload)

	t.Setenv("HOME", env.Home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_BIN_HOME", env.BinDir)
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "HGINSTALL_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	paths.Reload()

	for _, dir := range []string{env.Home, env.ConfigDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	t.Chdir(root)
	return env
}

// WriteConfig writes content to the isolated config.yaml and returns its path.
func (e *Env) WriteConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(e.ConfigDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}
