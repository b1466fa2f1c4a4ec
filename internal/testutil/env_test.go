package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/watchthelight/hginstall/internal/paths"
	"github.com/watchthelight/hginstall/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	t.Setenv("HGINSTALL_INSTALL_DIR", "/should/be/cleared")

	env := testutil.SetupTestEnv(t)

	if _, ok := os.LookupEnv("HGINSTALL_INSTALL_DIR"); ok {
		t.Error("HGINSTALL_INSTALL_DIR should be unset")
	}
	if got := os.Getenv("HOME"); got != env.Home {
		t.Errorf("HOME = %q, want %q", got, env.Home)
	}
	if got := paths.ConfigDir(); got != env.ConfigDir {
		t.Errorf("paths.ConfigDir() = %q, want %q", got, env.ConfigDir)
	}
	if got := paths.DefaultInstallDir(); got != env.BinDir {
		t.Errorf("paths.DefaultInstallDir() = %q, want %q", got, env.BinDir)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if resolved, _ := filepath.EvalSymlinks(env.Root); wd != env.Root && wd != resolved {
		t.Errorf("working directory = %q, want %q", wd, env.Root)
	}

	if info, err := os.Stat(env.ConfigDir); err != nil || !info.IsDir() {
		t.Errorf("config dir not created: %v", err)
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	var first, second string

	t.Run("first", func(t *testing.T) {
		first = testutil.SetupTestEnv(t).Root
	})
	t.Run("second", func(t *testing.T) {
		second = testutil.SetupTestEnv(t).Root
	})

	if first == second {
		t.Error("each call should get its own directory tree")
	}
}

func TestWriteConfig(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	path := env.WriteConfig(t, "install_dir: /opt/bin\n")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != "install_dir: /opt/bin\n" {
		t.Errorf("config content = %q", data)
	}
}
