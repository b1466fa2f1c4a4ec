package binary

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/watchthelight/hginstall/internal/errors"
	"github.com/watchthelight/hginstall/internal/platform"
	"github.com/watchthelight/hginstall/internal/release"
)

// failingDetector is a platform.Detector that always fails.
type failingDetector struct {
	err error
}

func (d *failingDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return nil, d.err
}

func defaultTable(t *testing.T) *release.Table {
	t.Helper()
	table, err := release.Default(context.Background())
	if err != nil {
		t.Fatalf("failed to load default table: %v", err)
	}
	return table
}

func TestNewManager(t *testing.T) {
	table := defaultTable(t)
	_, keyringPath := newTestEntity(t, t.TempDir())

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid_config",
			config: Config{Table: table, InstallDir: "/tmp/bin"},
		},
		{
			name:   "with_keyring",
			config: Config{Table: table, KeyringPath: keyringPath},
		},
		{
			name:    "missing_table",
			config:  Config{InstallDir: "/tmp/bin"},
			wantErr: true,
		},
		{
			name:    "missing_keyring_file",
			config:  Config{Table: table, KeyringPath: filepath.Join(t.TempDir(), "missing.asc")},
			wantErr: true,
		},
		{
			name:    "missing_trusted_root",
			config:  Config{Table: table, TrustedRootPath: filepath.Join(t.TempDir(), "missing.json")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewManager(tt.config)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if manager == nil {
				t.Fatal("expected non-nil manager")
			}
			if manager.fetchTimeout != DefaultFetchTimeout {
				t.Errorf("fetchTimeout = %s, want %s", manager.fetchTimeout, DefaultFetchTimeout)
			}
			if manager.Table() != table {
				t.Error("Table() should return the configured table")
			}
		})
	}
}

func TestManagerResolve(t *testing.T) {
	m := newTestManager(t, defaultTable(t), nil)

	t.Run("detected_platform", func(t *testing.T) {
		d, err := m.Resolve(context.Background(), "1.4.0", platform.Platform{})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		want := "https://github.com/watchthelight/HypergraphGo/releases/download/v1.4.0/hg_1.4.0_linux_amd64.tar.gz"
		if d.URL != want {
			t.Errorf("URL = %q, want %q", d.URL, want)
		}
		if d.Checksum != "e0721e91210785566b808f7ce92246f42e9a2c290e1d87d6ab8f225924eb8ab2" {
			t.Errorf("Checksum = %q", d.Checksum)
		}
	})

	t.Run("platform_override_skips_detection", func(t *testing.T) {
		blind := newTestManager(t, defaultTable(t), func(c *Config) {
			c.Detector = &failingDetector{err: errors.New("detector must not run")}
		})
		d, err := blind.Resolve(context.Background(), "v1.4.0", platform.Platform{OS: "linux", Arch: "amd64"})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if d.Platform.Key() != "linux_amd64" {
			t.Errorf("Platform = %v", d.Platform)
		}
	})

	t.Run("unpublished_platform", func(t *testing.T) {
		_, err := m.Resolve(context.Background(), "1.4.0", platform.Platform{OS: "darwin", Arch: "arm64"})
		if !errors.Is(err, errors.ErrUnsupportedPlatform) {
			t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
		}
	})

	t.Run("latest", func(t *testing.T) {
		d, err := m.Resolve(context.Background(), "", platform.Platform{})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		latest, _ := m.Table().Latest()
		if d.Version != latest {
			t.Errorf("Version = %q, want %q", d.Version, latest)
		}
	})

	t.Run("windows_unsupported", func(t *testing.T) {
		_, err := m.Resolve(context.Background(), "1.4.0", platform.Platform{OS: "windows", Arch: "amd64"})
		if !errors.Is(err, errors.ErrUnsupportedPlatform) {
			t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
		}
		if errors.ExitCodeFor(err) != errors.ExitUser {
			t.Errorf("exit code = %d, want %d", errors.ExitCodeFor(err), errors.ExitUser)
		}
	})
}

func TestManagerDetect(t *testing.T) {
	m := newTestManager(t, defaultTable(t), func(c *Config) {
		c.Detector = &failingDetector{err: errors.Mark(errors.New("plan9"), errors.ErrUnsupportedPlatform)}
	})

	_, err := m.Detect(context.Background())
	if got := stageOf(t, err); got != StageDetect {
		t.Errorf("stage = %s, want %s", got, StageDetect)
	}
	if !errors.Is(err, errors.ErrUnsupportedPlatform) {
		t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestManagerIsInstalled(t *testing.T) {
	m := newTestManager(t, defaultTable(t), nil)

	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
		want  bool
	}{
		{
			name:  "not_installed",
			setup: func(t *testing.T, dir string) {},
			want:  false,
		},
		{
			name: "installed_and_executable",
			setup: func(t *testing.T, dir string) {
				if err := os.WriteFile(filepath.Join(dir, "hg"), []byte("bin"), 0o755); err != nil {
					t.Fatal(err)
				}
			},
			want: true,
		},
		{
			name: "not_executable",
			setup: func(t *testing.T, dir string) {
				if err := os.WriteFile(filepath.Join(dir, "hg"), []byte("bin"), 0o644); err != nil {
					t.Fatal(err)
				}
			},
			want: false,
		},
		{
			name: "directory",
			setup: func(t *testing.T, dir string) {
				if err := os.Mkdir(filepath.Join(dir, "hg"), 0o755); err != nil {
					t.Fatal(err)
				}
			},
			want: false,
		},
	}

	t.Run("windows_looks_for_exe", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "hg"), []byte("bin"), 0o755); err != nil {
			t.Fatal(err)
		}
		got, err := m.IsInstalled(dir, platform.Platform{OS: "windows", Arch: "amd64"})
		if err != nil || got {
			t.Errorf("IsInstalled() = %v, %v; want false for a missing hg.exe", got, err)
		}
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			got, err := m.IsInstalled(dir, linuxAMD64)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsInstalled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManagerInstall_NoTargetDir(t *testing.T) {
	m := newTestManager(t, defaultTable(t), func(c *Config) { c.InstallDir = "" })

	_, err := m.Install(context.Background(), InstallOptions{Version: "1.4.0"})
	if !errors.Is(err, errors.ErrFilesystem) {
		t.Errorf("expected ErrFilesystem, got %v", err)
	}
}

func TestStageError(t *testing.T) {
	inner := errors.Mark(errors.New("connection refused"), errors.ErrNetwork)
	err := error(&StageError{Stage: StageFetch, Err: inner})

	if err.Error() != "fetch: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, errors.ErrNetwork) {
		t.Error("StageError should keep the kind of its cause")
	}
	if errors.KindOf(err) != errors.KindNetwork {
		t.Errorf("KindOf = %v", errors.KindOf(err))
	}
}

func TestBinaryPath(t *testing.T) {
	m := newTestManager(t, defaultTable(t), nil)
	if got := m.BinaryPath("/opt/bin", platform.Platform{OS: "windows", Arch: "amd64"}); got != filepath.Join("/opt/bin", "hg.exe") {
		t.Errorf("BinaryPath() = %q", got)
	}
	if got := m.BinaryPath("", linuxAMD64); got != filepath.Join(m.installDir, "hg") {
		t.Errorf("BinaryPath() = %q", got)
	}
}
