package binary

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/watchthelight/hginstall/internal/errors"
)

// hgScript returns a shell script that answers -version like hg does.
func hgScript(version string) string {
	return "#!/bin/sh\n" +
		"if [ \"$1\" = \"-version\" ]; then\n" +
		"  echo \"hg " + version + " (abc1234, 2025-06-01T00:00:00Z)\"\n" +
		"  exit 0\n" +
		"fi\n" +
		"echo \"usage: hg [-version]\" >&2\n" +
		"exit 2\n"
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a POSIX shell")
	}
}

func writeScript(t *testing.T, body string) *InstalledBinary {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hg")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &InstalledBinary{Path: path, Mode: 0o755}
}

func TestSmokeTesterVerify(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name    string
		script  string
		version string
		wantErr bool
	}{
		{
			name:    "matching_version",
			script:  hgScript("1.4.0"),
			version: "1.4.0",
		},
		{
			name:    "older_version_reported",
			script:  hgScript("1.3.0"),
			version: "1.4.0",
			wantErr: true,
		},
		{
			name:    "non_zero_exit",
			script:  "#!/bin/sh\necho hg 1.4.0\nexit 1\n",
			version: "1.4.0",
			wantErr: true,
		},
		{
			name:    "version_only_on_stderr",
			script:  "#!/bin/sh\necho hg 1.4.0 >&2\n",
			version: "1.4.0",
			wantErr: true,
		},
		{
			name:    "not_executable_format",
			script:  "\x00\x01\x02 garbage",
			version: "1.4.0",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			installed := writeScript(t, tt.script)

			out, err := NewSmokeTester(0).Verify(context.Background(), installed, tt.version)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !errors.Is(err, errors.ErrVerificationFailed) {
					t.Errorf("error should be ErrVerificationFailed, got %v", err)
				}
				if _, statErr := os.Stat(installed.Path); statErr != nil {
					t.Error("a failed smoke test must leave the binary in place")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.version) {
				t.Errorf("output %q does not contain %q", out, tt.version)
			}
		})
	}
}

func TestSmokeTesterTimeout(t *testing.T) {
	requireShell(t)

	installed := writeScript(t, "#!/bin/sh\nsleep 10\necho hg 1.4.0\n")

	start := time.Now()
	_, err := NewSmokeTester(200*time.Millisecond).Verify(context.Background(), installed, "1.4.0")
	if !errors.Is(err, errors.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not enforced, took %s", elapsed)
	}
}

func TestSmokeTesterMissingBinary(t *testing.T) {
	installed := &InstalledBinary{Path: filepath.Join(t.TempDir(), "missing")}
	_, err := NewSmokeTester(time.Second).Verify(context.Background(), installed, "1.4.0")
	if !errors.Is(err, errors.ErrVerificationFailed) {
		t.Errorf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestNewSmokeTesterDefaults(t *testing.T) {
	s := NewSmokeTester(0)
	if s.timeout != DefaultSmokeTimeout {
		t.Errorf("timeout = %s, want %s", s.timeout, DefaultSmokeTimeout)
	}
	if len(s.args) != 1 || s.args[0] != VersionFlag {
		t.Errorf("args = %v, want [%s]", s.args, VersionFlag)
	}
}
