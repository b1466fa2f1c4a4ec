package binary

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/watchthelight/hginstall/internal/errors"
)

const (
	// DefaultSmokeTimeout bounds one run of the installed binary
	DefaultSmokeTimeout = 30 * time.Second
	// VersionFlag is the argument that makes hg print its version
	VersionFlag = "-version"
)

// SmokeTester runs an installed binary and checks the version it reports
type SmokeTester struct {
	timeout time.Duration
	args    []string
}

// NewSmokeTester creates a smoke tester. A non-positive timeout uses
// DefaultSmokeTimeout.
func NewSmokeTester(timeout time.Duration) *SmokeTester {
	if timeout <= 0 {
		timeout = DefaultSmokeTimeout
	}
	return &SmokeTester{timeout: timeout, args: []string{VersionFlag}}
}

// Verify runs the binary with the version flag and requires version to appear
// in its standard output. Every failure is marked errors.ErrVerificationFailed
// and leaves the binary where it is. The captured stdout is returned either way.
func (s *SmokeTester) Verify(ctx context.Context, installed *InstalledBinary, version string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, installed.Path, s.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	out := stdout.String()

	if ctx.Err() == context.DeadlineExceeded {
		return out, errors.Mark(
			errors.Newf("%s %s did not exit within %s", installed.Path, strings.Join(s.args, " "), s.timeout),
			errors.ErrVerificationFailed)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = errors.Wrapf(err, "stderr: %s", msg)
		}
		return out, errors.Mark(
			errors.Wrapf(err, "run %s %s", installed.Path, strings.Join(s.args, " ")),
			errors.ErrVerificationFailed)
	}

	if !strings.Contains(out, version) {
		return out, errors.Mark(
			errors.Newf("installed binary reports %q, want version %s", strings.TrimSpace(out), version),
			errors.ErrVerificationFailed)
	}

	return out, nil
}
