package platform

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/watchthelight/hginstall/internal/errors"
)

// distroFunc returns platform, family and version as gopsutil reports them.
type distroFunc func(ctx context.Context) (string, string, string, error)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct {
	goos   string
	goarch string
	distro distroFunc
}

// NewDetector creates a detector for the running machine.
func NewDetector() Detector {
	return &RealDetector{
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
		distro: host.PlatformInformationWithContext,
	}
}

// Detect returns the normalized OS and architecture of the machine. An
// unrecognized pair is an ErrUnsupportedPlatform error.
//
// On Linux, distro fields are filled from gopsutil. A detection failure there
// leaves them empty; only a cancelled context is fatal.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	p, err := normalize(d.goos, d.goarch)
	if err != nil {
		return nil, errors.Wrap(err, "platform detection failed")
	}

	info := &Info{
		OS:      p.OS,
		Arch:    p.Arch,
		ArchRaw: d.goarch,
	}

	if p.OS != OSLinux || d.distro == nil {
		return info, nil
	}

	id, family, version, err := d.distro(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "platform detection cancelled")
		}
		return info, nil
	}

	if id = normalizeDistro(id); id != "" {
		info.DistroID = id
		info.Family = mapFamily(family)
		info.DistroVersion = normalizeDistro(version)
	}

	return info, nil
}

// StaticDetector reports a fixed platform. It backs "resolve --platform".
type StaticDetector struct {
	Target Platform
}

// Detect returns the fixed platform.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Info{OS: s.Target.OS, Arch: s.Target.Arch, ArchRaw: s.Target.Arch}, nil
}
