// Package platform detects the operating system and CPU architecture of the
// running machine and normalizes them to the tokens used in release artifact
// names.
//
// OS and architecture come from the Go runtime. On Linux, distribution
// details are read with gopsutil for diagnostics; a failure there falls back
// to OS/arch only. An OS or architecture outside the known token tables is
// reported as an unsupported platform rather than guessed.
package platform

import (
	"context"
	"strings"

	"github.com/watchthelight/hginstall/internal/errors"
)

// Canonical OS tokens.
const (
	OSDarwin  = "darwin"
	OSLinux   = "linux"
	OSWindows = "windows"
)

// Canonical architecture tokens.
const (
	ArchAMD64 = "amd64"
	ArchARM64 = "arm64"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Platform is a canonical (OS, architecture) pair.
type Platform struct {
	OS   string
	Arch string
}

// String returns "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Key returns "os_arch", the form used in artifact names and release tables.
func (p Platform) Key() string {
	return p.OS + "_" + p.Arch
}

// IsWindows reports whether p targets Windows, whose executables carry .exe.
func (p Platform) IsWindows() bool {
	return p.OS == OSWindows
}

// IsZero reports whether p is unset.
func (p Platform) IsZero() bool {
	return p.OS == "" && p.Arch == ""
}

// Parse builds a Platform from "os/arch" or "os_arch", normalizing aliases
// such as "macos" or "x86_64".
func Parse(s string) (Platform, error) {
	sep := "/"
	if !strings.Contains(s, sep) {
		sep = "_"
	}
	osName, arch, ok := strings.Cut(strings.TrimSpace(s), sep)
	if !ok || osName == "" || arch == "" {
		return Platform{}, errors.Mark(
			errors.Newf("invalid platform %q (want os/arch, e.g. linux/amd64)", s),
			errors.ErrUnsupportedPlatform)
	}
	return normalize(osName, arch)
}

// Info contains platform detection information.
type Info struct {
	OS            string // "linux", "darwin", "windows"
	Arch          string // "amd64", "arm64" (normalized)
	ArchRaw       string // original GOARCH
	DistroID      string // Linux only, e.g. "ubuntu"
	Family        string // canonical family, e.g. "debian"
	DistroVersion string // Linux only, e.g. "22.04"
}

// Platform returns the canonical pair used for artifact resolution.
func (i *Info) Platform() Platform {
	return Platform{OS: i.OS, Arch: i.Arch}
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information, or nil on non-Linux platforms or when
// detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != OSLinux || i.DistroID == "" {
		return nil
	}
	return &Distro{
		ID:      i.DistroID,
		Family:  i.Family,
		Version: i.DistroVersion,
	}
}


// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
