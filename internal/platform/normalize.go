package platform

import (
	"strings"

	"github.com/watchthelight/hginstall/internal/errors"
)

// osMap maps runtime and user-facing OS names to canonical tokens.
var osMap = map[string]string{
	"darwin":  OSDarwin,
	"macos":   OSDarwin,
	"osx":     OSDarwin,
	"linux":   OSLinux,
	"windows": OSWindows,
}

// archMap maps runtime and uname-style architecture names to canonical tokens.
var archMap = map[string]string{
	"amd64":   ArchAMD64,
	"x86_64":  ArchAMD64,
	"x64":     ArchAMD64,
	"arm64":   ArchARM64,
	"aarch64": ArchARM64,
}

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// normalizeOS converts an OS name to its canonical token.
func normalizeOS(goos string) (string, error) {
	if canonical, ok := osMap[strings.ToLower(strings.TrimSpace(goos))]; ok {
		return canonical, nil
	}
	return "", errors.Mark(errors.Newf("unsupported operating system: %s", goos), errors.ErrUnsupportedPlatform)
}

// normalizeArch converts an architecture name to its canonical token.
func normalizeArch(arch string) (string, error) {
	if canonical, ok := archMap[strings.ToLower(strings.TrimSpace(arch))]; ok {
		return canonical, nil
	}
	return "", errors.Mark(errors.Newf("unsupported architecture: %s", arch), errors.ErrUnsupportedPlatform)
}

func normalize(goos, goarch string) (Platform, error) {
	osName, err := normalizeOS(goos)
	if err != nil {
		return Platform{}, err
	}
	arch, err := normalizeArch(goarch)
	if err != nil {
		return Platform{}, err
	}
	return Platform{OS: osName, Arch: arch}, nil
}

// normalizeDistro lowercases and trims distro IDs and versions.
func normalizeDistro(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	if canonical, ok := familyMap[normalizeDistro(family)]; ok {
		return canonical
	}
	return FamilyUnknown
}
