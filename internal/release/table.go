package release

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/watchthelight/hginstall/internal/errors"
	"github.com/watchthelight/hginstall/internal/platform"
)

// Descriptor identifies one downloadable artifact and the digest it must have.
type Descriptor struct {
	// Name is the executable inside the archive, e.g. "hg".
	Name     string
	Version  string
	Platform platform.Platform
	URL      string
	// Checksum is the pinned SHA-256 of the archive, 64 lowercase hex characters.
	Checksum string

	// SignatureURL points at a detached OpenPGP signature of the archive.
	SignatureURL string
	// BundleURL points at a sigstore bundle for the archive.
	BundleURL string
	// Identity and Issuer constrain the certificate in the sigstore bundle.
	Identity string
	Issuer   string
}

// Filename returns the last path element of the artifact URL.
func (d *Descriptor) Filename() string {
	if i := strings.LastIndex(d.URL, "/"); i >= 0 {
		return d.URL[i+1:]
	}
	return d.URL
}

// Table is the immutable release table: version -> platform -> descriptor.
type Table struct {
	name     string
	versions map[string]map[platform.Platform]Descriptor
}

// Name returns the name of the released executable.
func (t *Table) Name() string {
	return t.name
}

// Resolve returns the descriptor for version on p. A leading "v" on version
// is ignored.
func (t *Table) Resolve(version string, p platform.Platform) (*Descriptor, error) {
	version = NormalizeVersion(version)

	entries, ok := t.versions[version]
	if !ok {
		return nil, errors.Mark(
			errors.Newf("no release table for %s version %q (known: %s)", t.name, version, strings.Join(t.Versions(), ", ")),
			errors.ErrUnknownVersion)
	}

	d, ok := entries[p]
	if !ok {
		return nil, errors.Mark(
			errors.Newf("%s %s has no artifact for %s (available: %s)", t.name, version, p, strings.Join(t.platformKeys(version), ", ")),
			errors.ErrUnsupportedPlatform)
	}

	return &d, nil
}

// Versions returns the known versions in ascending semver order.
func (t *Table) Versions() []string {
	versions := slices.Collect(maps.Keys(t.versions))
	slices.SortFunc(versions, compareVersions)
	return versions
}

// Latest returns the highest known version.
func (t *Table) Latest() (string, error) {
	versions := t.Versions()
	if len(versions) == 0 {
		return "", errors.Mark(errors.Newf("release table for %s is empty", t.name), errors.ErrUnknownVersion)
	}
	return versions[len(versions)-1], nil
}

// Platforms returns the platforms with an artifact for version, sorted.
func (t *Table) Platforms(version string) []platform.Platform {
	entries := t.versions[NormalizeVersion(version)]
	out := slices.Collect(maps.Keys(entries))
	slices.SortFunc(out, func(a, b platform.Platform) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return out
}

func (t *Table) platformKeys(version string) []string {
	var keys []string
	for _, p := range t.Platforms(version) {
		keys = append(keys, p.Key())
	}
	return keys
}

// checkAdditive rejects a table in which a newer version drops a platform
// supported by an older one.
func (t *Table) checkAdditive() error {
	versions := t.Versions()
	for i := 1; i < len(versions); i++ {
		prev, cur := versions[i-1], versions[i]
		for p := range t.versions[prev] {
			if _, ok := t.versions[cur][p]; !ok {
				return &ParseError{
					Message: "release table drops platform support",
					Detail:  "version " + cur + " has no entry for " + p.Key() + ", which " + prev + " supports",
				}
			}
		}
	}
	return nil
}

// NormalizeVersion strips surrounding space and a leading "v".
func NormalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// ValidVersion reports whether v (without a leading "v") is a full semantic
// version: major.minor.patch with an optional prerelease. Shorthand such as
// "1.4" and build metadata are rejected, since either would let two keys
// share a precedence and leave Latest undefined.
func ValidVersion(v string) bool {
	if v == "" || strings.HasPrefix(v, "v") {
		return false
	}
	return semver.IsValid("v"+v) && semver.Canonical("v"+v) == "v"+v
}

func compareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}
