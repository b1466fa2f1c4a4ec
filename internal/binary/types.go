package binary

import (
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/watchthelight/hginstall/internal/platform"
	"github.com/watchthelight/hginstall/internal/release"
)

// Stage names one step of the install pipeline.
type Stage string

const (
	StageDetect  Stage = "detect"
	StageResolve Stage = "resolve"
	StageFetch   Stage = "fetch"
	StageVerify  Stage = "verify"
	StageInstall Stage = "install"
	StageSmoke   Stage = "smoke"
)

// StageError records which stage of the pipeline failed. The wrapped error
// still carries its kind marker, so errors.Is(err, errors.ErrNetwork) and
// friends keep working through it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// InstallOptions configures one install.
type InstallOptions struct {
	// Version to install. Empty means the newest version in the release table.
	Version string
	// TargetDir receives the executable. Defaults to the manager's install dir.
	TargetDir string
	// Platform, when non-zero, must match the detected platform. Install
	// refuses foreign builds.
	Platform platform.Platform
}

// Artifact is a fetched archive held in memory until it has been verified.
type Artifact struct {
	Descriptor release.Descriptor
	Data       []byte
}

// InstalledBinary is an executable placed on disk by the installer.
type InstalledBinary struct {
	Path string
	Mode fs.FileMode
}

// VerificationMethod indicates how an artifact was verified
type VerificationMethod int

const (
	// VerificationNone indicates no verification (never returned for an installed artifact)
	VerificationNone VerificationMethod = iota
	// VerificationSHA256 indicates the pinned SHA-256 matched
	VerificationSHA256
	// VerificationGPG indicates a detached OpenPGP signature was checked
	VerificationGPG
	// VerificationSigstore indicates a sigstore bundle was checked
	VerificationSigstore
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationGPG:
		return "GPG"
	case VerificationSHA256:
		return "SHA256"
	case VerificationSigstore:
		return "Sigstore"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}

// VerificationResult lists the checks an artifact passed, in order.
type VerificationResult struct {
	Methods []VerificationMethod
	// Skipped names checks the release table asked for that could not run
	// because no key material was configured.
	Skipped []VerificationMethod
}

// String joins the applied methods, e.g. "SHA256+GPG".
func (r *VerificationResult) String() string {
	if r == nil || len(r.Methods) == 0 {
		return VerificationNone.String()
	}
	names := make([]string, len(r.Methods))
	for i, m := range r.Methods {
		names[i] = m.String()
	}
	return strings.Join(names, "+")
}

// InstallResult describes a completed install.
type InstallResult struct {
	Platform   platform.Platform
	Descriptor release.Descriptor
	Binary     InstalledBinary
	Verified   VerificationResult
	// Replaced is set when an executable was already at the target path.
	Replaced bool
	// SmokeOutput is the stdout of the version query.
	SmokeOutput string
	InstalledAt time.Time
	Duration    time.Duration
}
