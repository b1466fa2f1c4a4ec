package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitUser indicates a user-related error (unknown version, unsupported platform, flags).
	ExitUser = 1

	// ExitSystem indicates an operational error (network, I/O, smoke test).
	ExitSystem = 2

	// ExitIntegrity indicates the artifact failed integrity verification.
	ExitIntegrity = 3
)

// Sentinel errors, one per failure kind.
var (
	// ErrUnsupportedPlatform indicates the OS/architecture pair is not recognized
	// or has no artifact for the requested version.
	ErrUnsupportedPlatform = crdb.New("unsupported platform")

	// ErrUnknownVersion indicates the release table has no entry for the version.
	ErrUnknownVersion = crdb.New("unknown version")

	// ErrNetwork indicates a connection failure, timeout, or non-success status.
	ErrNetwork = crdb.New("network error")

	// ErrNotFound indicates the server reported the artifact as missing.
	ErrNotFound = crdb.New("artifact not found")

	// ErrChecksumMismatch indicates the fetched bytes do not match the pinned digest.
	ErrChecksumMismatch = crdb.New("checksum mismatch")

	// ErrExtraction indicates a malformed archive or an unexpected set of entries.
	ErrExtraction = crdb.New("extraction error")

	// ErrFilesystem indicates a write, rename or permission failure.
	ErrFilesystem = crdb.New("filesystem error")

	// ErrVerificationFailed indicates the installed binary failed its smoke test.
	ErrVerificationFailed = crdb.New("verification failed")
)

// Kind classifies an error by the sentinel it carries.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnsupportedPlatform
	KindUnknownVersion
	KindNetwork
	KindNotFound
	KindChecksumMismatch
	KindExtraction
	KindFilesystem
	KindVerificationFailed
)

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	// ChecksumMismatch first: it must win over any other mark on the same chain.
	{KindChecksumMismatch, ErrChecksumMismatch},
	{KindUnsupportedPlatform, ErrUnsupportedPlatform},
	{KindUnknownVersion, ErrUnknownVersion},
	{KindNotFound, ErrNotFound},
	{KindNetwork, ErrNetwork},
	{KindExtraction, ErrExtraction},
	{KindFilesystem, ErrFilesystem},
	{KindVerificationFailed, ErrVerificationFailed},
}

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnsupportedPlatform:
		return "UnsupportedPlatform"
	case KindUnknownVersion:
		return "UnknownVersion"
	case KindNetwork:
		return "NetworkError"
	case KindNotFound:
		return "NotFound"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindExtraction:
		return "ExtractionError"
	case KindFilesystem:
		return "FilesystemError"
	case KindVerificationFailed:
		return "VerificationFailed"
	default:
		return "Unknown"
	}
}

// ExitCode returns the CLI exit code for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindUnsupportedPlatform, KindUnknownVersion:
		return ExitUser
	case KindChecksumMismatch:
		return ExitIntegrity
	default:
		return ExitSystem
	}
}

// KindOf returns the kind of the first sentinel found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, ks := range kindSentinels {
		if crdb.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindUnknown
}

// ExitError wraps an error with an exit code and optional suggestion for CLI applications.
type ExitError struct {
	// Err is the underlying error that caused the exit.
	Err error

	// Code is the exit code to return to the operating system.
	Code int

	// Suggestion is an optional actionable suggestion for the user.
	Suggestion string
}

// NewExitError creates an ExitError with the given underlying error and exit code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// NewUserError creates an ExitError with ExitUser code and a suggestion.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitUser, Suggestion: suggestion}
}

// NewSystemError creates an ExitError with ExitSystem code and a suggestion.
func NewSystemError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitSystem, Suggestion: suggestion}
}

// Error returns the message of the underlying error.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeFor maps an error to a process exit code. An ExitError in the chain
// wins; otherwise the error's Kind decides, and unclassified errors are
// system errors.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if crdb.As(err, &exitErr) {
		return exitErr.Code
	}
	if kind := KindOf(err); kind != KindUnknown {
		return kind.ExitCode()
	}
	return ExitSystem
}

// New returns an error with a stack trace.
func New(msg string) error { return crdb.New(msg) }

// Newf formats an error with a stack trace.
func Newf(format string, args ...any) error { return crdb.Newf(format, args...) }

// Wrap annotates err with msg. It returns nil if err is nil.
func Wrap(err error, msg string) error { return crdb.Wrap(err, msg) }

// Wrapf annotates err with a formatted message. It returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error { return crdb.Wrapf(err, format, args...) }

// Mark tags err so that Is(err, kind) reports true, without changing its message.
func Mark(err error, kind error) error { return crdb.Mark(err, kind) }

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return crdb.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return crdb.As(err, target) }
