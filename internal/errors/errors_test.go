package errors

import (
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain_error", err: New("boom"), want: KindUnknown},
		{name: "bare_sentinel", err: ErrNotFound, want: KindNotFound},
		{name: "marked", err: Mark(New("status 503"), ErrNetwork), want: KindNetwork},
		{
			name: "marked_then_wrapped",
			err:  Wrap(Mark(New("digest differs"), ErrChecksumMismatch), "verify"),
			want: KindChecksumMismatch,
		},
		{
			name: "stdlib_wrapped",
			err:  fmt.Errorf("install: %w", Mark(New("disk full"), ErrFilesystem)),
			want: KindFilesystem,
		},
		{
			name: "checksum_wins_over_other_marks",
			err:  Mark(Mark(New("bad signature"), ErrVerificationFailed), ErrChecksumMismatch),
			want: KindChecksumMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindUnsupportedPlatform, "UnsupportedPlatform"},
		{KindUnknownVersion, "UnknownVersion"},
		{KindNetwork, "NetworkError"},
		{KindNotFound, "NotFound"},
		{KindChecksumMismatch, "ChecksumMismatch"},
		{KindExtraction, "ExtractionError"},
		{KindFilesystem, "FilesystemError"},
		{KindVerificationFailed, "VerificationFailed"},
		{KindUnknown, "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "unknown_version", err: Mark(New("1.9.9"), ErrUnknownVersion), want: ExitUser},
		{name: "unsupported_platform", err: ErrUnsupportedPlatform, want: ExitUser},
		{name: "network", err: Mark(New("timeout"), ErrNetwork), want: ExitSystem},
		{name: "checksum", err: Wrap(ErrChecksumMismatch, "verify"), want: ExitIntegrity},
		{name: "smoke_test", err: ErrVerificationFailed, want: ExitSystem},
		{name: "unclassified", err: New("???"), want: ExitSystem},
		{name: "explicit_exit_error", err: NewUserError(New("bad flag"), "see --help"), want: ExitUser},
		{
			name: "exit_error_overrides_kind",
			err:  NewExitError(ErrChecksumMismatch, ExitSystem),
			want: ExitSystem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	err := NewSystemError(Wrap(ErrNotFound, "fetch"), "check the release exists")
	if err.Error() != "fetch: artifact not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !Is(err, ErrNotFound) {
		t.Error("ExitError should unwrap to its sentinel")
	}
	if err.Suggestion != "check the release exists" {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}

	empty := NewExitError(nil, ExitUser)
	if empty.Error() != "exit code 1" {
		t.Errorf("Error() = %q, want %q", empty.Error(), "exit code 1")
	}
}
