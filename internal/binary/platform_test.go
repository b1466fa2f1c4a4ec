package binary

import (
	"testing"

	"github.com/watchthelight/hginstall/internal/platform"
)

func TestExecutableName(t *testing.T) {
	tests := []struct {
		platform platform.Platform
		want     string
	}{
		{platform.Platform{OS: "linux", Arch: "amd64"}, "hg"},
		{platform.Platform{OS: "darwin", Arch: "arm64"}, "hg"},
		{platform.Platform{OS: "windows", Arch: "amd64"}, "hg.exe"},
		{platform.Platform{}, "hg"},
	}

	for _, tt := range tests {
		if got := executableName("hg", tt.platform); got != tt.want {
			t.Errorf("executableName(hg, %v) = %q, want %q", tt.platform, got, tt.want)
		}
	}
}
