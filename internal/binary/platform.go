package binary

import (
	"github.com/watchthelight/hginstall/internal/platform"
)

// executableName returns the file name of the executable inside an artifact
// built for p, e.g. "hg" or "hg.exe".
func executableName(name string, p platform.Platform) string {
	if p.IsWindows() {
		return name + ".exe"
	}
	return name
}
