// Package release holds the release table that maps a version and platform
// to the artifact to download and the SHA-256 it must hash to.
//
// The table is written as a Lua manifest and evaluated once in a sandboxed VM
// with no os, io or loader access. A validated Table is immutable. The
// manifest for hg is embedded in the binary and returned by Default; LoadFile
// reads an alternative one from disk.
//
// Resolution is a closed lookup. An unknown version fails with
// errors.ErrUnknownVersion and a version without an entry for the platform
// fails with errors.ErrUnsupportedPlatform. Nothing is derived from the
// downloaded bytes.
package release
