// Package binary downloads, verifies and installs release binaries described
// by a release.Table, then checks that the installed binary runs.
//
// # Security Model
//
// The expected SHA-256 of every artifact is pinned in the release table when
// the release is cut. Nothing is written to the install directory until the
// downloaded bytes hash to that value. A mismatch is reported as
// errors.ErrChecksumMismatch and is never retried or bypassed.
//
// When the table also names a detached OpenPGP signature or a sigstore bundle
// and matching key material is configured, those are checked as well, after
// the checksum. A failure there is treated like a checksum mismatch.
//
// # Pipeline
//
// Manager.Install runs, in order:
//   - detect: platform.Detector; a requested platform must match the host
//   - resolve: release.Table.Resolve
//   - fetch: Downloader, one attempt, bounded by the fetch timeout
//   - verify: Verifier
//   - install: Extractor, atomic rename into the target directory, under a
//     lock kept in paths.LockDir()
//   - smoke: SmokeTester runs "<binary> -version"
//
// A failure is returned as a *StageError. Its chain keeps the kind marker
// from internal/errors, so callers branch with errors.Is.
//
// # Usage
//
//	table, err := release.Default(ctx)
//	if err != nil {
//	    return err
//	}
//
//	mgr, err := binary.NewManager(binary.Config{Table: table, InstallDir: dir})
//	if err != nil {
//	    return err
//	}
//
//	result, err := mgr.Install(ctx, binary.InstallOptions{Version: "1.4.0"})
package binary
