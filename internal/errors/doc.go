// Package errors defines the failure taxonomy of the install pipeline and the
// CLI exit codes derived from it.
//
// # Sentinel Errors
//
// Every pipeline failure carries exactly one kind sentinel, attached with
// [Mark] by the stage that produced it. Callers test for it with [Is]:
//
//	if errors.Is(err, errors.ErrChecksumMismatch) {
//	    // the artifact must be treated as compromised
//	}
//
// The helpers [New], [Newf], [Wrap], [Wrapf], [Mark], [Is] and [As] forward to
// github.com/cockroachdb/errors so that marks survive wrapping.
//
// # Exit Codes
//
//   - ExitSuccess (0): the command completed
//   - ExitUser (1): unknown version, unsupported platform, bad input
//   - ExitSystem (2): network, extraction, filesystem or smoke test failure
//   - ExitIntegrity (3): the artifact failed checksum or signature verification
//
// [ExitCodeFor] maps any error to one of these codes.
package errors
