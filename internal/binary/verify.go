package binary

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork

	"github.com/watchthelight/hginstall/internal/errors"
	"github.com/watchthelight/hginstall/internal/logging"
)

// VerifierConfig points the verifier at optional key material.
type VerifierConfig struct {
	// KeyringPath is an OpenPGP public keyring, armored or binary.
	KeyringPath string
	// TrustedRootPath is a sigstore trusted_root.json.
	TrustedRootPath string
	Logger          *slog.Logger
}

// Verifier handles cryptographic verification of fetched artifacts
type Verifier struct {
	keyringPath     string
	trustedRootPath string
	logger          *slog.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(cfg VerifierConfig) *Verifier {
	return &Verifier{
		keyringPath:     cfg.KeyringPath,
		trustedRootPath: cfg.TrustedRootPath,
		logger:          logging.OrDiscard(cfg.Logger),
	}
}

// HasKeyring reports whether detached signatures can be checked.
func (v *Verifier) HasKeyring() bool {
	return v.keyringPath != ""
}

// HasTrustedRoot reports whether sigstore bundles can be checked.
func (v *Verifier) HasTrustedRoot() bool {
	return v.trustedRootPath != ""
}

// VerifyChecksum checks that data hashes to the pinned expected digest.
// The comparison is case-insensitive and constant-time. A mismatch, or an
// expected value that is not a SHA-256 hex digest, is marked
// errors.ErrChecksumMismatch.
func (v *Verifier) VerifyChecksum(data []byte, expected string) error {
	sum := sha256.Sum256(data)
	actual := hex.EncodeToString(sum[:])

	want, err := hex.DecodeString(strings.TrimSpace(expected))
	if err != nil || len(want) != sha256.Size {
		return errors.Mark(
			errors.Newf("expected checksum %q is not a SHA-256 hex digest", expected),
			errors.ErrChecksumMismatch)
	}

	if subtle.ConstantTimeCompare(sum[:], want) != 1 {
		return errors.Mark(
			errors.Newf("checksum mismatch:\nactual:   %s\nexpected: %s", actual, strings.ToLower(strings.TrimSpace(expected))),
			errors.ErrChecksumMismatch)
	}

	v.logger.Debug("checksum verified", "sha256", actual)
	return nil
}

// VerifySignature checks a detached OpenPGP signature over data against the
// configured keyring. Armored and binary signatures are both accepted.
func (v *Verifier) VerifySignature(data, signature []byte) error {
	keyring, err := loadKeyring(v.keyringPath)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "load keyring"), errors.ErrChecksumMismatch)
	}

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		signer, err = openpgp.CheckDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return errors.Mark(errors.Wrap(err, "verify signature"), errors.ErrChecksumMismatch)
	}

	if signer != nil && signer.PrimaryKey != nil {
		v.logger.Debug("signature verified", "key", signer.PrimaryKey.KeyIdString())
	}
	return nil
}
