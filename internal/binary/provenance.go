package binary

import (
	"bytes"

	"github.com/sigstore/sigstore-go/pkg/bundle"
	"github.com/sigstore/sigstore-go/pkg/root"
	"github.com/sigstore/sigstore-go/pkg/verify"

	"github.com/watchthelight/hginstall/internal/errors"
)

// VerifyBundle checks a sigstore bundle over data. The bundle's certificate
// must have been issued to identity by issuer, and the signature must be
// logged in a transparency log known to the configured trusted root.
func (v *Verifier) VerifyBundle(data, bundleJSON []byte, identity, issuer string) error {
	if identity == "" || issuer == "" {
		return errors.Mark(
			errors.New("sigstore bundle requires a certificate identity and issuer"),
			errors.ErrChecksumMismatch)
	}

	trustedRoot, err := root.NewTrustedRootFromPath(v.trustedRootPath)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "load trusted root"), errors.ErrChecksumMismatch)
	}

	var b bundle.Bundle
	if err := b.UnmarshalJSON(bundleJSON); err != nil {
		return errors.Mark(errors.Wrap(err, "parse sigstore bundle"), errors.ErrChecksumMismatch)
	}

	sev, err := verify.NewVerifier(trustedRoot,
		verify.WithTransparencyLog(1),
		verify.WithObserverTimestamps(1),
	)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "create sigstore verifier"), errors.ErrChecksumMismatch)
	}

	certID, err := verify.NewShortCertificateIdentity(issuer, "", identity, "")
	if err != nil {
		return errors.Mark(errors.Wrap(err, "certificate identity"), errors.ErrChecksumMismatch)
	}

	result, err := sev.Verify(&b, verify.NewPolicy(
		verify.WithArtifact(bytes.NewReader(data)),
		verify.WithCertificateIdentity(certID),
	))
	if err != nil {
		return errors.Mark(errors.Wrap(err, "verify sigstore bundle"), errors.ErrChecksumMismatch)
	}

	if result.Signature != nil && result.Signature.Certificate != nil {
		v.logger.Debug("sigstore bundle verified",
			"san", result.Signature.Certificate.SubjectAlternativeName,
			"issuer", result.Signature.Certificate.Issuer)
	}
	return nil
}
