package binary

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/watchthelight/hginstall/internal/errors"
	"github.com/watchthelight/hginstall/internal/logging"
	"github.com/watchthelight/hginstall/internal/paths"
	"github.com/watchthelight/hginstall/internal/platform"
	"github.com/watchthelight/hginstall/internal/release"
)

// DefaultFetchTimeout bounds each download when Config.FetchTimeout is unset
const DefaultFetchTimeout = 5 * time.Minute

// Manager orchestrates resolution, download, verification, installation and
// the post-install smoke test of release binaries
type Manager struct {
	table        *release.Table
	detector     platform.Detector
	installDir   string
	lockDir      string
	fetchTimeout time.Duration
	downloader   *Downloader
	verifier     *Verifier
	extractor    *Extractor
	smoke        *SmokeTester
	logger       *slog.Logger
	clock        Clock
}

// Config holds configuration for the binary manager
type Config struct {
	// Table is the release table to resolve against (required)
	Table *release.Table
	// Detector finds the running platform (default: platform.NewDetector())
	Detector platform.Detector
	// InstallDir is used when InstallOptions.TargetDir is empty
	InstallDir string
	// LockDir holds install locks (default: paths.LockDir())
	LockDir string
	// UserAgent is sent with every request (default: DefaultUserAgent)
	UserAgent string
	// FetchTimeout bounds each download (default: DefaultFetchTimeout)
	FetchTimeout time.Duration
	// SmokeTimeout bounds the version query (default: DefaultSmokeTimeout)
	SmokeTimeout time.Duration
	// KeyringPath enables detached signature checks when set
	KeyringPath string
	// TrustedRootPath enables sigstore bundle checks when set
	TrustedRootPath string
	// Logger receives stage logs (default: discard)
	Logger *slog.Logger
	// Clock stamps results (default: the system clock)
	Clock Clock
}

// NewManager creates a new binary manager
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Table == nil {
		return nil, errors.New("release table is required")
	}
	if cfg.KeyringPath != "" && !keyringExists(cfg.KeyringPath) {
		return nil, errors.Newf("keyring %s does not exist or is empty", cfg.KeyringPath)
	}
	if cfg.TrustedRootPath != "" {
		if _, err := os.Stat(cfg.TrustedRootPath); err != nil {
			return nil, errors.Wrap(err, "trusted root")
		}
	}

	if cfg.Detector == nil {
		cfg.Detector = platform.NewDetector()
	}
	if cfg.LockDir == "" {
		cfg.LockDir = paths.LockDir()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	logger := logging.OrDiscard(cfg.Logger)

	return &Manager{
		table:        cfg.Table,
		detector:     cfg.Detector,
		installDir:   cfg.InstallDir,
		lockDir:      cfg.LockDir,
		fetchTimeout: cfg.FetchTimeout,
		downloader:   NewDownloader(cfg.UserAgent),
		verifier: NewVerifier(VerifierConfig{
			KeyringPath:     cfg.KeyringPath,
			TrustedRootPath: cfg.TrustedRootPath,
			Logger:          logger,
		}),
		extractor: NewExtractor(),
		smoke:     NewSmokeTester(cfg.SmokeTimeout),
		logger:    logger,
		clock:     cfg.Clock,
	}, nil
}

// Table returns the release table the manager resolves against.
func (m *Manager) Table() *release.Table {
	return m.table
}

// Detect reports the running platform.
func (m *Manager) Detect(ctx context.Context) (*platform.Info, error) {
	info, err := m.detector.Detect(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageDetect, Err: err}
	}
	m.logger.Debug("detected platform",
		"platform", info.Platform().String(),
		"arch_raw", info.ArchRaw,
		"distro", info.DistroID,
		"family", info.Family)
	return info, nil
}

// Resolve maps version and platform to a release descriptor without touching
// the network. An empty version means the newest release; a zero platform
// means the detected one.
func (m *Manager) Resolve(ctx context.Context, version string, p platform.Platform) (*release.Descriptor, error) {
	if p.IsZero() {
		info, err := m.Detect(ctx)
		if err != nil {
			return nil, err
		}
		p = info.Platform()
	}

	if version == "" {
		latest, err := m.table.Latest()
		if err != nil {
			return nil, &StageError{Stage: StageResolve, Err: err}
		}
		version = latest
	}

	d, err := m.table.Resolve(version, p)
	if err != nil {
		return nil, &StageError{Stage: StageResolve, Err: err}
	}

	m.logger.Info("resolved artifact", "version", d.Version, "platform", p.String(), "url", d.URL)
	return d, nil
}

// Install runs the full pipeline: detect, resolve, fetch, verify, install,
// smoke test. Every failure is a *StageError naming the stage.
//
// Nothing is written to TargetDir unless the artifact's SHA-256 matches the
// pinned checksum. When only the smoke test fails the binary stays
// installed, and the partially filled result is returned along with the
// error.
func (m *Manager) Install(ctx context.Context, opts InstallOptions) (*InstallResult, error) {
	start := m.clock.Now()

	targetDir := opts.TargetDir
	if targetDir == "" {
		targetDir = m.installDir
	}
	if targetDir == "" {
		return nil, &StageError{
			Stage: StageInstall,
			Err:   errors.Mark(errors.New("no install directory configured"), errors.ErrFilesystem),
		}
	}

	host, err := m.Detect(ctx)
	if err != nil {
		return nil, err
	}
	p := host.Platform()
	if !opts.Platform.IsZero() && opts.Platform != p {
		// a foreign build can never pass the smoke test, and would already
		// have replaced a working hg by then
		return nil, &StageError{
			Stage: StageDetect,
			Err: errors.Mark(
				errors.Newf("cannot install a %s build on this %s host", opts.Platform, p),
				errors.ErrUnsupportedPlatform),
		}
	}

	d, err := m.Resolve(ctx, opts.Version, p)
	if err != nil {
		return nil, err
	}
	logger := m.logger.With("version", d.Version, "platform", d.Platform.String())

	data, err := m.fetch(ctx, d.URL)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	logger.Info("fetched artifact", "file", d.Filename(), "bytes", len(data))
	art := &Artifact{Descriptor: *d, Data: data}

	verified, err := m.verify(ctx, logger, art)
	if err != nil {
		logger.Error("artifact failed verification", "file", d.Filename(), "error", err)
		return nil, &StageError{Stage: StageVerify, Err: err}
	}
	logger.Info("verified artifact", "methods", verified.String())

	lock, err := acquireInstallLock(ctx, m.lockDir, targetDir, m.table.Name())
	if err != nil {
		return nil, &StageError{Stage: StageInstall, Err: err}
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release install lock", "error", err)
		}
	}()

	replaced, err := m.IsInstalled(targetDir, p)
	if err != nil {
		return nil, &StageError{Stage: StageInstall, Err: err}
	}
	if replaced {
		logger.Info("replacing existing binary", "path", m.BinaryPath(targetDir, p))
	}

	installed, err := m.extractor.Install(ctx, art.Data, executableName(m.table.Name(), d.Platform), targetDir)
	if err != nil {
		return nil, &StageError{Stage: StageInstall, Err: err}
	}
	logger.Info("installed binary", "path", installed.Path)

	result := &InstallResult{
		Platform:    d.Platform,
		Descriptor:  *d,
		Binary:      *installed,
		Verified:    verified,
		Replaced:    replaced,
		InstalledAt: m.clock.Now(),
	}

	out, err := m.smoke.Verify(ctx, installed, d.Version)
	result.SmokeOutput = out
	result.Duration = m.clock.Now().Sub(start)
	if err != nil {
		logger.Warn("smoke test failed, binary left in place", "path", installed.Path)
		return result, &StageError{Stage: StageSmoke, Err: err}
	}
	logger.Info("smoke test passed", "path", installed.Path)

	return result, nil
}

// fetch downloads url with the fetch timeout applied to this call only.
func (m *Manager) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()
	return m.downloader.Fetch(ctx, url)
}

// verify checks the pinned checksum, then any signature or bundle the
// descriptor names. A named check without key material is skipped with a
// warning.
func (m *Manager) verify(ctx context.Context, logger *slog.Logger, art *Artifact) (VerificationResult, error) {
	var result VerificationResult
	d := &art.Descriptor

	if err := m.verifier.VerifyChecksum(art.Data, d.Checksum); err != nil {
		return result, err
	}
	result.Methods = append(result.Methods, VerificationSHA256)

	if d.SignatureURL != "" {
		if !m.verifier.HasKeyring() {
			logger.Warn("release publishes a signature but no keyring is configured, skipping", "url", d.SignatureURL)
			result.Skipped = append(result.Skipped, VerificationGPG)
		} else {
			sig, err := m.fetch(ctx, d.SignatureURL)
			if err != nil {
				return result, errors.Wrap(err, "fetch signature")
			}
			if err := m.verifier.VerifySignature(art.Data, sig); err != nil {
				return result, err
			}
			result.Methods = append(result.Methods, VerificationGPG)
		}
	}

	if d.BundleURL != "" {
		if !m.verifier.HasTrustedRoot() {
			logger.Warn("release publishes a sigstore bundle but no trusted root is configured, skipping", "url", d.BundleURL)
			result.Skipped = append(result.Skipped, VerificationSigstore)
		} else {
			bundleJSON, err := m.fetch(ctx, d.BundleURL)
			if err != nil {
				return result, errors.Wrap(err, "fetch sigstore bundle")
			}
			if err := m.verifier.VerifyBundle(art.Data, bundleJSON, d.Identity, d.Issuer); err != nil {
				return result, err
			}
			result.Methods = append(result.Methods, VerificationSigstore)
		}
	}

	return result, nil
}

// IsInstalled reports whether an executable for p is already present in
// targetDir.
func (m *Manager) IsInstalled(targetDir string, p platform.Platform) (bool, error) {
	binaryPath := m.BinaryPath(targetDir, p)

	info, err := os.Stat(binaryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Mark(errors.Wrap(err, "stat binary"), errors.ErrFilesystem)
	}

	if !info.Mode().IsRegular() {
		return false, nil
	}

	if info.Mode().Perm()&0o111 == 0 {
		return false, nil
	}

	return true, nil
}

// BinaryPath returns where the binary for p lives in targetDir.
func (m *Manager) BinaryPath(targetDir string, p platform.Platform) string {
	if targetDir == "" {
		targetDir = m.installDir
	}
	return filepath.Join(targetDir, executableName(m.table.Name(), p))
}
