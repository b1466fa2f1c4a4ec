// Package config loads hginstall settings from config.yaml, HGINSTALL_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/watchthelight/hginstall/internal/paths"
)

// EnvPrefix is the prefix for environment overrides (HGINSTALL_INSTALL_DIR, ...).
const EnvPrefix = "HGINSTALL"

// Setting keys.
const (
	KeyInstallDir   = "install_dir"
	KeyManifest     = "manifest"
	KeyFetchTimeout = "fetch_timeout"
	KeySmokeTimeout = "smoke_timeout"
	KeyUserAgent    = "user_agent"
	KeyKeyring      = "keyring"
	KeyTrustedRoot  = "trusted_root"
)

// Defaults for the timeouts.
const (
	DefaultFetchTimeout = 5 * time.Minute
	DefaultSmokeTimeout = 30 * time.Second
)

// Config is the user-facing configuration of hginstall.
type Config struct {
	// InstallDir is where the hg executable is written.
	InstallDir string `mapstructure:"install_dir" yaml:"install_dir"`
	// Manifest optionally replaces the embedded release table with a Lua file.
	Manifest string `mapstructure:"manifest" yaml:"manifest"`
	// FetchTimeout bounds the download stage only.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	// SmokeTimeout bounds the post-install version check.
	SmokeTimeout time.Duration `mapstructure:"smoke_timeout" yaml:"smoke_timeout"`
	// UserAgent is sent with every HTTP request.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	// Keyring is an armored OpenPGP public keyring for detached signatures.
	Keyring string `mapstructure:"keyring" yaml:"keyring"`
	// TrustedRoot is a sigstore trusted_root.json for provenance bundles.
	TrustedRoot string `mapstructure:"trusted_root" yaml:"trusted_root"`
}

// New returns a viper instance with defaults, search paths and environment
// binding configured. userAgent is the default User-Agent header.
func New(userAgent string) *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(paths.ConfigDir())

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault(KeyInstallDir, paths.DefaultInstallDir())
	v.SetDefault(KeyManifest, "")
	v.SetDefault(KeyFetchTimeout, DefaultFetchTimeout)
	v.SetDefault(KeySmokeTimeout, DefaultSmokeTimeout)
	v.SetDefault(KeyUserAgent, userAgent)
	v.SetDefault(KeyKeyring, "")
	v.SetDefault(KeyTrustedRoot, "")

	return v
}

// Load reads the configuration. With an empty path the default locations are
// searched and a missing file is not an error; an explicit path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		// viper reports a missing explicit file as a plain open error
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file not found at %s: %w", path, err)
			}
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.InstallDir = expand(cfg.InstallDir)
	cfg.Manifest = expand(cfg.Manifest)
	cfg.Keyring = expand(cfg.Keyring)
	cfg.TrustedRoot = expand(cfg.TrustedRoot)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func expand(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Clean(paths.ExpandHome(p))
}
