package config

import (
	"errors"
	"fmt"
)

// Validation errors for configuration fields.
var (
	// ErrInvalidTimeout indicates a non-positive timeout.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrMissingInstallDir indicates install_dir resolved to an empty path.
	ErrMissingInstallDir = errors.New("install_dir is required")
)

// Validate checks a Config and returns every problem found, joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var errs []error

	if cfg.InstallDir == "" {
		errs = append(errs, ErrMissingInstallDir)
	}
	if cfg.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s: %w", KeyFetchTimeout, ErrInvalidTimeout))
	}
	if cfg.SmokeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s: %w", KeySmokeTimeout, ErrInvalidTimeout))
	}

	return errors.Join(errs...)
}
