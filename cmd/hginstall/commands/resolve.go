package commands

import (
	"github.com/spf13/cobra"

	"github.com/watchthelight/hginstall/internal/platform"
)

func (a *app) newResolveCmd() *cobra.Command {
	var platformFlag string

	cmd := &cobra.Command{
		Use:   "resolve [version]",
		Short: "Show the artifact and checksum for a version",
		Long: `Resolve looks up the release table without downloading anything and
prints the artifact URL and pinned SHA-256 for the version and platform.`,
		Args: checkArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePlatform(platformFlag)
			if err != nil {
				return err
			}

			var detector platform.Detector
			if !p.IsZero() {
				detector = platform.StaticDetector{Target: p}
			}
			m, err := a.newManager(cmd.Context(), detector)
			if err != nil {
				return err
			}

			var version string
			if len(args) == 1 {
				version = args[0]
			}

			d, err := m.Resolve(cmd.Context(), version, platform.Platform{})
			if err != nil {
				return err
			}

			a.printf(cmd, "version:   %s\n", d.Version)
			a.printf(cmd, "platform:  %s\n", d.Platform)
			a.printf(cmd, "url:       %s\n", d.URL)
			a.printf(cmd, "sha256:    %s\n", d.Checksum)
			if d.SignatureURL != "" {
				a.printf(cmd, "signature: %s\n", d.SignatureURL)
			}
			if d.BundleURL != "" {
				a.printf(cmd, "bundle:    %s\n", d.BundleURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&platformFlag, "platform", "", "target platform as os/arch instead of the detected one")
	return cmd
}
