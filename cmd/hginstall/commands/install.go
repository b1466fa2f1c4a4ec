package commands

import (
	"github.com/spf13/cobra"

	"github.com/watchthelight/hginstall/internal/binary"
	"github.com/watchthelight/hginstall/internal/config"
)

func (a *app) newInstallCmd() *cobra.Command {
	var platformFlag string

	cmd := &cobra.Command{
		Use:   "install [version]",
		Short: "Download, verify and install hg",
		Long: `Install resolves the release artifact for this platform, downloads it,
checks its SHA-256 against the pinned value, installs the hg executable and
runs "hg -version" to confirm the install.

Without a version the newest release in the table is installed. An existing
hg in the target directory is replaced atomically. Only builds for the
detected platform can be installed; use "resolve --platform" to look up
other platforms.

Exit codes: 0 success, 1 unknown version or unsupported platform,
2 network, extraction, filesystem or smoke test failure, 3 integrity failure.`,
		Args: checkArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePlatform(platformFlag)
			if err != nil {
				return err
			}

			m, err := a.newManager(cmd.Context(), nil)
			if err != nil {
				return err
			}

			opts := binary.InstallOptions{Platform: p, TargetDir: a.cfg.InstallDir}
			if len(args) == 1 {
				opts.Version = args[0]
			}

			result, err := m.Install(cmd.Context(), opts)
			if err != nil {
				return err
			}

			a.printf(cmd, "installed %s %s (%s) to %s\n",
				m.Table().Name(), result.Descriptor.Version, result.Platform, result.Binary.Path)
			if result.Replaced {
				a.printf(cmd, "  replaced the previous %s\n", m.Table().Name())
			}
			a.printf(cmd, "  verified: %s\n", result.Verified.String())
			for _, skipped := range result.Verified.Skipped {
				a.printf(cmd, "  skipped:  %s (no key material configured)\n", skipped)
			}
			return nil
		},
	}

	cmd.Flags().String("dir", "", "install directory (default: $HOME/.local/bin)")
	cmd.Flags().StringVar(&platformFlag, "platform", "", "require this os/arch; fails unless it is the detected platform")
	_ = a.v.BindPFlag(config.KeyInstallDir, cmd.Flags().Lookup("dir"))

	return cmd
}
