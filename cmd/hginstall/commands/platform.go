package commands

import (
	"github.com/spf13/cobra"

	"github.com/watchthelight/hginstall/internal/platform"
)

func (a *app) newPlatformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := platform.NewDetector().Detect(cmd.Context())
			if err != nil {
				return err
			}

			a.printf(cmd, "platform: %s\n", info.Platform())
			if info.ArchRaw != info.Arch {
				a.printf(cmd, "arch:     %s (reported as %s)\n", info.Arch, info.ArchRaw)
			}
			if d := info.GetDistro(); d != nil {
				a.printf(cmd, "distro:   %s %s (%s family)\n", d.ID, d.Version, d.Family)
			}
			return nil
		},
	}
}
