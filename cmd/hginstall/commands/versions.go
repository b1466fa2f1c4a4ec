package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List releases in the release table",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.loadTable(cmd.Context())
			if err != nil {
				return err
			}

			latest, err := table.Latest()
			if err != nil {
				return err
			}

			versions := table.Versions()
			for i := len(versions) - 1; i >= 0; i-- {
				v := versions[i]
				var keys []string
				for _, p := range table.Platforms(v) {
					keys = append(keys, p.String())
				}

				marker := " "
				if v == latest {
					marker = "*"
				}
				a.printf(cmd, "%s %-12s %s\n", marker, v, strings.Join(keys, ", "))
			}
			return nil
		},
	}
}
