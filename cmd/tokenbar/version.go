package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tokenbar/tokenbar/internal/appupdate"
	"github.com/tokenbar/tokenbar/internal/version"
)

func NewVersionCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:          "version",
		Short:        "Print the tokenbar version.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Println("tokenbar " + version.String())
			if !check {
				return nil
			}

			res, err := appupdate.Check(cmd.Context(), appupdate.CheckOptions{CurrentVersion: version.Version})
			if err != nil {
				fmt.Printf("Update check skipped: %v\n", err)
				return nil
			}
			switch {
			case res.UpdateAvailable:
				fmt.Printf("Update available: %s (installed %s)\n", res.LatestVersion, res.CurrentVersion)
				if res.UpgradeHint != "" {
					fmt.Println(res.UpgradeHint)
				}
			case res.LatestVersion == "":
				fmt.Println("Release check skipped for a non-release build.")
			default:
				fmt.Println("Up to date.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}
