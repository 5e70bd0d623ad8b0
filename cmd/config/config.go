package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/batprep/internal/app"
	"github.com/tphakala/batprep/internal/conf"
)

// Command creates the config command.
func Command(ctx *app.Context) *cobra.Command {
	var save string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the settings after defaults, config file and BATPREP_* environment overrides are applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if save != "" {
				if err := conf.SaveYAMLConfig(save, ctx.Settings); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", save)
				return err
			}

			data, err := ctx.Settings.MarshalYAMLBytes()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&save, "save", "", "Write the effective configuration to this file instead")

	return cmd
}
