package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/batprep/cmd/clip"
	configcmd "github.com/tphakala/batprep/cmd/config"
	"github.com/tphakala/batprep/cmd/prepare"
	"github.com/tphakala/batprep/cmd/serve"
	"github.com/tphakala/batprep/cmd/spectrogram"
	"github.com/tphakala/batprep/internal/app"
	"github.com/tphakala/batprep/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	ctx := &app.Context{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "batprep",
		Short: "Prepare bat recordings for the labeling GUI",
		Long: "batprep turns annotated ultrasonic recordings into playback clips and\n" +
			"segmented spectrogram images, and serves them to the labeling GUI.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		// flags are static, binding only fails on programming errors
		panic(err)
	}

	rootCmd.AddCommand(
		serve.Command(ctx),
		prepare.Command(ctx),
		clip.Command(ctx),
		spectrogram.Command(ctx),
		configcmd.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(ctx, configFile)
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if ctx.Logging != nil {
			return ctx.Logging.Flush()
		}
		return nil
	}

	return rootCmd
}

// initialize loads settings and sets up logging before any subcommand runs.
func initialize(ctx *app.Context, configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cl, err := app.InitLogging(settings)
	if err != nil {
		return err
	}

	ctx.Settings = settings
	ctx.Logging = cl
	return nil
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
