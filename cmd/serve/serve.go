package serve

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/batprep/internal/api"
	"github.com/tphakala/batprep/internal/app"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/spectrogram"
)

type options struct {
	listen string
	warm   bool
}

// Command creates the serve command.
func Command(ctx *app.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recordings to the labeling GUI",
		Long: "Start the HTTP API that lists annotated recordings and returns their\n" +
			"playback clips and spectrogram segments. Stops on SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "Address to listen on, overrides webserver.listen")
	cmd.Flags().BoolVar(&opts.warm, "warm", false, "Pre-render spectrograms of all annotations in the background")

	return cmd
}

func run(cmd *cobra.Command, ctx *app.Context, opts *options) error {
	a, err := ctx.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Global().Module("serve").Warn("cleanup failed", logger.Error(cerr))
		}
	}()

	cfg := api.ConfigFromSettings(a.Settings)
	if opts.listen != "" {
		cfg.Listen = opts.listen
	}

	server, err := api.New(cfg, a.Service, a.Data, api.WithMetrics(a.Metrics))
	if err != nil {
		return err
	}

	if opts.warm {
		pr := spectrogram.NewPreRenderer(cmd.Context(), a.Generator,
			a.Settings.Prepare.Workers, a.Settings.Prepare.QueueSize)
		pr.Start()
		defer pr.Stop()

		go func() {
			log := logger.Global().Module("serve")
			n, err := a.Service.Warm(cmd.Context(), pr)
			if err != nil {
				log.Warn("pre-render queue incomplete", logger.Int("submitted", n), logger.Error(err))
				return
			}
			log.Info("pre-render queued", logger.Int("recordings", n))
		}()
	}

	return server.Run(cmd.Context())
}
