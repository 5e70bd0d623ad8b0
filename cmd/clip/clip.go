package clip

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/batprep/internal/annotation"
	"github.com/tphakala/batprep/internal/app"
	"github.com/tphakala/batprep/internal/clip"
	"github.com/tphakala/batprep/internal/logger"
)

type options struct {
	output     string
	base64     bool
	annotation string
}

// Command creates the clip command.
func Command(ctx *app.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "clip <annotation.json>",
		Short: "Build the playback clip of an annotated recording",
		Long: "Load the recording described by an annotation and encode it as a slowed\n" +
			"down WAV clip. Without -o or --base64 only the clip parameters are printed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.annotation = args[0]
			return run(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the WAV clip to this file")
	cmd.Flags().BoolVar(&opts.base64, "base64", false, "Print the base64 encoded clip to stdout")
	cmd.MarkFlagsMutuallyExclusive("output", "base64")

	return cmd
}

func run(cmd *cobra.Command, ctx *app.Context, opts *options) error {
	a, err := ctx.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Global().Module("clip").Warn("cleanup failed", logger.Error(cerr))
		}
	}()

	ann, err := annotation.Load(opts.annotation)
	if err != nil {
		return err
	}

	res, err := a.Encoder.ComputeAudioData(cmd.Context(), ann, a.Settings.Audio.Dir)
	if err != nil {
		return err
	}

	return writeClip(cmd.OutOrStdout(), res, opts)
}

func writeClip(w io.Writer, res *clip.AudioResult, opts *options) error {
	switch {
	case opts.base64:
		_, err := fmt.Fprintln(w, res.WAVBase64)
		return err
	case opts.output != "":
		data, err := base64.StdEncoding.DecodeString(res.WAVBase64)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.output, data, 0o644); err != nil { //nolint:gosec // audio clip meant to be shared
			return fmt.Errorf("failed to write clip: %w", err)
		}
		_, err = fmt.Fprintf(w, "wrote %s (%d bytes)\n", opts.output, len(data))
		return err
	default:
		_, err := fmt.Fprintf(w, "sample rate:    %d Hz\nplayback rate:  %d Hz (x%g slower)\nduration:       %.3f s\nclip size:      %d bytes base64\n",
			res.SampleRate, res.PlaybackRate, res.PlaybackTimeExpansion, res.Duration, len(res.WAVBase64))
		return err
	}
}
