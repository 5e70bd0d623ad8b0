package spectrogram

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/batprep/internal/annotation"
	"github.com/tphakala/batprep/internal/app"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/spectrogram"
)

// Command creates the spectrogram command.
func Command(ctx *app.Context) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "spectrogram <annotation.json>",
		Short: "Compute the spectrogram segments of an annotated recording",
		Long: "Compute (or find in the cache) the segmented spectrogram of the recording\n" +
			"described by an annotation and print the segment image paths.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Discard cached segments and recompute")

	return cmd
}

func run(cmd *cobra.Command, ctx *app.Context, path string, force bool) error {
	a, err := ctx.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Global().Module("spectrogram").Warn("cleanup failed", logger.Error(cerr))
		}
	}()

	ann, err := annotation.Load(path)
	if err != nil {
		return err
	}

	audioPath := ann.AudioPath(a.Settings.Audio.Dir)
	if force {
		if err := a.Generator.Invalidate(audioPath); err != nil {
			return err
		}
	}

	res, err := a.Service.ImageData(cmd.Context(), ann)
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), res)
}

func writeResult(w io.Writer, res *spectrogram.ImageResult) error {
	state := "generated"
	if res.Cached {
		state = "cached"
	}
	if _, err := fmt.Fprintf(w, "%s: %dx%d, %d segments (%s)\n",
		res.Reference, res.Width, res.Height, len(res.Paths), state); err != nil {
		return err
	}
	for _, p := range res.Paths {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}
