package prepare

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/tphakala/batprep/internal/app"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/prepare"
)

// Command creates the prepare command.
func Command(ctx *app.Context) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "prepare [annotation-dir]",
		Short: "Prepare every annotated recording in a directory",
		Long: "Compute playback clips and spectrogram segments for every *.json annotation\n" +
			"in the directory (default: audio.annotationdir) and print a summary table.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return run(cmd, ctx, dir, workers)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent recordings, overrides prepare.workers")

	return cmd
}

func run(cmd *cobra.Command, ctx *app.Context, dir string, workers int) error {
	a, err := ctx.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Global().Module("prepare").Warn("cleanup failed", logger.Error(cerr))
		}
	}()

	if workers <= 0 {
		workers = a.Settings.Prepare.Workers
	}
	runner := prepare.NewRunner(a.Service, workers)

	results, runErr := runner.Run(cmd.Context(), dir)
	if len(results) > 0 {
		writeSummary(cmd.OutOrStdout(), results, runner.Stats())
	}
	if runErr != nil {
		return runErr
	}

	if failed := runner.Stats().Failed; failed > 0 {
		return fmt.Errorf("%d of %d recordings failed", failed, len(results))
	}
	return nil
}

func writeSummary(w io.Writer, results []prepare.Result, stats prepare.Stats) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Recording", "Duration", "Rate (Hz)", "Segments", "Spectrogram", "Elapsed", "Error"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Rate (Hz)", Align: text.AlignRight},
		{Name: "Segments", Align: text.AlignRight},
		{Name: "Elapsed", Align: text.AlignRight},
		{Name: "Error", WidthMax: 60},
	})

	for _, res := range results {
		if res.Path == "" {
			continue // not started
		}
		elapsed := res.Elapsed.Round(time.Millisecond).String()
		if res.Err != nil {
			tw.AppendRow(table.Row{filepath.Base(res.Path), "", "", "", "failed", elapsed, res.Err.Error()})
			continue
		}
		sum := res.Summary
		state := "generated"
		if sum.Cached {
			state = "cached"
		}
		tw.AppendRow(table.Row{filepath.Base(res.Path), fmt.Sprintf("%.2fs", sum.Duration),
			sum.SampleRate, len(sum.Paths), state, elapsed, ""})
	}
	tw.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d/%d ok", stats.Completed+stats.Skipped, stats.Queued), "", ""})
	tw.Render()

	_, _ = fmt.Fprintf(w, "%d queued, %d generated, %d cached, %d failed\n",
		stats.Queued, stats.Completed, stats.Skipped, stats.Failed)
}
