package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/posplitter/internal/models"
	"github.com/Lllllllleong/posplitter/internal/splitter"
)

var splitCmd = &cobra.Command{
	Use:   "split <input.pdf>",
	Short: "Split a PDF into one file per document",
	Long: `Split scans the input PDF page by page and writes one PDF per document
into the output folder, creating it if needed. Pages after the last
"Page N of N" marker are not written and are listed in the summary.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().StringP("out", "o", "", "output folder (default: output_dir from config)")
	splitCmd.Flags().Bool("open", false, "open the output folder after a successful split")
	splitCmd.Flags().Bool("quiet", false, "do not draw the progress bar")

	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = appConfig.OutputDir
	}
	if len(args) == 0 || outDir == "" {
		return errors.New("please select both an input file and an output folder")
	}
	input := args[0]

	quiet, _ := cmd.Flags().GetBool("quiet")
	progressOut := cmd.ErrOrStderr()
	if quiet {
		progressOut = io.Discard
	}

	sp := splitter.New(splitter.WithLogger(logger))
	report, err := runWithProgress(cmd, sp, input, outDir, progressOut)
	printReport(cmd.OutOrStdout(), report)
	if err != nil {
		return err
	}

	open, _ := cmd.Flags().GetBool("open")
	if open || appConfig.OpenFolder {
		if err := openFolder(outDir); err != nil {
			logger.Warn("Failed to open output folder.", "path", outDir, "error", err)
		}
	}
	return nil
}

// runWithProgress runs the split on a worker goroutine and draws progress
// from a second one, so the split never waits on the terminal.
func runWithProgress(cmd *cobra.Command, sp *splitter.Splitter, input, outDir string, w io.Writer) (*models.SplitReport, error) {
	progress := make(chan float64)
	g, ctx := errgroup.WithContext(cmd.Context())

	var (
		report   *models.SplitReport
		splitErr error
	)
	g.Go(func() error {
		defer close(progress)
		report, splitErr = sp.Split(ctx, input, outDir, func(f float64) {
			select {
			case progress <- f:
			case <-ctx.Done():
			}
		})
		return nil
	})
	g.Go(func() error {
		drawn := false
		for f := range progress {
			drawProgress(w, f)
			drawn = true
		}
		if drawn {
			fmt.Fprintln(w)
		}
		return nil
	})
	_ = g.Wait()
	return report, splitErr
}

const barWidth = 30

func drawProgress(w io.Writer, fraction float64) {
	filled := int(fraction * barWidth)
	fmt.Fprintf(w, "\rSplitting [%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat(" ", barWidth-filled), fraction*100)
}

func printReport(w io.Writer, r *models.SplitReport) {
	if r == nil {
		return
	}
	for _, out := range r.Outputs {
		fmt.Fprintf(w, "created: %s (%d pages)\n", out.Path, len(out.Pages))
	}
	if len(r.DiscardedPages) > 0 {
		pages := make([]string, len(r.DiscardedPages))
		for i, p := range r.DiscardedPages {
			pages[i] = fmt.Sprint(p + 1)
		}
		fmt.Fprintf(w, "warning: pages %s follow the last closing marker and were not written\n", strings.Join(pages, ", "))
	}
	// Failure messages reach the user through the returned error.
	if r.Success {
		fmt.Fprintln(w, r.Message)
	}
}
