package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
)

var outDir string

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Clean a single raw file and build its event file",
	Args:  cobra.ExactArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&outDir, "out", "o", "", "Write both outputs to this directory instead of the configured ones")
}

func runClean(cmd *cobra.Command, args []string) error {
	p, err := newProcessor(outDir, outDir)
	if err != nil {
		return err
	}

	out := p.ProcessFile(cmd.Context(), args[0])
	switch out.Status {
	case models.StatusFailed:
		return fmt.Errorf("%s: %w", out.File, out.Err)
	case models.StatusSkipped:
		reason := "rest scan"
		if out.Err != nil {
			reason = out.Err.Error()
		}
		fmt.Printf("%s skipped: %s\n", out.File, reason)
		return nil
	}

	fmt.Printf("%s (%s): %d cleaned rows -> %s\n", out.File, out.ExperimentID, out.CleanedRows, out.CleanedPath)
	if out.EventsPath != "" {
		fmt.Printf("%d events -> %s\n", out.EventRows, out.EventsPath)
	}
	if out.Status == models.StatusFlagged {
		fmt.Println("warning: event file has negative onsets or durations")
	}
	return nil
}
