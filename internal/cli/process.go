package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/config"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/database"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process every raw file of the aim once",
	Long: `Discovers the raw files matching paths.raw_glob, writes a cleaned record and
an event file for each, and reports the units that failed. The batch is
recorded when database.enabled is set.`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store pipeline.Store
	if config.Conf.Database.Enabled {
		if err := database.Init(config.Conf.Database, log); err != nil {
			return err
		}
		store = pipeline.DBStore{}
	}

	report, err := runBatch(ctx, store)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %d processed, %d flagged, %d skipped, %d failed\n",
		report.RunID, report.Succeeded, report.Flagged, report.Skipped, report.Failed)
	for _, o := range report.Failures() {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", o.File, o.Err)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d units failed", report.Failed, len(report.Outcomes))
	}
	return nil
}

// runBatch discovers the configured raw files and processes them.
func runBatch(ctx context.Context, store pipeline.Store) (*pipeline.Report, error) {
	p, err := newProcessor("", "")
	if err != nil {
		return nil, err
	}
	files, err := pipeline.Discover(config.Conf.Paths.RawGlob)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn("No raw files found", zap.String("glob", config.Conf.Paths.RawGlob))
	}
	return p.Run(ctx, files, store)
}
