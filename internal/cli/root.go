package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/config"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/corrections"
	logger "github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/logging"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/pipeline"
)

var (
	verbose bool
	root    string
	aim     string
	rootCmd *cobra.Command

	// log is set by setup before any subcommand runs.
	log *zap.Logger
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "behav",
		Short: "Behavioral log cleaning and BIDS event file generation",
		Long: `behav turns raw per-subject jsPsych task logs into cleaned records and
BIDS-style event files, scores each event file and optionally keeps a history
of batches in a database.`,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&root, "root", ".", "Project root holding config/config.yaml")
	rootCmd.PersistentFlags().StringVar(&aim, "aim", "", "Aim to process (overrides the configured aim)")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.Version = version
	defer func() {
		if log != nil {
			_ = log.Sync()
		}
	}()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// setup loads configuration and the logger shared by every command.
func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}
	console := logger.Console(verbose)
	if err := config.Init(root, console); err != nil {
		return err
	}
	if aim != "" {
		config.Conf.Aim = aim
	}

	l, err := logger.Init(config.Conf.Logging, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = l.With(zap.String("aim", config.Conf.Aim))
	return nil
}

// newProcessor builds a processor from the loaded configuration. Empty
// output directories fall back to the configured paths.
func newProcessor(processedDir, eventsDir string) (*pipeline.Processor, error) {
	table := corrections.Default()
	if file := config.Conf.Corrections.File; file != "" {
		t, err := corrections.Load(file)
		if err != nil {
			return nil, err
		}
		table = t
	}
	if processedDir == "" {
		processedDir = config.Conf.Paths.ProcessedDir
	}
	if eventsDir == "" {
		eventsDir = config.Conf.Paths.EventsDir
	}
	return pipeline.New(log, pipeline.Options{
		Aim:          config.Conf.Aim,
		ProcessedDir: processedDir,
		EventsDir:    eventsDir,
		Workers:      config.Conf.Pipeline.Workers,
		Duration:     config.Conf.DurationOverride(),
		Corrections:  table,
	}), nil
}
