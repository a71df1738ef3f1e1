// Package pipeline drives a batch: it discovers raw subject-task files, turns
// each into a cleaned record and an event file, scores the event file and
// optionally records the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/clean"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/corrections"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/events"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/metrics"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

var (
	// ErrFilenameMismatch means the experiment recorded in a file does not
	// match the task named by its filename.
	ErrFilenameMismatch = errors.New("filename does not match experiment")
	// ErrUnknownExperiment means the experiment identifier is not one the
	// pipeline knows.
	ErrUnknownExperiment = errors.New("unknown experiment")
	// ErrNoTrigger means the log has no scanner trigger row to align to.
	ErrNoTrigger = errors.New("no fmri_trigger_wait row")
)

// DriverDropColumns replaces the cleaner's default column denylist for
// batch runs. Timing columns are kept for the event builders.
var DriverDropColumns = []string{
	"view_history", "stimulus", "trial_index", "internal_node_id",
	"test_start_block", "exp_id", "trigger_times",
}

// scannerRows are acquisition phases removed after cleaning.
var scannerRows = []string{
	"fmri_response_test", "fmri_scanner_wait", "fmri_trigger_wait", "fmri_buffer",
	"scanner_wait", "scanner_rest", "end",
}

const (
	triggerRow     = "fmri_trigger_wait"
	fmriTypo       = "__fmri"
	cardTaskHotID  = "columbia_card_task_hot"
	cardTaskFMRIID = "columbia_card_task_fmri"
)

// Options configures a Processor.
type Options struct {
	Aim          string
	ProcessedDir string
	EventsDir    string
	Workers      int
	// Duration overrides stim_duration as the event duration, in ms.
	Duration    *float64
	Corrections *corrections.Table
	Survey      *models.SurveyItems
}

// Outcome is the result of processing one subject-task file.
type Outcome struct {
	Path         string
	File         string
	Subject      string
	ExperimentID string
	Experiment   models.Experiment
	Status       string
	Err          error

	CleanedPath    string
	EventsPath     string
	CleanedRows    int
	EventRows      int
	DroppedColumns []string
	Metrics        metrics.Results
}

// Processor turns raw files into cleaned records and event files.
type Processor struct {
	log  *zap.Logger
	opts Options
}

func New(log *zap.Logger, opts Options) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Corrections == nil {
		opts.Corrections = corrections.Default()
	}
	if opts.Survey == nil {
		opts.Survey = models.DefaultSurveyItems()
	}
	return &Processor{log: log, opts: opts}
}

// Discover returns the files matching pattern in lexical order.
func Discover(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("discover %q: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

// Subject returns the worker id encoded as the first token of a filename.
func Subject(file string) string {
	base := filepath.Base(file)
	if i := strings.IndexByte(base, '_'); i >= 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputNames returns the cleaned and event filenames derived from a raw file.
func OutputNames(file string) (cleaned, eventFile string) {
	base := filepath.Base(file)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_cleaned.csv", stem + "_events.tsv"
}

// ExperimentID reads the experiment identifier from the exp_id column of the
// second to last row, falling back to the filename after the subject token.
// The __fmri typo is removed.
func ExperimentID(rec *table.Record, file string) string {
	var id string
	if rec.Has("exp_id") && rec.Len() >= 2 {
		id = rec.Get(rec.Len()-2, "exp_id").Text()
	}
	if id == "" {
		base := strings.TrimSuffix(filepath.Base(file), ".csv")
		if i := strings.IndexByte(base, '_'); i >= 0 {
			id = base[i+1:]
		}
	}
	return strings.ReplaceAll(id, fmriTypo, "")
}

// ProcessFile runs one raw file through alignment, corrections, cleaning and
// event construction, writing the cleaned record and, when the experiment has
// a builder, the event file. Errors are reported on the Outcome.
func (p *Processor) ProcessFile(ctx context.Context, path string) Outcome {
	out := Outcome{Path: path, File: filepath.Base(path), Subject: Subject(path)}
	log := p.log.With(zap.String("file", out.File), zap.String("subject", out.Subject))

	if err := ctx.Err(); err != nil {
		return out.fail(err)
	}

	rec, err := table.ReadFile(path)
	if err != nil {
		out = out.fail(err)
		log.Error("Failed to read raw file", zap.Error(err))
		return out
	}
	out.ExperimentID = ExperimentID(rec, path)
	log = log.With(zap.String("experiment", out.ExperimentID))

	if out.ExperimentID == models.Rest.ID() {
		out.Experiment = models.Rest
		out.Status = models.StatusSkipped
		log.Info("Skipping rest scan")
		return out
	}

	cleaned, err := p.prepare(rec, &out)
	if err != nil {
		out = out.fail(err)
		if errors.Is(err, ErrUnknownExperiment) {
			out.Status = models.StatusSkipped
			log.Warn("Skipping file with unknown experiment", zap.Error(err))
		} else {
			log.Error("Failed to clean file", zap.Error(err))
		}
		return out
	}

	cleanedName, eventName := OutputNames(path)
	out.CleanedPath = filepath.Join(p.opts.ProcessedDir, cleanedName)
	if err := writeOutput(out.CleanedPath, cleaned, table.WriteCSVFile); err != nil {
		log.Error("Failed to write cleaned file", zap.Error(err))
		return out.fail(err)
	}
	out.CleanedRows = cleaned.Len()

	evs, ok, err := events.Create(cleaned, out.Experiment, events.Options{
		Aim:      p.opts.Aim,
		Duration: p.opts.Duration,
		Survey:   p.opts.Survey,
	})
	if err != nil {
		log.Error("Failed to build events", zap.Error(err))
		return out.fail(err)
	}
	out.Status = models.StatusOK
	if !ok {
		log.Warn("No event builder for experiment, event file not created")
		return out
	}

	out.EventsPath = filepath.Join(p.opts.EventsDir, eventName)
	if err := writeOutput(out.EventsPath, evs, table.WriteTSVFile); err != nil {
		log.Error("Failed to write event file", zap.Error(err))
		return out.fail(err)
	}
	out.EventRows = evs.Len()

	out.Metrics = metrics.Calculate(evs)
	if out.Metrics.Flagged() {
		out.Status = models.StatusFlagged
		log.Warn("Event file has negative or missing onsets or durations",
			zap.Float64("negative_onsets", out.Metrics[metrics.NegativeOnsetCount].Value),
			zap.Float64("negative_durations", out.Metrics[metrics.NegativeDurationCount].Value),
			zap.Float64("missing_onsets", out.Metrics[metrics.MissingOnsetCount].Value),
			zap.Float64("missing_durations", out.Metrics[metrics.MissingDurationCount].Value),
		)
	}
	log.Debug("Processed file", zap.Int("cleaned_rows", out.CleanedRows), zap.Int("event_rows", out.EventRows))
	return out
}

// prepare validates, aligns, corrects and cleans a raw record, filling in
// the experiment fields of out. The experiment is resolved before any timing
// work so unknown logs are skipped whatever their contents.
func (p *Processor) prepare(rec *table.Record, out *Outcome) (*table.Record, error) {
	exp, ok := models.ParseExperiment(out.ExperimentID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExperiment, out.ExperimentID)
	}
	if short, ok := exp.ShortName(); !ok || !strings.Contains(out.File, short) {
		return nil, fmt.Errorf("%w: %s is not a %s file", ErrFilenameMismatch, out.File, out.ExperimentID)
	}
	if out.ExperimentID == cardTaskHotID {
		out.ExperimentID = cardTaskFMRIID
		exp = models.ColumbiaCardFMRI
	}
	out.Experiment = exp

	if err := alignToTrigger(rec); err != nil {
		return nil, err
	}
	rec, err := p.opts.Corrections.Apply(out.File, rec)
	if err != nil {
		return nil, fmt.Errorf("apply corrections: %w", err)
	}

	rec.AddColumn("experiment_exp_id", table.Str(out.ExperimentID))
	rec.AddColumn("worker_id", table.Str(out.Subject))

	before := rec.Columns()
	cleaned, err := clean.Data(rec, out.ExperimentID, clean.Options{DropColumns: DriverDropColumns})
	if err != nil {
		return nil, fmt.Errorf("post-process %s: %w", out.ExperimentID, err)
	}
	cleaned = clean.Exclude(cleaned, "trial_type", "text")
	cleaned = clean.Exclude(cleaned, "trial_id", scannerRows...)
	out.DroppedColumns = dropped(before, cleaned.Columns())
	return cleaned, nil
}

// alignToTrigger re-references time_elapsed to the last scanner trigger row.
func alignToTrigger(rec *table.Record) error {
	if err := rec.Require("trial_id", "time_elapsed"); err != nil {
		return err
	}
	rows := rec.Where(func(i int) bool { return rec.Get(i, "trial_id").Is(triggerRow) })
	if len(rows) == 0 {
		return ErrNoTrigger
	}
	start, ok := rec.Get(rows[len(rows)-1], "time_elapsed").Float()
	if !ok {
		return fmt.Errorf("%w: trigger row has no time_elapsed", ErrNoTrigger)
	}
	for i := 0; i < rec.Len(); i++ {
		if t, ok := rec.Get(i, "time_elapsed").Float(); ok {
			rec.Set(i, "time_elapsed", table.Num(t-start))
		}
	}
	return nil
}

func dropped(before, after []string) []string {
	kept := make(map[string]struct{}, len(after))
	for _, c := range after {
		kept[c] = struct{}{}
	}
	var out []string
	for _, c := range before {
		if _, ok := kept[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func writeOutput(path string, rec *table.Record, write func(string, *table.Record) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return write(path, rec)
}

func (o Outcome) fail(err error) Outcome {
	o.Status = models.StatusFailed
	o.Err = err
	return o
}
