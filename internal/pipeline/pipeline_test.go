package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

const dpxLog = `trial_id,time_elapsed,block_duration,stim_duration,rt,correct,condition,trial_type,view_history,exp_id
fmri_trigger_wait,1000,,,-1,,,poldrack-text,x,dot_pattern_expectancy
probe,8000,2000,500,450,true,AX,poldrack-single-stim,x,dot_pattern_expectancy
probe,11000,2000,500,-1,false,BY,poldrack-single-stim,x,dot_pattern_expectancy
end,12000,,,,,,text,x,dot_pattern_expectancy
`

const mismatchLog = `trial_id,time_elapsed,exp_id
fmri_trigger_wait,1000,stop_signal
stim,2000,stop_signal
end,3000,stop_signal
`

const unknownLog = `trial_id,time_elapsed,exp_id
fmri_trigger_wait,1000,mystery_task
stim,2000,mystery_task
end,3000,mystery_task
`

const untriggeredUnknownLog = `trial_id,time_elapsed,exp_id
stim,2000,mystery_task
end,3000,mystery_task
`

const restLog = `trial_id,time_elapsed,exp_id
scanner_wait,1000,rest
end,2000,rest
`

func writeRaw(t *testing.T, dir, name, content string) string {
	t.Helper()
	subjectDir := filepath.Join(dir, "raw", Subject(name))
	if err := os.MkdirAll(subjectDir, 0o755); err != nil {
		t.Fatalf("Failed to create raw dir: %v", err)
	}
	path := filepath.Join(subjectDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write raw file: %v", err)
	}
	return path
}

func newProcessor(dir string) *Processor {
	return New(zap.NewNop(), Options{
		Aim:          "aim1",
		ProcessedDir: filepath.Join(dir, "processed"),
		EventsDir:    filepath.Join(dir, "events"),
		Workers:      2,
	})
}

type memStore struct {
	mu       sync.Mutex
	runs     []*models.ProcessingRun
	units    []*models.UnitResult
	metrics  map[string][]models.UnitMetric
	finished *models.ProcessingRun
}

func (s *memStore) CreateRun(_ context.Context, run *models.ProcessingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *memStore) SaveUnit(_ context.Context, unit *models.UnitResult, metrics []models.UnitMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics == nil {
		s.metrics = make(map[string][]models.UnitMetric)
	}
	s.units = append(s.units, unit)
	s.metrics[unit.File] = metrics
	return nil
}

func (s *memStore) FinishRun(_ context.Context, run *models.ProcessingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = run
	return nil
}

func TestProcessFileDotPattern(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeRaw(t, dir, "s001_DPX.csv", dpxLog)

	out := newProcessor(dir).ProcessFile(context.Background(), path)
	if out.Err != nil {
		t.Fatalf("ProcessFile failed: %v", out.Err)
	}
	if out.Status != models.StatusOK {
		t.Errorf("Status = %q, want %q", out.Status, models.StatusOK)
	}
	if out.Experiment != models.DotPatternExpectancy || out.Subject != "s001" {
		t.Errorf("Unexpected identity %s / %s", out.Experiment, out.Subject)
	}
	if out.CleanedRows != 2 || out.EventRows != 2 {
		t.Errorf("Expected 2 cleaned and 2 event rows, got %d and %d", out.CleanedRows, out.EventRows)
	}

	cleaned, err := table.ReadFile(out.CleanedPath)
	if err != nil {
		t.Fatalf("Failed to read cleaned file: %v", err)
	}
	for _, col := range []string{"view_history", "exp_id"} {
		if cleaned.Has(col) {
			t.Errorf("Expected %s to be dropped from the cleaned file", col)
		}
	}
	if !cleaned.Get(0, "experiment_exp_id").Is("dot_pattern_expectancy") || !cleaned.Get(1, "worker_id").Is("s001") {
		t.Errorf("Expected experiment_exp_id and worker_id columns, got %v", cleaned.Columns())
	}
	if got, _ := cleaned.Get(0, "time_elapsed").Float(); got != 7000 {
		t.Errorf("Expected time aligned to the trigger, got %v", got)
	}

	if !strings.HasSuffix(out.EventsPath, "s001_DPX_events.tsv") {
		t.Errorf("Unexpected events path %s", out.EventsPath)
	}
	evs, err := table.ReadFile(out.EventsPath)
	if err != nil {
		t.Fatalf("Failed to read event file: %v", err)
	}
	if cols := evs.Columns(); cols[0] != "onset" || cols[1] != "duration" {
		t.Errorf("Expected onset and duration first, got %v", cols)
	}
	for i, want := range []float64{5, 8} {
		if got, _ := evs.Get(i, "onset").Float(); got != want {
			t.Errorf("row %d onset = %v, want %v", i, got, want)
		}
	}
	if !evs.Get(1, "response_time").IsMissing() {
		t.Errorf("Expected a missing response time for the unanswered trial")
	}
	if !evs.Get(1, "trial_type").Is("BY") {
		t.Errorf("Expected trial_type from condition, got %q", evs.Get(1, "trial_type").Text())
	}

	raw, err := os.ReadFile(out.EventsPath)
	if err != nil {
		t.Fatalf("Failed to read event file: %v", err)
	}
	if !strings.Contains(string(raw), "n/a") {
		t.Errorf("Expected missing cells written as n/a:\n%s", raw)
	}
}

func TestProcessFileErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		file    string
		content string
		status  string
		err     error
	}{
		{"filename mismatch", "s001_stroop.csv", mismatchLog, models.StatusFailed, ErrFilenameMismatch},
		{"unknown experiment", "s001_mystery.csv", unknownLog, models.StatusSkipped, ErrUnknownExperiment},
		{"unknown experiment without trigger", "s001_mystery.csv", untriggeredUnknownLog, models.StatusSkipped, ErrUnknownExperiment},
		{"rest scan", "s001_rest.csv", restLog, models.StatusSkipped, nil},
		{"no trigger", "s001_DPX.csv", "trial_id,time_elapsed,exp_id\nstim,100,dot_pattern_expectancy\nend,200,dot_pattern_expectancy\n", models.StatusFailed, ErrNoTrigger},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			path := writeRaw(t, dir, tc.file, tc.content)

			out := newProcessor(dir).ProcessFile(context.Background(), path)
			if out.Status != tc.status {
				t.Errorf("Status = %q, want %q", out.Status, tc.status)
			}
			if tc.err == nil && out.Err != nil {
				t.Errorf("Expected no error, got %v", out.Err)
			}
			if tc.err != nil && !errors.Is(out.Err, tc.err) {
				t.Errorf("Expected %v, got %v", tc.err, out.Err)
			}
			if out.CleanedPath != "" || out.EventsPath != "" {
				t.Errorf("Expected no output for a rejected file")
			}
		})
	}
}

func TestRunBatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeRaw(t, dir, "s001_DPX.csv", dpxLog)
	writeRaw(t, dir, "s001_stroop.csv", mismatchLog)
	writeRaw(t, dir, "s001_mystery.csv", unknownLog)
	writeRaw(t, dir, "s002_rest.csv", restLog)

	files, err := Discover(filepath.Join(dir, "raw", "*", "*.csv"))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("Expected 4 files, got %d", len(files))
	}

	store := &memStore{}
	report, err := newProcessor(dir).Run(context.Background(), files, store)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 1 || report.Skipped != 2 || report.Failed != 1 || report.Flagged != 0 {
		t.Errorf("Unexpected counts %+v", report)
	}
	if failures := report.Failures(); len(failures) != 1 || failures[0].File != "s001_stroop.csv" {
		t.Errorf("Unexpected failures %+v", failures)
	}

	if len(store.runs) != 1 || store.runs[0].ID != report.RunID {
		t.Fatalf("Expected the run to be created once")
	}
	if len(store.units) != 4 {
		t.Errorf("Expected 4 saved units, got %d", len(store.units))
	}
	if store.finished == nil || store.finished.Total != 4 || store.finished.FinishedAt == nil {
		t.Errorf("Expected a finished run with 4 units, got %+v", store.finished)
	}
	if len(store.metrics["s001_DPX.csv"]) == 0 {
		t.Errorf("Expected metrics saved for the processed unit")
	}
	if len(store.metrics["s002_rest.csv"]) != 0 {
		t.Errorf("Expected no metrics for a skipped unit")
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeRaw(t, dir, "s001_DPX.csv", dpxLog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newProcessor(dir).Run(ctx, []string{path}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failed != 1 || !errors.Is(report.Outcomes[0].Err, context.Canceled) {
		t.Errorf("Expected the unit to fail with the context error, got %+v", report.Outcomes[0])
	}
}

func TestExperimentID(t *testing.T) {
	t.Parallel()

	withColumn, err := table.Read(strings.NewReader("exp_id\nstroop__fmri\nstroop__fmri\n"), table.Comma)
	if err != nil {
		t.Fatal(err)
	}
	withoutColumn, err := table.Read(strings.NewReader("trial_id\nstim\n"), table.Comma)
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name string
		rec  *table.Record
		file string
		want string
	}{
		{"column with typo", withColumn, "s001_stroop.csv", "stroop"},
		{"filename", withoutColumn, "/raw/s001/s001_motor_selective_stop_signal.csv", "motor_selective_stop_signal"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExperimentID(tc.rec, tc.file); got != tc.want {
				t.Errorf("ExperimentID = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestOutputNames(t *testing.T) {
	t.Parallel()
	cleaned, eventFile := OutputNames("/raw/s001/s001_DPX.csv")
	if cleaned != "s001_DPX_cleaned.csv" || eventFile != "s001_DPX_events.tsv" {
		t.Errorf("OutputNames = %q, %q", cleaned, eventFile)
	}
}
