// Package clean turns a raw behavioral log into the cleaned record: task
// post-processing first, then column and row denylists, then null pruning.
package clean

import (
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

// DefaultDropColumns are logging-only columns that carry no analyzable signal.
var DefaultDropColumns = []string{
	"view_history", "trial_index", "internal_node_id",
	"stim_duration", "block_duration", "feedback_duration", "timing_post_trial",
	"test_start_block", "exp_id",
}

// genericRows are phases dropped from every task.
var genericRows = []string{
	"welcome", "text", "instruction", "attention_check", "end", "post task questions", "fixation",
	"practice_intro", "rest", "rest_block", "test_intro", "task_setup", "test_start_block",
}

// noTestStartBlock is genericRows without test_start_block, for tasks whose
// event builder needs the block marker rows.
var noTestStartBlock = genericRows[:len(genericRows)-1]

func with(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// dropRows lists, per experiment identifier, the trial_id values to remove.
var dropRows = map[string][]string{
	"adaptive_n_back":             with(genericRows, "update_target", "update_delay", "delay_text"),
	"attention_network_task":      with(genericRows, "spatialcue", "centercue", "doublecue", "nocue", "rest block", "intro"),
	"columbia_card_task_cold":     with(genericRows, "calculate reward", "reward", "end_instructions"),
	"columbia_card_task_hot":      with(genericRows, "calculate reward", "reward", "test_intro"),
	"columbia_card_task_fmri":     with(genericRows, "calculate reward", "reward"),
	"directed_forgetting":         with(genericRows, "ITI_fixation", "intro_test", "stim", "cue", "instruction_images"),
	"discount_fixed":              with(genericRows),
	"dot_pattern_expectancy":      with(genericRows, "instruction_images", "feedback"),
	"go_nogo":                     with(genericRows, "reset_trial"),
	"motor_selective_stop_signal": with(genericRows, "prompt_fixation", "feedback"),
	"stop_signal":                 with(genericRows, "reset", "feedback"),
	"stroop":                      with(genericRows),
	"survey_medley":               with(genericRows),
	"twobytwo":                    with(noTestStartBlock, "cue", "gap", "set_stims"),
	"tower_of_london":             with(genericRows, "advance", "practice"),
	"ward_and_allport":            with(genericRows, "practice_start_block", "reminder", "test_start_block"),
}

// DropRows returns the trial_id denylist for an experiment identifier. Unknown
// identifiers have an empty list.
func DropRows(expID string) []string {
	return dropRows[expID]
}

// Options controls the generic pass.
type Options struct {
	// DropColumns replaces DefaultDropColumns when non-nil.
	DropColumns []string
	// SkipPost disables task post-processing in Data.
	SkipPost bool
}

func (o Options) dropColumns() []string {
	if o.DropColumns != nil {
		return o.DropColumns
	}
	return DefaultDropColumns
}

// Clean applies the generic pass: column denylist, per-experiment trial_id
// denylist, fully-null rows, then fully-null columns. Absent columns are
// tolerated. Running Clean on its own output changes nothing.
func Clean(rec *table.Record, expID string, opts Options) *table.Record {
	out := rec.Clone()
	out.DropColumns(opts.dropColumns()...)
	out = Exclude(out, "trial_id", DropRows(expID)...)
	out.DropNullRows()
	out.DropNullColumns()
	return out
}

// Exclude returns the rows whose col is not one of values. Rows with a
// missing col are kept, as are all rows when col is absent.
func Exclude(rec *table.Record, col string, values ...string) *table.Record {
	if len(values) == 0 || !rec.Has(col) {
		return rec
	}
	deny := make(map[string]struct{}, len(values))
	for _, v := range values {
		deny[v] = struct{}{}
	}
	return rec.Filter(func(i int) bool {
		v := rec.Get(i, col)
		if v.IsMissing() {
			return true
		}
		_, drop := deny[v.Text()]
		return !drop
	})
}

// Data post-processes rec for its experiment and then cleans it. Unknown
// experiment identifiers skip post-processing.
func Data(rec *table.Record, expID string, opts Options) (*table.Record, error) {
	if !opts.SkipPost {
		exp, _ := models.ParseExperiment(expID)
		var err error
		if rec, err = PostProcess(rec, exp); err != nil {
			return nil, err
		}
	}
	return Clean(rec, expID, opts), nil
}
