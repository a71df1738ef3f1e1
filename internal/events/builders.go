package events

import (
	"fmt"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

// stopDrop are the stop-signal columns summarized by trial_type.
var stopDrop = []string{
	"condition", "SS_duration", "SS_stimulus", "SS_trial_type",
	"block_duration", "correct", "trial_id",
}

func attentionNetworkEvents(rec *table.Record, opts Options) (*table.Record, error) {
	return skeleton{drop: []string{"trial_type", "block_duration", "trial_id"}}.build(rec, opts)
}

func discountEvents(rec *table.Record, opts Options) (*table.Record, error) {
	return skeleton{
		drop:   []string{"trial_id", "block_duration"},
		derive: func(r *table.Record) error { return copyColumn(r, "trial_type", "choice") },
	}.build(rec, opts)
}

func dotPatternEvents(rec *table.Record, opts Options) (*table.Record, error) {
	return skeleton{
		drop:   []string{"block_duration"},
		derive: func(r *table.Record) error { return copyColumn(r, "trial_type", "condition") },
	}.build(rec, opts)
}

func stroopEvents(rec *table.Record, opts Options) (*table.Record, error) {
	return skeleton{
		drop:    []string{"block_duration", "trial_id"},
		seconds: []string{"block_duration"},
		derive:  func(r *table.Record) error { return copyColumn(r, "trial_type", "condition") },
	}.build(rec, opts)
}

func stopSignalEvents(rec *table.Record, opts Options) (*table.Record, error) {
	return skeleton{
		drop:    stopDrop,
		seconds: []string{"block_duration", "SS_delay"},
		derive:  labelStopSignal,
	}.build(rec, opts)
}

// labelStopSignal labels stop trials by outcome and every other trial as go.
// Successful stops count as correct.
func labelStopSignal(rec *table.Record) error {
	if err := rec.Require("SS_trial_type", "stopped"); err != nil {
		return err
	}
	labels := make([]table.Value, rec.Len())
	for i := range labels {
		labels[i] = table.Str("go")
		if !rec.Get(i, "SS_trial_type").Is("stop") {
			continue
		}
		switch stopped, ok := rec.Get(i, "stopped").Truth(); {
		case ok && stopped:
			labels[i] = table.Str("stop_success")
			rec.Set(i, "correct", table.Num(1))
		case ok:
			labels[i] = table.Str("stop_failure")
		}
	}
	if err := rec.SetColumn("condition", labels); err != nil {
		return err
	}
	return rec.SetColumn("trial_type", labels)
}

func motorStopEvents(rec *table.Record, opts Options) (*table.Record, error) {
	return skeleton{
		drop:    stopDrop,
		seconds: []string{"SS_delay"},
		derive:  labelMotorStop,
	}.build(rec, opts)
}

// motorStopLabel is keyed by (critical key, SS_trial_type, stopped).
type motorStopLabel struct {
	critical bool
	signal   string
	stopped  bool
}

var motorStopLabels = map[motorStopLabel]string{
	{true, "go", false}:    "crit_go",
	{true, "go", true}:     "crit_go",
	{true, "stop", true}:   "crit_stop_success",
	{true, "stop", false}:  "crit_stop_failure",
	{false, "stop", false}: "noncrit_signal",
	{false, "stop", true}:  "noncrit_signal",
	{false, "go", false}:   "noncrit_nosignal",
	{false, "go", true}:    "noncrit_nosignal",
}

// labelMotorStop labels trials by whether their response key is the one this
// subject had to stop ("stop" condition) or could ignore signals for. The key
// mapping varies across subjects, so it is read from the record.
func labelMotorStop(rec *table.Record) error {
	if err := rec.Require("condition", "correct_response", "SS_trial_type", "stopped"); err != nil {
		return err
	}
	critKey, err := firstResponseKey(rec, "stop")
	if err != nil {
		return err
	}
	noncritKey, err := firstResponseKey(rec, "ignore")
	if err != nil {
		return err
	}

	labels := make([]table.Value, rec.Len())
	for i := range labels {
		key := rec.Get(i, "correct_response")
		stopped, known := rec.Get(i, "stopped").Truth()
		var critical bool
		switch {
		case key.Equal(critKey):
			critical = true
		case key.Equal(noncritKey):
		default:
			known = false
		}
		label, ok := motorStopLabels[motorStopLabel{critical, rec.Get(i, "SS_trial_type").Text(), stopped}]
		if !known || !ok {
			return fmt.Errorf("%w: row %d (correct_response %s, SS_trial_type %s, stopped %s)",
				ErrUnlabeledRow, i, key, rec.Get(i, "SS_trial_type"), rec.Get(i, "stopped"))
		}
		labels[i] = table.Str(label)
	}
	return rec.SetColumn("trial_type", labels)
}

func firstResponseKey(rec *table.Record, condition string) (table.Value, error) {
	for i := 0; i < rec.Len(); i++ {
		if rec.Get(i, "condition").Is(condition) {
			return rec.Get(i, "correct_response"), nil
		}
	}
	return table.Null(), fmt.Errorf("%w: no %q trials to read the response key from", ErrEmptyLookup, condition)
}

func surveyEvents(rec *table.Record, opts Options) (*table.Record, error) {
	items := opts.Survey
	if items == nil {
		items = models.DefaultSurveyItems()
	}
	ids := items.ItemIDs()
	return skeleton{
		noDefaultDrop: true,
		drop: []string{
			"block_duration", "response", "options", "stim_duration", "text",
			"time_elapsed", "timing_post_trial", "trial_id", "item_responses",
		},
		derive: func(r *table.Record) error {
			if err := r.Require("item_text"); err != nil {
				return err
			}
			labels := make([]table.Value, r.Len())
			for i := range labels {
				if id, ok := ids[r.Get(i, "item_text").Text()]; ok {
					labels[i] = table.Str(id)
				}
			}
			return r.SetColumn("trial_type", labels)
		},
	}.build(rec, opts)
}

func twoByTwoEvents(rec *table.Record, opts Options) (*table.Record, error) {
	out, err := skeleton{
		drop:    []string{"block_duration", "trial_id", "trial_type"},
		seconds: []string{"CTI", "block_duration"},
		derive:  markFirstTrials,
	}.build(rec, opts)
	if err != nil {
		return nil, err
	}
	out.Replace(func(v table.Value) table.Value {
		if v.Is("#1F45FC") {
			return table.Str("blue")
		}
		return v
	})
	return out, nil
}

// markFirstTrials flags the trial after each block-start marker and then
// removes the markers.
func markFirstTrials(rec *table.Record) error {
	if err := rec.Require("trial_id"); err != nil {
		return err
	}
	first := make([]table.Value, rec.Len())
	for i := range first {
		first[i] = table.Num(0)
	}
	for i := 0; i+1 < rec.Len(); i++ {
		if rec.Get(i, "trial_id").Is("test_start_block") {
			first[i+1] = table.Num(1)
		}
	}
	if err := rec.SetColumn("first_trial_of_block", first); err != nil {
		return err
	}
	*rec = *rec.Filter(func(i int) bool { return !rec.Get(i, "trial_id").Is("test_start_block") })
	return nil
}

// cardTaskEvents uses response times as durations and splits each ITI row into
// the feedback display and the remaining wait.
func cardTaskEvents(rec *table.Record, _ Options) (*table.Record, error) {
	out, err := started(rec)
	if err != nil {
		return nil, err
	}
	if err := out.Require("trial_id", "stim_duration", "block_duration"); err != nil {
		return nil, err
	}
	if err := insertCopy(out, "duration", "rt"); err != nil {
		return nil, err
	}
	if err := insertOnset(out); err != nil {
		return nil, err
	}
	if err := splitITI(out); err != nil {
		return nil, err
	}
	if err := processRT(out); err != nil {
		return nil, err
	}
	if err := toSeconds(out, "response_time", "onset", "duration"); err != nil {
		return nil, err
	}
	dropColumns(out, []string{"cards_left", "round_points", "which_round", "trial_type", "block_duration"}, true)
	return out, nil
}

// splitITI replaces every ITI row with a feedback row lasting stim_duration
// and an ITI row covering the rest of the block.
func splitITI(rec *table.Record) error {
	onsetCol, durCol, idCol := rec.Index("onset"), rec.Index("duration"), rec.Index("trial_id")
	for i := rec.Len() - 1; i >= 0; i-- {
		if !rec.Get(i, "trial_id").Is("ITI") {
			continue
		}
		stim := rec.Get(i, "stim_duration")

		feedback := rec.Row(i)
		feedback[durCol] = stim
		feedback[idCol] = table.Str("feedback")

		iti := rec.Row(i)
		iti[durCol] = sub(rec.Get(i, "block_duration"), stim)
		iti[onsetCol] = add(rec.Get(i, "onset"), stim)

		if err := rec.Splice(i, feedback, iti); err != nil {
			return err
		}
	}
	return nil
}
