package events

import (
	"strings"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

// itiDelay is how long after a feedback onset the inter-trial interval
// begins, in milliseconds.
const itiDelay = 1000

// towerEvents builds the planning task's events. The first move of each
// problem is a planning event; later moves are execution events. Both last as
// long as their response. Feedback lasts its display time and is followed by
// a synthesized ITI event.
func towerEvents(rec *table.Record, _ Options) (*table.Record, error) {
	out, err := started(rec)
	if err != nil {
		return nil, err
	}
	err = out.Require("trial_id", "exp_stage", "num_moves_made", "rt",
		"stim_duration", "block_duration", "condition")
	if err != nil {
		return nil, err
	}

	n := out.Len()
	planning := make([]table.Value, n)
	duration := make([]table.Value, n)
	for i := 0; i < n; i++ {
		planning[i] = table.Num(0)
		duration[i] = table.Num(0)

		phase := out.Get(i, "trial_id")
		stage := out.Get(i, "exp_stage")
		inTask := stage.Is("practice") || stage.Is("test")
		first := phase.Is("to_hand") && out.Get(i, "num_moves_made").Equal(table.Num(1))
		switch {
		case first:
			duration[i] = out.Get(i, "rt")
			if inTask {
				planning[i] = table.Num(1)
			}
		case phase.Is("feedback"):
			duration[i] = out.Get(i, "stim_duration")
		case inTask:
			duration[i] = out.Get(i, "rt")
		}
	}
	if err := out.InsertColumn(1, "planning", planning); err != nil {
		return nil, err
	}
	if err := insertOnset(out); err != nil {
		return nil, err
	}
	if err := out.InsertColumn(0, "duration", duration); err != nil {
		return nil, err
	}

	if err := appendITI(out); err != nil {
		return nil, err
	}
	out.SortByNumber("onset")

	if err := processRT(out); err != nil {
		return nil, err
	}
	if err := toSeconds(out, "onset", "duration", "response_time"); err != nil {
		return nil, err
	}
	out.DropColumns("feedback_duration", "possible_responses", "stim_duration",
		"text", "time_elapsed", "timing_post_trial", "trial_num")
	out.DropColumns("correct", "min_moves", "num_moves_made", "problem_time", "trial_type", "block_duration")

	for i := 0; i < out.Len(); i++ {
		if c := out.Get(i, "condition"); c.Kind() == table.Text {
			out.Set(i, "condition", table.Str(strings.ReplaceAll(c.Text(), "intermeidate", "intermediate")))
		}
	}
	return out, nil
}

// appendITI appends one ITI row per feedback row. The ITI starts itiDelay
// after the feedback onset and lasts for the rest of the feedback block.
func appendITI(rec *table.Record) error {
	onsetCol, durCol := rec.Index("onset"), rec.Index("duration")
	idCol, planCol := rec.Index("trial_id"), rec.Index("planning")
	feedback := rec.Where(func(i int) bool { return rec.Get(i, "trial_id").Is("feedback") })
	for _, i := range feedback {
		iti := rec.Row(i)
		iti[durCol] = sub(rec.Get(i, "block_duration"), rec.Get(i, "duration"))
		iti[onsetCol] = add(rec.Get(i, "onset"), table.Num(itiDelay))
		iti[idCol] = table.Str("ITI")
		iti[planCol] = table.Num(0)
		if err := rec.AppendRow(iti); err != nil {
			return err
		}
	}
	return nil
}
