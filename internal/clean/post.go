package clean

import (
	"errors"
	"fmt"
	"math"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

// ErrNoPrecedingRow is returned when a row that inherits from the row before
// it is the first row of the record.
var ErrNoPrecedingRow = errors.New("no preceding row")

// noResponse is the key_press and rt value logged when a subject did not respond.
const noResponse = -1

type postFunc func(*table.Record) error

var postProcessors = map[models.Experiment]postFunc{
	models.AttentionNetwork:     correctAsFloat,
	models.ColumbiaCardFMRI:     cardTaskPost,
	models.DotPatternExpectancy: dotPatternPost,
	models.MotorSelectiveStop:   stopSignalPost,
	models.StopSignal:           stopSignalPost,
	models.Stroop:               correctAsFloat,
	models.TwoByTwo:             twoByTwoPost,
	models.WardAndAllport:       towerPost,
}

// PostProcess adds the task-specific derived columns for exp and sorts the
// columns by name. Experiments without a post-processor only get the sort.
func PostProcess(rec *table.Record, exp models.Experiment) (*table.Record, error) {
	out := rec.Clone()
	if fn, ok := postProcessors[exp]; ok {
		if err := fn(out); err != nil {
			return nil, fmt.Errorf("post-process %s: %w", exp, err)
		}
	}
	out.SortColumns()
	return out, nil
}

// asFloat coerces a column to numeric 0/1 where it holds booleans or numbers.
func asFloat(rec *table.Record, col string) error {
	if err := rec.Require(col); err != nil {
		return err
	}
	for i := 0; i < rec.Len(); i++ {
		v := rec.Get(i, col)
		if v.IsMissing() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			if b, isBool := v.Truth(); isBool {
				f, ok = boolFloat(b), true
			}
		}
		if !ok {
			return fmt.Errorf("%s: cannot read %q as a number at row %d", col, v.Text(), i)
		}
		rec.Set(i, col, table.Num(f))
	}
	return nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func correctAsFloat(rec *table.Record) error {
	return asFloat(rec, "correct")
}

func dotPatternPost(rec *table.Record) error {
	if err := asFloat(rec, "correct"); err != nil {
		return err
	}
	if !rec.Has("trial_id") || !rec.Has("possible_responses") {
		return nil
	}
	for i := 0; i < rec.Len(); i++ {
		if rec.Get(i, "trial_id").Is("fixation") && !rec.Get(i, "possible_responses").Is("none") {
			rec.Set(i, "fixation", table.Str("none"))
		}
	}
	return nil
}

// stopSignalPost marks withheld responses and recomputes correctness from the
// actual key press, overriding the logged value.
func stopSignalPost(rec *table.Record) error {
	if err := rec.Require("key_press", "correct_response"); err != nil {
		return err
	}
	stopped := make([]table.Value, rec.Len())
	correct := make([]table.Value, rec.Len())
	for i := range stopped {
		key := rec.Get(i, "key_press")
		stopped[i] = table.Boolean(key.Equal(table.Num(noResponse)))
		correct[i] = table.Num(boolFloat(key.Equal(rec.Get(i, "correct_response"))))
	}
	if err := rec.InsertColumn(0, "stopped", stopped); err != nil {
		return err
	}
	return rec.SetColumn("correct", correct)
}

// twoByTwoPost moves each cue's duration onto the stimulus that follows it and
// labels the switch type of every trial.
func twoByTwoPost(rec *table.Record) error {
	if err := rec.Require("trial_id", "block_duration", "task_switch", "cue_switch"); err != nil {
		return err
	}
	cues := rec.Where(func(i int) bool { return rec.Get(i, "trial_id").Is("cue") })
	stims := rec.Where(func(i int) bool { return rec.Get(i, "trial_id").Is("stim") })
	if len(cues) != len(stims) {
		return fmt.Errorf("found %d cue rows for %d stim rows", len(cues), len(stims))
	}
	cti := make([]table.Value, rec.Len())
	for k, i := range stims {
		cti[i] = rec.Get(cues[k], "block_duration")
	}
	if err := rec.InsertColumn(0, "CTI", cti); err != nil {
		return err
	}

	for i := 0; i < rec.Len(); i++ {
		task := rec.Get(i, "task_switch")
		if !task.Is("stay") {
			rec.Set(i, "cue_switch", table.Null())
		}
		switch {
		case task.IsMissing():
			rec.Set(i, "switch_type", table.Null())
		case task.Is("stay"):
			cue := rec.Get(i, "cue_switch")
			if cue.IsMissing() {
				rec.Set(i, "switch_type", table.Null())
			} else {
				rec.Set(i, "switch_type", table.Str("cue_"+cue.Text()))
			}
		default:
			rec.Set(i, "switch_type", table.Str("task_"+task.Text()))
		}
	}
	return nil
}

// towerPost fixes test trials logged as practice and copies problem metadata
// onto feedback rows from the move that preceded them.
func towerPost(rec *table.Record) error {
	if err := rec.Require("trial_id", "condition", "problem_id"); err != nil {
		return err
	}
	for i := 0; i < rec.Len(); i++ {
		c := rec.Get(i, "condition")
		if c.Is("PA_with_intermediate") || c.Is("PA_without_intermediate") {
			rec.Set(i, "exp_stage", table.Str("test"))
		}
	}
	for i := 0; i < rec.Len(); i++ {
		if !rec.Get(i, "trial_id").Is("feedback") {
			continue
		}
		if i == 0 {
			return fmt.Errorf("feedback at row 0: %w", ErrNoPrecedingRow)
		}
		rec.Set(i, "problem_id", rec.Get(i-1, "problem_id"))
		rec.Set(i, "condition", rec.Get(i-1, "condition"))
	}
	return nil
}

var cardActions = map[float64]string{89: "draw_card", 71: "end_round"}

// cardTaskPost derives the card-sampling task's per-click risk variables.
func cardTaskPost(rec *table.Record) error {
	err := rec.Require("trial_id", "clicked_on_loss_card", "key_press", "num_click_in_round",
		"num_cards", "num_loss_cards", "gain_amount", "loss_amount")
	if err != nil {
		return err
	}
	if err := asFloat(rec, "clicked_on_loss_card"); err != nil {
		return err
	}

	n := rec.Len()
	action := make([]table.Value, n)
	for i := range action {
		key := rec.Get(i, "key_press")
		action[i] = key
		if f, ok := key.Float(); ok {
			if name, known := cardActions[f]; known {
				action[i] = table.Str(name)
			}
		}
	}
	if err := rec.SetColumn("action", action); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if !rec.Get(i, "trial_id").Is("ITI") {
			continue
		}
		if i == 0 {
			return fmt.Errorf("ITI at row 0: %w", ErrNoPrecedingRow)
		}
		rec.Set(i-1, "total_cards", rec.Get(i-1, "num_click_in_round"))
	}

	for i := 0; i < n; i++ {
		if rec.Get(i, "action").Is("end_round") {
			if f, ok := rec.Get(i, "num_click_in_round").Float(); ok {
				rec.Set(i, "num_click_in_round", table.Num(f+1))
			}
		}
	}

	cardsLeft := make([]float64, n)
	lossP := make([]float64, n)
	gainP := make([]float64, n)
	ev := make([]float64, n)
	for i := 0; i < n; i++ {
		cardsLeft[i] = num(rec, i, "num_cards") - (num(rec, i, "num_click_in_round") - 1)
		lossP[i] = num(rec, i, "num_loss_cards") / cardsLeft[i]
		gainP[i] = 1 - lossP[i]
		ev[i] = num(rec, i, "gain_amount")*gainP[i] + num(rec, i, "loss_amount")*lossP[i]
	}
	center(ev)
	risk := make([]float64, n)
	for i := 0; i < n; i++ {
		gain := num(rec, i, "gain_amount") - ev[i]
		loss := num(rec, i, "loss_amount") - ev[i]
		risk[i] = math.Sqrt(gainP[i]*gain*gain + lossP[i]*loss*loss)
	}
	center(risk)

	for col, vals := range map[string][]float64{
		"cards_left":       cardsLeft,
		"loss_probability": lossP,
		"gain_probability": gainP,
		"EV":               ev,
		"risk":             risk,
	} {
		if err := rec.SetColumn(col, floats(vals)); err != nil {
			return err
		}
	}
	return nil
}

// num reads a numeric cell, NaN when missing.
func num(rec *table.Record, i int, col string) float64 {
	if f, ok := rec.Get(i, col).Float(); ok {
		return f
	}
	return math.NaN()
}

// center subtracts the mean of the finite values from every value.
func center(xs []float64) {
	var sum float64
	var count int
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			sum += x
			count++
		}
	}
	if count == 0 {
		return
	}
	mean := sum / float64(count)
	for i := range xs {
		xs[i] -= mean
	}
}

func floats(xs []float64) []table.Value {
	out := make([]table.Value, len(xs))
	for i, x := range xs {
		out[i] = table.Num(x)
	}
	return out
}
