// Package events builds BIDS-style event records from cleaned behavioral
// records. Each experiment has one builder; all of them share the skeleton in
// this file: keep rows logged after task start, derive onset and duration,
// sanitize reaction times, convert milliseconds to seconds, drop log-only
// columns.
package events

import (
	"errors"
	"fmt"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

var (
	// ErrEmptyLookup is returned when a per-subject lookup, such as the
	// response key of stop trials, matches no rows.
	ErrEmptyLookup = errors.New("lookup matched no rows")
	// ErrUnlabeledRow is returned when a row fits none of a task's condition
	// labels.
	ErrUnlabeledRow = errors.New("row matches no condition label")
)

// noResponse is the rt logged for trials without a response.
const noResponse = -1

// defaultDrop are the columns removed from every event record unless a
// builder opts out.
var defaultDrop = []string{
	"exp_stage", "feedback_duration", "possible_responses", "stim_duration",
	"text", "time_elapsed", "timing_post_trial", "trial_num",
}

// Options are passed to every builder.
type Options struct {
	// Aim is the analysis aim the events are built for.
	Aim string
	// Duration, in milliseconds, replaces each row's stim_duration as the
	// event duration. Builders that derive durations from responses ignore it.
	Duration *float64
	// Survey overrides the survey item table.
	Survey *models.SurveyItems
}

type builder func(rec *table.Record, opts Options) (*table.Record, error)

var builders = [...]builder{
	models.AttentionNetwork:     attentionNetworkEvents,
	models.ColumbiaCardFMRI:     cardTaskEvents,
	models.DiscountFixed:        discountEvents,
	models.DotPatternExpectancy: dotPatternEvents,
	models.MotorSelectiveStop:   motorStopEvents,
	models.StopSignal:           stopSignalEvents,
	models.Stroop:               stroopEvents,
	models.SurveyMedley:         surveyEvents,
	models.TwoByTwo:             twoByTwoEvents,
	models.WardAndAllport:       towerEvents,
}

// Supported reports whether exp has an event builder.
func Supported(exp models.Experiment) bool {
	return exp >= 0 && int(exp) < len(builders) && builders[exp] != nil
}

// Create builds the event record for a cleaned record of experiment exp. ok is
// false, with a nil error, when exp has no builder and no event file should be
// written.
func Create(rec *table.Record, exp models.Experiment, opts Options) (*table.Record, bool, error) {
	if !Supported(exp) {
		return nil, false, nil
	}
	out, err := builders[exp](rec, opts)
	if err != nil {
		return nil, true, fmt.Errorf("%s events: %w", exp, err)
	}
	Finalize(out)
	return out, true, nil
}

// Finalize leads the record with onset and duration.
func Finalize(rec *table.Record) {
	rec.MoveToFront("onset", "duration")
}

// skeleton is the shared event construction, parameterized per task.
type skeleton struct {
	// drop is removed in addition to defaultDrop.
	drop []string
	// noDefaultDrop skips defaultDrop.
	noDefaultDrop bool
	// seconds are converted along with onset, duration and response_time.
	seconds []string
	// derive adds task columns to the started rows before timing is derived.
	derive func(*table.Record) error
}

func (s skeleton) build(rec *table.Record, opts Options) (*table.Record, error) {
	out, err := started(rec)
	if err != nil {
		return nil, err
	}
	if s.derive != nil {
		if err := s.derive(out); err != nil {
			return nil, err
		}
	}
	if err := insertDuration(out, opts); err != nil {
		return nil, err
	}
	if err := insertOnset(out); err != nil {
		return nil, err
	}
	if err := processRT(out); err != nil {
		return nil, err
	}
	if err := toSeconds(out, append([]string{"response_time", "onset", "duration"}, s.seconds...)...); err != nil {
		return nil, err
	}
	dropColumns(out, s.drop, !s.noDefaultDrop)
	return out, nil
}

// started keeps the rows logged after the task clock started.
func started(rec *table.Record) (*table.Record, error) {
	if err := rec.Require("time_elapsed"); err != nil {
		return nil, err
	}
	return rec.Filter(func(i int) bool {
		f, ok := rec.Get(i, "time_elapsed").Float()
		return ok && f > 0
	}), nil
}

// insertOnset adds onset = time_elapsed - block_duration as the first column.
// time_elapsed is logged when a trial ends.
func insertOnset(rec *table.Record) error {
	if err := rec.Require("time_elapsed", "block_duration"); err != nil {
		return err
	}
	onset := make([]table.Value, rec.Len())
	for i := range onset {
		onset[i] = sub(rec.Get(i, "time_elapsed"), rec.Get(i, "block_duration"))
	}
	return rec.InsertColumn(0, "onset", onset)
}

// insertDuration adds the override duration, or a copy of stim_duration, as
// the first column.
func insertDuration(rec *table.Record, opts Options) error {
	if opts.Duration != nil {
		return insertConstant(rec, "duration", table.Num(*opts.Duration))
	}
	return insertCopy(rec, "duration", "stim_duration")
}

func insertConstant(rec *table.Record, col string, v table.Value) error {
	vals := make([]table.Value, rec.Len())
	for i := range vals {
		vals[i] = v
	}
	return rec.InsertColumn(0, col, vals)
}

func insertCopy(rec *table.Record, col, from string) error {
	if err := rec.Require(from); err != nil {
		return err
	}
	return rec.InsertColumn(0, col, rec.Column(from))
}

// processRT marks unanswered trials as missing and renames rt to
// response_time.
func processRT(rec *table.Record) error {
	if err := rec.Require("rt"); err != nil {
		return err
	}
	for i := 0; i < rec.Len(); i++ {
		if rec.Get(i, "rt").Equal(table.Num(noResponse)) {
			rec.Set(i, "rt", table.Null())
		}
	}
	rec.Rename("rt", "response_time")
	return nil
}

// toSeconds divides the named millisecond columns by 1000.
func toSeconds(rec *table.Record, cols ...string) error {
	if err := rec.Require(cols...); err != nil {
		return err
	}
	for _, col := range cols {
		for i := 0; i < rec.Len(); i++ {
			if f, ok := rec.Get(i, col).Float(); ok {
				rec.Set(i, col, table.Num(f/1000))
			}
		}
	}
	return nil
}

// dropColumns removes extra and, when useDefault is set, defaultDrop.
func dropColumns(rec *table.Record, extra []string, useDefault bool) {
	if useDefault {
		rec.DropColumns(defaultDrop...)
	}
	rec.DropColumns(extra...)
}

// copyColumn sets to as a copy of from, appended when to is new.
func copyColumn(rec *table.Record, to, from string) error {
	if err := rec.Require(from); err != nil {
		return err
	}
	return rec.SetColumn(to, rec.Column(from))
}

func sub(a, b table.Value) table.Value {
	fa, oka := a.Float()
	fb, okb := b.Float()
	if !oka || !okb {
		return table.Null()
	}
	return table.Num(fa - fb)
}

func add(a, b table.Value) table.Value {
	fa, oka := a.Float()
	fb, okb := b.Float()
	if !oka || !okb {
		return table.Null()
	}
	return table.Num(fa + fb)
}
