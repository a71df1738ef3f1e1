// Package corrections applies the per-file fixes for known acquisition and
// data-entry defects. The fixes are data, loaded from YAML, so the cleaning and
// event code never special-cases a subject.
package corrections

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

//go:embed corrections.yaml
var defaultTable []byte

// ErrNoPrecedingRow is returned when a time rebuild would start at row 0.
var ErrNoPrecedingRow = errors.New("no preceding row to rebuild from")

// ErrMissingBlockDuration is returned when a rebuilt row has no block_duration.
var ErrMissingBlockDuration = errors.New("block_duration missing")

// TimingOffset shifts time_elapsed back by OffsetMS for each listed file.
type TimingOffset struct {
	OffsetMS float64  `yaml:"offset_ms"`
	Files    []string `yaml:"files"`
}

// KeySwap exchanges two key codes in key_press.
type KeySwap struct {
	File string     `yaml:"file"`
	Keys [2]float64 `yaml:"keys"`
}

// Table is the full set of corrections.
type Table struct {
	TimingOffsets      []TimingOffset `yaml:"timing_offsets"`
	RebuildTimeElapsed []string       `yaml:"rebuild_time_elapsed"`
	SwappedKeys        []KeySwap      `yaml:"swapped_keys"`
}

// Load reads a corrections file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corrections file: %w", err)
	}
	return parse(data)
}

// Default returns the corrections compiled into the binary.
func Default() *Table {
	t, err := parse(defaultTable)
	if err != nil {
		panic("embedded corrections are invalid: " + err.Error())
	}
	return t
}

func parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal corrections YAML: %w", err)
	}
	return &t, nil
}

// Offset returns the timing offset in milliseconds for a raw file name.
func (t *Table) Offset(file string) float64 {
	for _, o := range t.TimingOffsets {
		for _, f := range o.Files {
			if f == file {
				return o.OffsetMS
			}
		}
	}
	return 0
}

func (t *Table) rebuilds(file string) bool {
	for _, f := range t.RebuildTimeElapsed {
		if f == file {
			return true
		}
	}
	return false
}

func (t *Table) swap(file string) (KeySwap, bool) {
	for _, s := range t.SwappedKeys {
		if s.File == file {
			return s, true
		}
	}
	return KeySwap{}, false
}

// Apply returns rec with every correction registered for file applied:
// timing offset, time_elapsed rebuild, then key swap. rec is expected to be
// already re-referenced to the scanner trigger.
func (t *Table) Apply(file string, rec *table.Record) (*table.Record, error) {
	out := rec.Clone()
	if off := t.Offset(file); off != 0 {
		if err := shiftTime(out, off); err != nil {
			return nil, err
		}
	}
	if t.rebuilds(file) {
		if err := rebuildTimeElapsed(out); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	if s, ok := t.swap(file); ok {
		if err := swapKeys(out, s.Keys[0], s.Keys[1]); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	return out, nil
}

func shiftTime(rec *table.Record, offset float64) error {
	if err := rec.Require("time_elapsed"); err != nil {
		return err
	}
	for i := 0; i < rec.Len(); i++ {
		if f, ok := rec.Get(i, "time_elapsed").Float(); ok {
			rec.Set(i, "time_elapsed", table.Num(f-offset))
		}
	}
	return nil
}

// rebuildTimeElapsed replaces time_elapsed from the first rt below -1 onward
// with the running sum of block durations from the row before it.
func rebuildTimeElapsed(rec *table.Record) error {
	if err := rec.Require("rt", "time_elapsed", "block_duration"); err != nil {
		return err
	}
	start := -1
	for i := 0; i < rec.Len(); i++ {
		if rt, ok := rec.Get(i, "rt").Float(); ok && rt < -1 {
			start = i
			break
		}
	}
	switch start {
	case -1:
		return nil
	case 0:
		return ErrNoPrecedingRow
	}
	elapsed, ok := rec.Get(start-1, "time_elapsed").Float()
	if !ok {
		return fmt.Errorf("time_elapsed missing at row %d", start-1)
	}
	for i := start; i < rec.Len(); i++ {
		block, ok := rec.Get(i, "block_duration").Float()
		if !ok {
			return fmt.Errorf("%w at row %d", ErrMissingBlockDuration, i)
		}
		elapsed += block
		rec.Set(i, "time_elapsed", table.Num(elapsed))
	}
	return nil
}

// swapKeys exchanges two key codes and rescores correctness.
func swapKeys(rec *table.Record, a, b float64) error {
	if err := rec.Require("key_press", "correct_response"); err != nil {
		return err
	}
	for i := 0; i < rec.Len(); i++ {
		key := rec.Get(i, "key_press")
		switch {
		case key.Equal(table.Num(a)):
			rec.Set(i, "key_press", table.Num(b))
		case key.Equal(table.Num(b)):
			rec.Set(i, "key_press", table.Num(a))
		}
		if rec.Get(i, "key_press").Equal(rec.Get(i, "correct_response")) {
			rec.Set(i, "correct", table.Num(1))
		} else {
			rec.Set(i, "correct", table.Num(0))
		}
	}
	return nil
}
