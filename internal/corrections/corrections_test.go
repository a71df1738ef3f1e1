package corrections

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/table"
)

func readRecord(t *testing.T, s string) *table.Record {
	t.Helper()
	rec, err := table.Read(strings.NewReader(s), table.Comma)
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	return rec
}

func floatsOf(rec *table.Record, col string) []float64 {
	var out []float64
	for _, v := range rec.Column(col) {
		f, _ := v.Float()
		out = append(out, f)
	}
	return out
}

func TestDefaultTable(t *testing.T) {
	t.Parallel()

	tbl := Default()
	if got := tbl.Offset("s561_ANT.csv"); got != 8925 {
		t.Errorf("Expected offset 8925 for s561_ANT.csv, got %v", got)
	}
	if got := tbl.Offset("s001_ANT.csv"); got != 0 {
		t.Errorf("Expected no offset for s001_ANT.csv, got %v", got)
	}
	if !tbl.rebuilds("s608_ANT.csv") {
		t.Error("Expected s608_ANT.csv to be rebuilt")
	}
	if _, ok := tbl.swap("s644_stroop.csv"); !ok {
		t.Error("Expected s644_stroop.csv key swap")
	}
}

func TestApplyTimingOffset(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, "time_elapsed\n10000\n20000\n")
	out, err := Default().Apply("s568_DPX.csv", rec)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got := floatsOf(out, "time_elapsed")
	if got[0] != 1075 || got[1] != 11075 {
		t.Errorf("Expected shifted times [1075 11075], got %v", got)
	}
	if f, _ := rec.Get(0, "time_elapsed").Float(); f != 10000 {
		t.Error("Apply must not modify its input")
	}
}

func TestApplyRebuildTimeElapsed(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, "rt,time_elapsed,block_duration\n400,1000,500\n-3000,-999,700\n300,-500,800\n")
	out, err := Default().Apply("s608_ANT.csv", rec)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got := floatsOf(out, "time_elapsed")
	want := []float64{1000, 1700, 2500}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: time_elapsed = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRebuildFromFirstRow(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, "rt,time_elapsed,block_duration\n-3000,1000,500\n")
	_, err := Default().Apply("s608_ANT.csv", rec)
	if !errors.Is(err, ErrNoPrecedingRow) {
		t.Errorf("Expected ErrNoPrecedingRow, got %v", err)
	}
}

func TestRebuildMissingBlockDuration(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, "rt,time_elapsed,block_duration\n400,1000,500\n-3000,-999,700\n300,-500,\n")
	_, err := Default().Apply("s608_ANT.csv", rec)
	if !errors.Is(err, ErrMissingBlockDuration) {
		t.Errorf("Expected ErrMissingBlockDuration, got %v", err)
	}
}

func TestApplySwappedKeys(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, "key_press,correct_response,correct\n71,82,0\n82,82,1\n66,66,1\n")
	out, err := Default().Apply("s644_stroop.csv", rec)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := floatsOf(out, "key_press"); got[0] != 82 || got[1] != 71 || got[2] != 66 {
		t.Errorf("Expected keys [82 71 66], got %v", got)
	}
	if got := floatsOf(out, "correct"); got[0] != 1 || got[1] != 0 || got[2] != 1 {
		t.Errorf("Expected correct [1 0 1], got %v", got)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corrections.yaml")
	data := "timing_offsets:\n  - offset_ms: 100\n    files: [s900_ANT.csv]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write corrections: %v", err)
	}
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := tbl.Offset("s900_ANT.csv"); got != 100 {
		t.Errorf("Expected offset 100, got %v", got)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
