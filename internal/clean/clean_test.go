package clean

import (
	"errors"
	"strings"
	"testing"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
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

func texts(rec *table.Record, col string) []string {
	var out []string
	for _, v := range rec.Column(col) {
		out = append(out, v.Text())
	}
	return out
}

const stroopRaw = `trial_id,time_elapsed,view_history,trial_index,rt,condition,empty
welcome,100,x,0,,,
fixation,900,,1,,,
stim,2000,,2,450,congruent,
,,,,,,
stim,3000,,3,-1,incongruent,
end,4000,,4,,,
`

func TestCleanDropsColumnsRowsAndNulls(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, stroopRaw)
	out := Clean(rec, "stroop", Options{})

	if out.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d: %v", out.Len(), texts(out, "trial_id"))
	}
	for _, col := range []string{"view_history", "trial_index", "empty"} {
		if out.Has(col) {
			t.Errorf("Expected column %s to be dropped", col)
		}
	}
	if got := strings.Join(texts(out, "condition"), ","); got != "congruent,incongruent" {
		t.Errorf("Unexpected conditions %s", got)
	}
	if rec.Len() != 6 {
		t.Error("Clean must not modify its input")
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	t.Parallel()

	once := Clean(readRecord(t, stroopRaw), "stroop", Options{})
	twice := Clean(once, "stroop", Options{})

	if once.Len() != twice.Len() {
		t.Errorf("Row count changed on second pass: %d -> %d", once.Len(), twice.Len())
	}
	if strings.Join(once.Columns(), ",") != strings.Join(twice.Columns(), ",") {
		t.Errorf("Columns changed on second pass: %v -> %v", once.Columns(), twice.Columns())
	}
}

func TestCleanUnknownExperimentKeepsRows(t *testing.T) {
	t.Parallel()

	out := Clean(readRecord(t, stroopRaw), "not_a_task", Options{DropColumns: []string{"view_history", "absent"}})
	if out.Len() != 5 {
		t.Errorf("Expected only the null row dropped, got %d rows", out.Len())
	}
	if !out.Has("trial_index") {
		t.Error("Expected custom drop list to replace the default")
	}
}

func TestStopSignalPostOverridesCorrect(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, "key_press,correct_response,correct\n66,66,0\n-1,66,1\n71,66,1\n")
	out, err := PostProcess(rec, models.StopSignal)
	if err != nil {
		t.Fatalf("PostProcess failed: %v", err)
	}

	wantStopped := []bool{false, true, false}
	wantCorrect := []float64{1, 0, 0}
	for i := range wantStopped {
		if b, _ := out.Get(i, "stopped").Truth(); b != wantStopped[i] {
			t.Errorf("row %d: stopped = %v, want %v", i, b, wantStopped[i])
		}
		if f, _ := out.Get(i, "correct").Float(); f != wantCorrect[i] {
			t.Errorf("row %d: correct = %v, want %v", i, f, wantCorrect[i])
		}
	}
}

func TestStopSignalPostMissingColumn(t *testing.T) {
	t.Parallel()

	_, err := PostProcess(readRecord(t, "key_press\n66\n"), models.MotorSelectiveStop)
	if !errors.Is(err, table.ErrMissingColumn) {
		t.Errorf("Expected ErrMissingColumn, got %v", err)
	}
}

func TestCorrectAsFloat(t *testing.T) {
	t.Parallel()

	out, err := PostProcess(readRecord(t, "correct,trial\nTrue,1\nFalse,2\n,3\n"), models.AttentionNetwork)
	if err != nil {
		t.Fatalf("PostProcess failed: %v", err)
	}
	if v := out.Get(0, "correct"); !v.IsNumber() {
		t.Errorf("Expected numeric correct, got kind %d", v.Kind())
	}
	if f, _ := out.Get(1, "correct").Float(); f != 0 {
		t.Errorf("Expected 0, got %v", f)
	}
	if !out.Get(2, "correct").IsMissing() {
		t.Error("Expected missing correct to stay missing")
	}
}

const twoByTwoRaw = `trial_id,block_duration,task_switch,cue_switch,time_elapsed
test_start_block,100,,,50
cue,100,stay,switch,200
stim,2000,stay,switch,2200
cue,900,switch,switch,3100
stim,2000,switch,switch,5100
`

func TestTwoByTwoData(t *testing.T) {
	t.Parallel()

	out, err := Data(readRecord(t, twoByTwoRaw), "twobytwo", Options{DropColumns: []string{}})
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}

	if got := strings.Join(texts(out, "trial_id"), ","); got != "test_start_block,stim,stim" {
		t.Fatalf("Expected cue rows dropped and block marker kept, got %s", got)
	}
	if got := strings.Join(texts(out, "CTI"), ","); got != ",100,900" {
		t.Errorf("Expected CTI ,100,900, got %s", got)
	}
	if got := strings.Join(texts(out, "switch_type"), ","); got != ",cue_switch,task_switch" {
		t.Errorf("Expected switch types ,cue_switch,task_switch, got %s", got)
	}
	if !out.Get(2, "cue_switch").IsMissing() {
		t.Error("Expected cue_switch to be missing on task switch trials")
	}
	if cols := out.Columns(); cols[0] != "CTI" {
		t.Errorf("Expected columns sorted by name, got %v", cols)
	}
}

func TestTwoByTwoCueStimMismatch(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, "trial_id,block_duration,task_switch,cue_switch\ncue,100,stay,stay\ncue,100,stay,stay\nstim,1,stay,stay\n")
	if _, err := PostProcess(rec, models.TwoByTwo); err == nil {
		t.Error("Expected an error for unmatched cue rows")
	}
}

func TestTowerPost(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, `trial_id,condition,problem_id,exp_stage
to_hand,PA_with_intermediate,7,practice
feedback,,,practice
to_hand,PA_without_intermeidate,8,test
feedback,,,test
`)
	out, err := PostProcess(rec, models.WardAndAllport)
	if err != nil {
		t.Fatalf("PostProcess failed: %v", err)
	}
	if got := strings.Join(texts(out, "problem_id"), ","); got != "7,7,8,8" {
		t.Errorf("Expected problem ids 7,7,8,8, got %s", got)
	}
	if got := strings.Join(texts(out, "condition"), ","); got != "PA_with_intermediate,PA_with_intermediate,PA_without_intermeidate,PA_without_intermeidate" {
		t.Errorf("Unexpected conditions %s", got)
	}
	if !out.Get(0, "exp_stage").Is("test") {
		t.Errorf("Expected mislabeled practice trial to become test, got %q", out.Get(0, "exp_stage").Text())
	}
}

func TestTowerPostFeedbackFirst(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, "trial_id,condition,problem_id\nfeedback,,\nto_hand,x,1\n")
	_, err := PostProcess(rec, models.WardAndAllport)
	if !errors.Is(err, ErrNoPrecedingRow) {
		t.Errorf("Expected ErrNoPrecedingRow, got %v", err)
	}
}

const cardRaw = `trial_id,clicked_on_loss_card,key_press,num_click_in_round,num_cards,num_loss_cards,gain_amount,loss_amount
stim,False,89,1,32,1,10,-250
stim,False,71,1,32,1,10,-250
ITI,,,,32,1,10,-250
`

func TestCardTaskPost(t *testing.T) {
	t.Parallel()

	out, err := PostProcess(readRecord(t, cardRaw), models.ColumbiaCardFMRI)
	if err != nil {
		t.Fatalf("PostProcess failed: %v", err)
	}
	if got := strings.Join(texts(out, "action"), ","); got != "draw_card,end_round," {
		t.Errorf("Unexpected actions %s", got)
	}
	if f, _ := out.Get(1, "num_click_in_round").Float(); f != 2 {
		t.Errorf("Expected end_round click count 2, got %v", f)
	}
	if f, _ := out.Get(1, "total_cards").Float(); f != 1 {
		t.Errorf("Expected total_cards 1 on the row before ITI, got %v", f)
	}
	if f, _ := out.Get(0, "cards_left").Float(); f != 32 {
		t.Errorf("Expected 32 cards left, got %v", f)
	}
	if f, _ := out.Get(1, "cards_left").Float(); f != 31 {
		t.Errorf("Expected 31 cards left after end_round, got %v", f)
	}
	if !out.Get(2, "EV").IsMissing() {
		t.Error("Expected EV to be missing on the ITI row")
	}
	var sum float64
	for i := 0; i < 2; i++ {
		f, _ := out.Get(i, "EV").Float()
		sum += f
	}
	if sum > 1e-9 || sum < -1e-9 {
		t.Errorf("Expected EV to be mean-centred, got sum %v", sum)
	}
}

func TestCardTaskPostITIFirst(t *testing.T) {
	t.Parallel()

	rec := readRecord(t, "trial_id,clicked_on_loss_card,key_press,num_click_in_round,num_cards,num_loss_cards,gain_amount,loss_amount\nITI,,,,32,1,10,-250\n")
	if _, err := PostProcess(rec, models.ColumbiaCardFMRI); !errors.Is(err, ErrNoPrecedingRow) {
		t.Errorf("Expected ErrNoPrecedingRow, got %v", err)
	}
}
