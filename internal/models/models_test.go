package models

import "testing"

func TestParseExperiment(t *testing.T) {
	t.Parallel()

	for _, e := range Experiments() {
		got, ok := ParseExperiment(e.ID())
		if !ok || got != e {
			t.Errorf("ParseExperiment(%q) = %v, %v; want %v", e.ID(), got, ok, e)
		}
	}

	if _, ok := ParseExperiment("adaptive_n_back"); ok {
		t.Error("Expected adaptive_n_back to be unknown")
	}
	if UnknownExperiment.String() != "unknown" {
		t.Errorf("Expected 'unknown', got %q", UnknownExperiment.String())
	}
}

func TestShortName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		exp  Experiment
		want string
	}{
		{AttentionNetwork, "ANT"},
		{ColumbiaCardFMRI, "CCTHot"},
		{WardAndAllport, "WATT3"},
		{TwoByTwo, "twoByTwo"},
	}
	for _, tt := range tests {
		got, ok := tt.exp.ShortName()
		if !ok || got != tt.want {
			t.Errorf("%v.ShortName() = %q, %v; want %q", tt.exp, got, ok, tt.want)
		}
	}
	if _, ok := UnknownExperiment.ShortName(); ok {
		t.Error("Expected no short name for unknown experiment")
	}
}

func TestSurveyItemIDs(t *testing.T) {
	t.Parallel()

	ids := DefaultSurveyItems().ItemIDs()
	if len(ids) != 40 {
		t.Fatalf("Expected 40 survey items, got %d", len(ids))
	}

	tests := map[string]string{
		"New ideas and projects sometimes distract me from previous ones.":               "Q01",
		"I am diligent.":                                                                 "Q08",
		"I am good at resisting temptation.":                                             "Q09",
		"Would you enjoy the sensation of skiing very fast down a high mountain slope?": "Q40",
	}
	for text, want := range tests {
		if got := ids[text]; got != want {
			t.Errorf("ItemIDs()[%q] = %q, want %q", text, got, want)
		}
	}
}
