package models

// Experiment enumerates the task types the pipeline knows how to process.
type Experiment int

const (
	UnknownExperiment Experiment = iota
	AttentionNetwork
	ColumbiaCardFMRI
	ColumbiaCardHot
	DiscountFixed
	DotPatternExpectancy
	MotorSelectiveStop
	StopSignal
	Stroop
	SurveyMedley
	TwoByTwo
	WardAndAllport
	Rest

	experimentCount
)

var experimentIDs = [experimentCount]string{
	UnknownExperiment:    "",
	AttentionNetwork:     "attention_network_task",
	ColumbiaCardFMRI:     "columbia_card_task_fmri",
	ColumbiaCardHot:      "columbia_card_task_hot",
	DiscountFixed:        "discount_fixed",
	DotPatternExpectancy: "dot_pattern_expectancy",
	MotorSelectiveStop:   "motor_selective_stop_signal",
	StopSignal:           "stop_signal",
	Stroop:               "stroop",
	SurveyMedley:         "survey_medley",
	TwoByTwo:             "twobytwo",
	WardAndAllport:       "ward_and_allport",
	Rest:                 "rest",
}

// shortNames is the filename token each experiment's raw files carry.
var shortNames = map[Experiment]string{
	AttentionNetwork:     "ANT",
	ColumbiaCardHot:      "CCTHot",
	DiscountFixed:        "discountFix",
	DotPatternExpectancy: "DPX",
	MotorSelectiveStop:   "motorSelectiveStop",
	StopSignal:           "stopSignal",
	Stroop:               "stroop",
	SurveyMedley:         "surveyMedley",
	TwoByTwo:             "twoByTwo",
	WardAndAllport:       "WATT3",
	Rest:                 "rest",
}

// ParseExperiment maps an experiment identifier to its enum value.
func ParseExperiment(id string) (Experiment, bool) {
	for e := AttentionNetwork; e < experimentCount; e++ {
		if experimentIDs[e] == id {
			return e, true
		}
	}
	return UnknownExperiment, false
}

// Experiments lists every known experiment in enum order.
func Experiments() []Experiment {
	out := make([]Experiment, 0, experimentCount-1)
	for e := AttentionNetwork; e < experimentCount; e++ {
		out = append(out, e)
	}
	return out
}

// ID returns the experiment identifier as it appears in the logs.
func (e Experiment) ID() string {
	if e < 0 || e >= experimentCount {
		return ""
	}
	return experimentIDs[e]
}

func (e Experiment) String() string {
	if id := e.ID(); id != "" {
		return id
	}
	return "unknown"
}

// ShortName returns the filename token for the experiment. The fMRI card task
// shares the hot card task's files.
func (e Experiment) ShortName() (string, bool) {
	if e == ColumbiaCardFMRI {
		e = ColumbiaCardHot
	}
	name, ok := shortNames[e]
	return name, ok
}
