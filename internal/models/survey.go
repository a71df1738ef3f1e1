package models

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed survey_items.yaml
var defaultSurveyItems []byte

// SurveyScale groups the items of one sub-scale of the survey medley.
type SurveyScale struct {
	Name  string   `yaml:"name"`
	Items []string `yaml:"items"`
}

// SurveyItems holds the canonical, ordered survey item list.
type SurveyItems struct {
	Scales []SurveyScale `yaml:"scales"`
}

// LoadSurveyItems reads and parses a survey item file.
func LoadSurveyItems(path string) (*SurveyItems, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read survey item file: %w", err)
	}
	return parseSurveyItems(data)
}

// DefaultSurveyItems returns the item list compiled into the binary.
func DefaultSurveyItems() *SurveyItems {
	items, err := parseSurveyItems(defaultSurveyItems)
	if err != nil {
		panic("embedded survey items are invalid: " + err.Error())
	}
	return items
}

func parseSurveyItems(data []byte) (*SurveyItems, error) {
	var items SurveyItems
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal survey item YAML: %w", err)
	}
	return &items, nil
}

// ItemIDs maps each item text to its identifier, Q01 for the first item of
// the first scale onwards.
func (s *SurveyItems) ItemIDs() map[string]string {
	ids := make(map[string]string)
	n := 0
	for _, scale := range s.Scales {
		for _, text := range scale.Items {
			n++
			ids[text] = fmt.Sprintf("Q%02d", n)
		}
	}
	return ids
}
