package translation

import (
	"encoding/json"
	"fmt"
	"os"
)

// Placeholder stands in for a sentence that could not be translated so
// downstream stages never see an empty subtitle.
const Placeholder = "Not translated"

// Outcome is the validation result for one record.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeUntranslated Outcome = "untranslated"
)

// Record is a transcript line plus its translation.
type Record struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Speaker     string  `json:"speaker"`
	Text        string  `json:"text"`
	Translation string  `json:"translation"`
	Outcome     Outcome `json:"outcome,omitempty"`
}

// Load reads translation records from path.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read translation: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode translation: %w", err)
	}
	return records, nil
}

// Encode renders records as indented JSON.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode translation: %w", err)
	}
	return data, nil
}
