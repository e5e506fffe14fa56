// Package transcript holds the ordered speech segments produced by the
// transcribe stage and consumed by translation.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Line is one recognized speech segment. Times are seconds.
type Line struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Duration returns the segment length in seconds.
func (l Line) Duration() float64 { return l.End - l.Start }

// Sort orders lines by start time, keeping the original order for ties.
func Sort(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Start < lines[j].Start })
}

// Validate checks ordering and time bounds.
func Validate(lines []Line) error {
	for i, line := range lines {
		if line.End < line.Start {
			return fmt.Errorf("line %d ends before it starts (%.3f < %.3f)", i, line.End, line.Start)
		}
		if i > 0 && line.Start < lines[i-1].Start {
			return fmt.Errorf("line %d starts before line %d", i, i-1)
		}
	}
	return nil
}

// Text joins every line's text with spaces.
func Text(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Load reads a transcript file and returns its lines ordered by start time.
func Load(path string) ([]Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	Sort(lines)
	return lines, nil
}

// Encode renders lines as indented JSON.
func Encode(lines []Line) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return data, nil
}
