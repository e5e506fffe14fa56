package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"dubline/internal/translation"
)

// DefaultLineWidth is the maximum cue line length in characters.
const DefaultLineWidth = 30

// Cue is one numbered SRT entry.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Build chunks records and converts them into cues. speedUp scales the
// timestamps to match a sped-up video; values <= 0 mean 1.
func Build(records []translation.Record, speedUp float64, lineWidth int) []Cue {
	if speedUp <= 0 {
		speedUp = 1
	}
	if lineWidth <= 0 {
		lineWidth = DefaultLineWidth
	}
	chunks := Chunk(records)
	cues := make([]Cue, 0, len(chunks))
	for i, chunk := range chunks {
		cues = append(cues, Cue{
			Index: i + 1,
			Start: chunk.Start / speedUp,
			End:   chunk.End / speedUp,
			Text:  Wrap(chunk.Translation, lineWidth),
		})
	}
	return cues
}

// Write renders cues in SRT format.
func Write(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for _, cue := range cues {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", cue.Index, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), cue.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile renders records to path.
func WriteFile(path string, records []translation.Record, speedUp float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create srt: %w", err)
	}
	if err := Write(f, Build(records, speedUp, DefaultLineWidth)); err != nil {
		f.Close()
		return fmt.Errorf("write srt: %w", err)
	}
	return f.Close()
}

// FormatTimestamp converts seconds to HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := math.Floor(seconds)
	millis := int((seconds - whole) * 1000)
	total := int(whole)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// Wrap splits text into evenly sized lines of at most width characters.
func Wrap(text string, width int) string {
	runes := []rune(text)
	if len(runes) == 0 || width <= 0 {
		return text
	}
	lines := len(runes)/(width+1) + 1
	avg := int(math.Round(float64(len(runes)) / float64(lines)))
	if avg > width {
		avg = width
	}
	if avg <= 0 {
		return text
	}
	parts := make([]string, 0, lines)
	for i := 0; i < lines; i++ {
		from := i * avg
		if from >= len(runes) {
			break
		}
		to := min(from+avg, len(runes))
		if i == lines-1 {
			to = len(runes)
		}
		parts = append(parts, string(runes[from:to]))
	}
	return strings.Join(parts, "\n")
}

// ParseTimestamp parses HH:MM:SS,mmm (a period is accepted for the
// millisecond separator).
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// ValidateSRTContent checks an SRT file for format issues. An empty result
// means the file passed. videoSeconds, when positive, flags cues that run
// well past the end of the video.
func ValidateSRTContent(path string, videoSeconds float64) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("read_error: %v", err)}
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return []string{"empty_subtitle_file"}
	}
	var issues []string
	var last float64
	found := false
	for _, line := range strings.Split(content, "\n") {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.Split(line, "-->")
		if len(parts) != 2 {
			issues = append(issues, fmt.Sprintf("malformed_timing: %q", line))
			continue
		}
		start, errStart := ParseTimestamp(parts[0])
		end, errEnd := ParseTimestamp(parts[1])
		if errStart != nil || errEnd != nil {
			issues = append(issues, fmt.Sprintf("timestamp_parse_error: %q", line))
			continue
		}
		if end < start {
			issues = append(issues, fmt.Sprintf("inverted_cue: %q", line))
		}
		found = true
		last = max(last, end)
	}
	if !found {
		issues = append(issues, "no_valid_timestamps")
	}
	if videoSeconds > 0 && last > videoSeconds+5 {
		issues = append(issues, fmt.Sprintf("duration_mismatch: delta=%.1fs", last-videoSeconds))
	}
	return issues
}
