package translation

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const sentenceTail = `([^，。！？\?”’》])`

var sentenceBreaks = []*regexp.Regexp{
	regexp.MustCompile(`([。！？\?])` + sentenceTail),
	regexp.MustCompile(`(\.{6})` + sentenceTail),
	regexp.MustCompile(`(…{2})` + sentenceTail),
	regexp.MustCompile(`([。！？\?][”’])` + sentenceTail),
}

// SplitText breaks a paragraph after sentence-ending punctuation.
func SplitText(para string) []string {
	for _, re := range sentenceBreaks {
		para = re.ReplaceAllString(para, "${1}\n${2}")
	}
	para = strings.TrimRight(para, " \t\r\n")
	var out []string
	for _, part := range strings.Split(para, "\n") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// SplitSentences re-splits every record's translation into sentences and
// interpolates their timestamps in proportion to character count within the
// original span. Records without a translation keep their span and carry the
// placeholder.
func SplitSentences(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Translation) == "" {
			rec.Start = round3(rec.Start)
			rec.End = round3(rec.End)
			rec.Translation = Placeholder
			rec.Outcome = OutcomeUntranslated
			out = append(out, rec)
			continue
		}
		total := utf8.RuneCountInString(rec.Translation)
		perChar := (rec.End - rec.Start) / float64(max(1, total))
		start := rec.Start
		for _, sentence := range SplitText(rec.Translation) {
			end := start + perChar*float64(utf8.RuneCountInString(sentence))
			out = append(out, Record{
				Start:       round3(start),
				End:         round3(end),
				Speaker:     rec.Speaker,
				Text:        rec.Text,
				Translation: sentence,
				Outcome:     rec.Outcome,
			})
			start = end
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
