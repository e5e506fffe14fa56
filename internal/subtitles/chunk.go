package subtitles

import (
	"math"

	"dubline/internal/translation"
)

const minChunkRunes = 5

var chunkBreaks = map[rune]bool{
	'，': true, '；': true, '：': true, '。': true,
	'？': true, '！': true, '\n': true, '"': true,
}

// Chunk splits each record's translation after punctuation. A chunk shorter
// than the minimum is merged with what follows, and runs of punctuation stay
// together. Times are interpolated by character count.
func Chunk(records []translation.Record) []translation.Record {
	out := make([]translation.Record, 0, len(records))
	for _, rec := range records {
		text := []rune(rec.Translation)
		if len(text) == 0 {
			out = append(out, rec)
			continue
		}
		perChar := (rec.End - rec.Start) / float64(len(text))
		start := rec.Start
		begin := 0
		last := len(text) - 1
		for i, r := range text {
			if !chunkBreaks[r] && i != last {
				continue
			}
			if i-begin < minChunkRunes && i != last {
				continue
			}
			if i < last && chunkBreaks[text[i+1]] {
				continue
			}
			sentence := text[begin : i+1]
			end := start + perChar*float64(len(sentence))
			out = append(out, translation.Record{
				Start:       round3(start),
				End:         round3(end),
				Speaker:     rec.Speaker,
				Text:        rec.Text,
				Translation: string(sentence),
				Outcome:     rec.Outcome,
			})
			start = end
			begin = i + 1
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
