package subtitles

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubline/internal/translation"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{3725.042, "01:02:05,041"},
		{-3, "00:00:00,000"},
	}
	for _, tt := range tests {
		got := FormatTimestamp(tt.in)
		if tt.in == 3725.042 {
			// float truncation may land on 041 or 042
			if got != "01:02:05,041" && got != "01:02:05,042" {
				t.Fatalf("FormatTimestamp(%v) = %q", tt.in, got)
			}
			continue
		}
		if got != tt.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestampRoundTrip(t *testing.T) {
	seconds, err := ParseTimestamp("01:02:05,250")
	if err != nil || seconds != 3725.25 {
		t.Fatalf("ParseTimestamp = %v, %v", seconds, err)
	}
	if _, err := ParseTimestamp("1:2"); err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}

func TestWrap(t *testing.T) {
	text := strings.Repeat("字", 45)
	wrapped := Wrap(text, 30)
	lines := strings.Split(wrapped, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", wrapped)
	}
	for _, line := range lines {
		if n := len([]rune(line)); n > 30 {
			t.Fatalf("line too long (%d): %q", n, line)
		}
	}
	if Wrap("short", 30) != "short" {
		t.Fatal("short text must not wrap")
	}
}

func TestChunkSplitsOnPunctuation(t *testing.T) {
	records := []translation.Record{{Start: 0, End: 12, Speaker: "S", Text: "src", Translation: "今天天气很好，我们去公园吧！好"}}
	chunks := Chunk(records)
	want := []string{"今天天气很好，", "我们去公园吧！", "好"}
	if len(chunks) != len(want) {
		t.Fatalf("Chunk = %+v", chunks)
	}
	for i := range want {
		if chunks[i].Translation != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i].Translation, want[i])
		}
	}
	if chunks[0].Start != 0 || chunks[len(chunks)-1].End != 12 {
		t.Fatalf("chunks should span the record: %+v", chunks)
	}
}

func TestChunkMergesShortPieces(t *testing.T) {
	chunks := Chunk([]translation.Record{{Start: 0, End: 1, Translation: "是，我们走吧"}})
	if len(chunks) != 1 || chunks[0].Translation != "是，我们走吧" {
		t.Fatalf("short leading piece should merge, got %+v", chunks)
	}
}

func TestWriteAndValidate(t *testing.T) {
	records := []translation.Record{
		{Start: 0, End: 2, Translation: "第一句话在这里。"},
		{Start: 2, End: 4, Translation: "第二句话在这里。"},
	}
	var buf bytes.Buffer
	if err := Write(&buf, Build(records, 2, 30)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,000\n第一句话在这里。\n\n2\n00:00:01,000 --> 00:00:02,000\n第二句话在这里。\n\n"
	if buf.String() != want {
		t.Fatalf("unexpected srt:\n%s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "subtitles.srt")
	if err := WriteFile(path, records, 1); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if issues := ValidateSRTContent(path, 4); len(issues) != 0 {
		t.Fatalf("unexpected issues %v", issues)
	}
	if issues := ValidateSRTContent(path, 0.5); len(issues) == 0 {
		t.Fatal("expected duration mismatch")
	}
}

func TestValidateEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.srt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	issues := ValidateSRTContent(path, 0)
	if len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("unexpected issues %v", issues)
	}
}
