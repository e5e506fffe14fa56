package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  Plain Title  ", "Plain Title"},
		{"AC/DC: Live?", "AC-DC- Live"},
		{"line\nbreak\ttab", "line break tab"},
		{"ends with dots...", "ends with dots"},
		{`"quoted" <tag> | pipe`, "quoted tag pipe"},
		{"为什么？", "为什么"},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileNameTruncates(t *testing.T) {
	got := SanitizeFileName(strings.Repeat("长", 300))
	if n := len([]rune(got)); n != maxSegmentRunes {
		t.Fatalf("expected %d runes, got %d", maxSegmentRunes, n)
	}
}
