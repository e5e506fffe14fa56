package transcript

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSortsByStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	payload := `[
  {"start": 4.2, "end": 5.0, "speaker": "SPEAKER_01", "text": "second"},
  {"start": 0.5, "end": 3.9, "speaker": "SPEAKER_00", "text": "first"}
]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(lines) != 2 || lines[0].Text != "first" || lines[1].Speaker != "SPEAKER_01" {
		t.Fatalf("unexpected lines %+v", lines)
	}
	if err := Validate(lines); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if Text(lines) != "first second" {
		t.Fatalf("unexpected text %q", Text(lines))
	}
}

func TestValidateRejectsInvertedSegment(t *testing.T) {
	if err := Validate([]Line{{Start: 2, End: 1}}); err == nil {
		t.Fatal("expected error for end before start")
	}
	if err := Validate([]Line{{Start: 2, End: 3}, {Start: 1, End: 4}}); err == nil {
		t.Fatal("expected error for out-of-order lines")
	}
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty array, got %s", data)
	}
}
