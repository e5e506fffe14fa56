package stage

import (
	"fmt"
	"strings"
)

// Stage identifies one ordered phase of the pipeline.
type Stage int

const (
	Download Stage = iota
	Separate
	Transcribe
	Translate
	Synthesize
	Assemble
)

// Marker and auxiliary file names inside a job directory.
const (
	FileVideo        = "download.mp4"
	FileInfo         = "download.info.json"
	FileAudio        = "audio.wav"
	FileVocals       = "audio_vocals.wav"
	FileInstruments  = "audio_instruments.wav"
	FileTranscript   = "transcript.json"
	FileSummary      = "summary.json"
	FileTranslation  = "translation.json"
	FileCombined     = "audio_combined.wav"
	FileSubtitles    = "subtitles.srt"
	FileOutput       = "video.mp4"
	FileSynthesisDir = "wavs"
)

// Descriptor is the static description of one stage.
type Descriptor struct {
	Stage  Stage
	Name   string
	Label  string
	Weight int
	Marker string
}

var descriptors = [...]Descriptor{
	{Download, "download", "Downloading video", 10, FileVideo},
	{Separate, "separate", "Separating vocals", 15, FileVocals},
	{Transcribe, "transcribe", "Transcribing speech", 20, FileTranscript},
	{Translate, "translate", "Translating subtitles", 25, FileTranslation},
	{Synthesize, "synthesize", "Synthesizing speech", 20, FileCombined},
	{Assemble, "assemble", "Assembling video", 10, FileOutput},
}

// All returns the stage table in execution order.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors[:])
	return out
}

// Count is the number of stages.
const Count = len(descriptors)

// Valid reports whether s names a defined stage.
func (s Stage) Valid() bool { return s >= Download && s <= Assemble }

// Describe returns the descriptor for s.
func (s Stage) Describe() Descriptor {
	if !s.Valid() {
		return Descriptor{Stage: s, Name: fmt.Sprintf("stage(%d)", int(s))}
	}
	return descriptors[s]
}

func (s Stage) String() string { return s.Describe().Name }

// Label is the human-readable status shown while the stage runs.
func (s Stage) Label() string { return s.Describe().Label }

// Marker is the file whose presence means the stage already completed.
func (s Stage) Marker() string { return s.Describe().Marker }

// Floor is the cumulative progress reached before s starts.
func (s Stage) Floor() int {
	total := 0
	for i := Download; i < s && i.Valid(); i++ {
		total += descriptors[i].Weight
	}
	return total
}

// Ceiling is the cumulative progress once s completes.
func (s Stage) Ceiling() int {
	if !s.Valid() {
		return s.Floor()
	}
	return s.Floor() + descriptors[s].Weight
}

// Next returns the following stage and false when s is the last one.
func (s Stage) Next() (Stage, bool) {
	if s >= Assemble {
		return s, false
	}
	return s + 1, true
}

// Parse resolves a stage by name.
func Parse(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range descriptors {
		if d.Name == name {
			return d.Stage, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}
