// Package whisperx runs WhisperX transcription through uvx.
//
// This package handles:
//   - WhisperX invocation with VAD, batch and device settings
//   - Optional pyannote speaker diarization
//   - Conversion of the JSON output into ordered transcript lines
//
// Configuration options (model, device, diarization) are passed via Config.
package whisperx
