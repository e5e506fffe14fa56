// Package services defines shared utilities consumed by the pipeline stages and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures recorded in run
//     history carry a consistent category.
//
// Tool wrappers live in the subpackages (llm, ytdlp, demucs, whisperx, tts).
package services
