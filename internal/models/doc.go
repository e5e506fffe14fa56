// Package models owns the heavyweight shared resources (separation,
// transcription, diarization and synthesis models) that stages reuse across
// the jobs of one run.
//
// A Manager keeps at most one resident handle per kind. Loading a kind with a
// configuration that differs from the resident one releases the old handle
// first; identical configurations are reused. Distinct kinds may load
// concurrently, while load and release of the same kind are serialized.
package models
