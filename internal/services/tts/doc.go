// Package tts synthesizes speech clips for translated sentences.
//
// Two backends are supported: the edge-tts CLI (hosted neural voices) and
// Coqui XTTS through the `tts` CLI, which clones the speaker from a
// reference recording. Both write one audio file per request.
package tts
