// Package translation turns an ordered transcript into subtitle-ready
// translation records.
//
// Language-model replies are free text, so every reply passes through a
// Validator: a deterministic gate that either extracts and normalizes the
// translation or produces a corrective instruction for the next attempt.
// Translator drives the bounded retry loop with a rolling history of
// accepted exchanges and degrades unresolved sentences to a placeholder
// instead of failing the stage.
package translation
