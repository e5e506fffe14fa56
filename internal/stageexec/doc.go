// Package stageexec runs the ordered stage sequence for a single job.
//
// A Runner skips stages whose markers already exist, retries the whole
// sequence under a bounded Policy, emits weighted progress that never moves
// backwards, and converts every stage failure (including panics) into a
// StageError instead of letting it escape.
package stageexec
