// Package job defines the unit of work that flows through the dubbing
// pipeline: a source reference (remote locator or local file), the metadata
// the list resolver reports for it, and the per-run state the stage runner
// mutates while the job moves through its stages.
package job
