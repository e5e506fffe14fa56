// Package stage defines the fixed, ordered pipeline stages, their progress
// weights and the canonical marker file each stage commits into a job's
// working directory.
//
// Marker presence is the only resumption signal. Stage functions write their
// marker through TempPath + Commit so a crash mid-write never leaves a file
// that looks complete, and Reconcile drops markers that violate ordering
// before a runner trusts them.
package stage
