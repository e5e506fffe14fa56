// Package queue persists run history in SQLite.
//
// Every job of every run owns one row keyed by (run_id, job_key). The stage
// runner upserts the row on each state transition so the history reflects
// the latest stage, progress, attempt count, and failure details. The
// stage marker files in each job directory stay authoritative for resume
// decisions; this database only answers "what happened" questions for the
// history command.
//
// Schema changes bump schemaVersion in schema.go; users delete the history
// database to adopt the new schema.
package queue
