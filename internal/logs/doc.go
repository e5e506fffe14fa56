// Package logs reads the dubline log file for the `logs` command.
//
// Tail returns the last lines of the file, or the lines appended after a
// known offset, optionally waiting for new output. Matchers narrow JSON log
// lines to one run or job.
package logs
