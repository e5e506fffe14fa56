// Package preflight checks that a run can start: the working directories
// are writable, the external commands exist, and a hosted translation
// backend answers.
//
// The run command calls RunAll before expanding the request and refuses to
// start when a required check fails; the deps command prints every result.
package preflight
