// Package workflow turns one user request into a pipeline run.
//
// The Orchestrator expands the request into jobs (one for a local file, up
// to the requested count for remote locators), initializes the shared
// models once, and drives each job through the stage runner in order. A
// failing remote job does not stop its siblings; a failing local job, or a
// model initialization failure, fails the whole run. Every outcome comes
// back as a RunResult.
//
// Session runs the orchestrator on a background goroutine and reports
// progress and completion over channels. Stop is cooperative: the stage in
// flight finishes and nothing after it starts.
package workflow
