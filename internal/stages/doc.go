// Package stages implements the six stage functions of the dubbing
// pipeline on top of the external tool wrappers.
//
// Every handler reads its inputs from the job directory, writes outputs
// through a temporary path, and commits its marker file last. A handler
// invoked when its marker already exists returns the existing output.
//
// Handlers that need a shared model acquire it from the models.Manager
// before running, so a configuration change between jobs releases and
// reloads only the affected kind.
package stages
