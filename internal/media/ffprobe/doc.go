// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes streams and format metadata. Helpers on
// Result expose stream filtering, aspect ratio and duration used when
// sizing the final render and fitting synthesized clips into their slots.
package ffprobe
