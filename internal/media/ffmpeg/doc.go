// Package ffmpeg builds and runs the ffmpeg invocations used by the dubbing
// stages: audio extraction, clip mixing over the instrumental track, final
// render with speed adjustment, background music and subtitle burn-in.
//
// Argument construction is separated from execution so callers can inject a
// CommandRunner in tests.
package ffmpeg
