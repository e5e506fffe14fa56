// Package subtitles renders translation records as SRT.
//
// Records are re-chunked on CJK and ASCII punctuation (with a minimum chunk
// length), timestamps are scaled by the playback speed and long cues are
// wrapped to a fixed width. ValidateSRTContent performs a light sanity check
// on the written file before it is burned into the video.
package subtitles
