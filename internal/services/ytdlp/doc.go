// Package ytdlp wraps the yt-dlp CLI.
//
// Resolver expands channel, playlist and video URLs into job descriptors,
// stopping once the requested count is reached. Download fetches one video
// as MP4 together with its info JSON.
package ytdlp
