package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Tool wraps an ffmpeg binary.
type Tool struct {
	binary string
	runner CommandRunner
}

// New returns a Tool for the given binary ("ffmpeg" when empty).
func New(binary string) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Tool{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Tool) WithCommandRunner(runner CommandRunner) *Tool {
	t.runner = runner
	return t
}

// Binary returns the configured executable.
func (t *Tool) Binary() string {
	return t.binary
}

func (t *Tool) run(ctx context.Context, args ...string) error {
	if t.runner != nil {
		return t.runner(ctx, t.binary, args...)
	}
	cmd := exec.CommandContext(ctx, t.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.binary, err, tail(strings.TrimSpace(string(output)), 2000))
	}
	return nil
}

func baseArgs() []string {
	return []string{"-y", "-hide_banner", "-loglevel", "error"}
}

// ExtractAudio writes the source's audio as 44.1 kHz stereo PCM.
func (t *Tool) ExtractAudio(ctx context.Context, source, dest string) error {
	args := append(baseArgs(),
		"-i", source,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-ac", "2",
		dest,
	)
	if err := t.run(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return nil
}

// Clip is one synthesized utterance placed on the output timeline.
type Clip struct {
	Path  string
	Start float64
	// Tempo speeds the clip up so it fits its slot. Values <= 1 leave it unchanged.
	Tempo float64
}

// MixArgs builds the arguments that overlay clips on the background track.
// The output keeps the background's duration.
func MixArgs(background string, clips []Clip, dest string) []string {
	args := baseArgs()
	args = append(args, "-i", background)
	for _, clip := range clips {
		args = append(args, "-i", clip.Path)
	}
	var filter strings.Builder
	labels := make([]string, 0, len(clips)+1)
	labels = append(labels, "[0:a]")
	for i, clip := range clips {
		delay := int(math.Round(math.Max(clip.Start, 0) * 1000))
		fmt.Fprintf(&filter, "[%d:a]", i+1)
		for _, tempo := range tempoChain(clip.Tempo) {
			fmt.Fprintf(&filter, "atempo=%s,", formatFloat(tempo))
		}
		fmt.Fprintf(&filter, "adelay=%d|%d[c%d];", delay, delay, i)
		labels = append(labels, fmt.Sprintf("[c%d]", i))
	}
	filter.WriteString(strings.Join(labels, ""))
	fmt.Fprintf(&filter, "amix=inputs=%d:duration=first:normalize=0[a]", len(labels))
	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[a]",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-ac", "2",
		dest,
	)
	return args
}

// MixClips overlays clips on background and writes dest. With no clips,
// dest is the background alone.
func (t *Tool) MixClips(ctx context.Context, background string, clips []Clip, dest string) error {
	if err := t.run(ctx, MixArgs(background, clips, dest)...); err != nil {
		return fmt.Errorf("ffmpeg mix: %w", err)
	}
	return nil
}

// tempoChain splits a tempo factor into atempo steps within ffmpeg's 0.5..2 range.
func tempoChain(tempo float64) []float64 {
	if tempo <= 1 || math.IsNaN(tempo) || math.IsInf(tempo, 0) {
		return nil
	}
	var chain []float64
	for tempo > 2 {
		chain = append(chain, 2)
		tempo /= 2
	}
	return append(chain, math.Round(tempo*1000)/1000)
}

// RenderOptions control the final video render.
type RenderOptions struct {
	Video  string
	Audio  string
	Output string
	Speed  float64
	FPS    int
	Width  int
	Height int
}

// RenderArgs builds the arguments combining video and dubbed audio.
func RenderArgs(opts RenderOptions) []string {
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}
	filter := fmt.Sprintf("[0:v]setpts=PTS/%s[v];[1:a]atempo=%s[a]", formatFloat(speed), formatFloat(speed))
	args := baseArgs()
	args = append(args,
		"-i", opts.Video,
		"-i", opts.Audio,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "[a]",
	)
	if opts.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(opts.FPS))
	}
	if opts.Width > 0 && opts.Height > 0 {
		args = append(args, "-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height))
	}
	args = append(args, "-c:v", "libx264", "-c:a", "aac", opts.Output)
	return args
}

// Render writes the dubbed video.
func (t *Tool) Render(ctx context.Context, opts RenderOptions) error {
	if err := t.run(ctx, RenderArgs(opts)...); err != nil {
		return fmt.Errorf("ffmpeg render: %w", err)
	}
	return nil
}

// BackgroundMusicArgs builds the arguments mixing music under a video's audio.
func BackgroundMusicArgs(video, music, dest string, videoVolume, musicVolume float64) []string {
	filter := fmt.Sprintf("[0:a]volume=%s[v0];[1:a]volume=%s[v1];[v0][v1]amix=inputs=2:duration=first[a]",
		formatFloat(videoVolume), formatFloat(musicVolume))
	args := baseArgs()
	return append(args,
		"-i", video,
		"-i", music,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[a]",
		"-c:v", "copy",
		"-c:a", "aac",
		dest,
	)
}

// AddBackgroundMusic mixes music into the video's soundtrack.
func (t *Tool) AddBackgroundMusic(ctx context.Context, video, music, dest string, videoVolume, musicVolume float64) error {
	if err := t.run(ctx, BackgroundMusicArgs(video, music, dest, videoVolume, musicVolume)...); err != nil {
		return fmt.Errorf("ffmpeg background music: %w", err)
	}
	return nil
}

// SubtitleStyle sizes burned-in subtitles relative to the frame width.
type SubtitleStyle struct {
	FontName string
	FontDir  string
	Width    int
}

// ForceStyle returns the libass force_style value.
func (s SubtitleStyle) ForceStyle() string {
	fontSize := s.Width / 128
	if fontSize <= 0 {
		fontSize = 15
	}
	outline := int(math.Round(float64(fontSize) / 8))
	parts := []string{
		fmt.Sprintf("FontSize=%d", fontSize),
		"PrimaryColour=&HFFFFFF",
		"OutlineColour=&H000000",
		fmt.Sprintf("Outline=%d", outline),
		"WrapStyle=2",
	}
	if strings.TrimSpace(s.FontName) != "" {
		parts = append([]string{"FontName=" + s.FontName}, parts...)
	}
	return strings.Join(parts, ",")
}

// BurnSubtitlesArgs builds the arguments that render an SRT into the frames.
func BurnSubtitlesArgs(video, srt, dest string, style SubtitleStyle) []string {
	filter := "subtitles=" + escapeFilterPath(srt)
	if style.FontDir != "" {
		filter += ":fontsdir=" + escapeFilterPath(style.FontDir)
	}
	filter += ":force_style='" + style.ForceStyle() + "'"
	args := baseArgs()
	return append(args,
		"-i", video,
		"-vf", filter,
		"-c:v", "libx264",
		"-c:a", "copy",
		dest,
	)
}

// BurnSubtitles renders srt into the video.
func (t *Tool) BurnSubtitles(ctx context.Context, video, srt, dest string, style SubtitleStyle) error {
	if err := t.run(ctx, BurnSubtitlesArgs(video, srt, dest, style)...); err != nil {
		return fmt.Errorf("ffmpeg subtitles: %w", err)
	}
	return nil
}

// TargetSize computes an even frame size for the given aspect ratio. base is
// the output height, or the width for portrait sources.
func TargetSize(aspect float64, base int) (int, int, error) {
	if base <= 0 {
		return 0, 0, fmt.Errorf("invalid base resolution %d", base)
	}
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		return 0, 0, fmt.Errorf("invalid aspect ratio %v", aspect)
	}
	var width, height int
	if aspect < 1 {
		width = base
		height = int(float64(width) / aspect)
	} else {
		height = base
		width = int(float64(height) * aspect)
	}
	return width - width%2, height - height%2, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `,`, `\,`)
	return replacer.Replace(path)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
