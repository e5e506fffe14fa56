package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"dubline/internal/config"
)

// Requirement defines an external command dubline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the commands the configured pipeline invokes.
func Requirements(cfg *config.Config) []Requirement {
	ytdlp := strings.TrimSpace(cfg.Download.YtDlpBinary)
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Required for audio extraction, mixing and rendering"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Required for clip timing and aspect ratio"},
		{Name: "yt-dlp", Command: ytdlp, Description: "Required for remote sources", Optional: true},
		{Name: "uvx", Command: "uvx", Description: "Required to launch demucs and WhisperX"},
	}
	switch cfg.Synthesis.Method {
	case config.SynthesisXTTS:
		reqs = append(reqs, Requirement{Name: "Coqui TTS", Command: "tts", Description: "Required for XTTS voice cloning"})
	default:
		reqs = append(reqs, Requirement{Name: "edge-tts", Command: "edge-tts", Description: "Required for speech synthesis"})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		if path != cmd {
			status.Detail = path
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
