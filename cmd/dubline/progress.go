package main

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"dubline/internal/workflow"
)

// progressView renders workflow updates for one run.
type progressView interface {
	Update(workflow.Update)
	Close()
}

func newProgressView(w io.Writer, interactive bool) progressView {
	if interactive {
		return &barView{out: w}
	}
	return &lineView{out: w, last: -1}
}

func jobLabel(u workflow.Update) string {
	if u.JobCount > 1 {
		return fmt.Sprintf("[%d/%d] %s", u.JobIndex+1, u.JobCount, u.JobID)
	}
	return u.JobID
}

// barView draws one progress bar per job.
type barView struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	jobID string
}

func (v *barView) Update(u workflow.Update) {
	if v.bar == nil || u.JobID != v.jobID {
		v.finish()
		v.jobID = u.JobID
		v.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(v.out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(v.out) }),
		)
	}
	v.bar.Describe(fmt.Sprintf("%s %s", jobLabel(u), u.Status))
	_ = v.bar.Set(u.Percent)
}

func (v *barView) finish() {
	if v.bar == nil || v.bar.IsFinished() {
		return
	}
	// A job that stopped short keeps its last position on screen.
	_ = v.bar.Exit()
	fmt.Fprintln(v.out)
}

func (v *barView) Close() {
	v.finish()
	v.bar = nil
}

// lineView prints one line per change, for logs and pipes.
type lineView struct {
	out    io.Writer
	jobID  string
	last   int
	status string
}

func (v *lineView) Update(u workflow.Update) {
	if u.JobID == v.jobID && u.Percent == v.last && u.Status == v.status {
		return
	}
	v.jobID, v.last, v.status = u.JobID, u.Percent, u.Status
	fmt.Fprintf(v.out, "%s %3d%% %s\n", jobLabel(u), u.Percent, u.Status)
}

func (v *lineView) Close() {}
