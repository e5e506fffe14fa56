package stageexec

import (
	"dubline/internal/job"
	"dubline/internal/stage"
)

// Progress is one weighted progress update for a job.
type Progress struct {
	Percent   int
	Status    string
	Stage     stage.Stage
	Completed bool
}

// ProgressFunc receives updates synchronously, in stage order.
type ProgressFunc func(Progress)

// emitter clamps updates to a high-water mark so a job's reported percent
// never decreases, even when a retry restarts from the first stage.
type emitter struct {
	job  *job.Job
	sink ProgressFunc
	high int
}

func newEmitter(j *job.Job, sink ProgressFunc) *emitter {
	j.Progress = 0
	return &emitter{job: j, sink: sink}
}

func (e *emitter) emit(p Progress) {
	if p.Percent < e.high {
		p.Percent = e.high
	}
	if p.Percent > 100 {
		p.Percent = 100
	}
	e.high = p.Percent
	e.job.Progress = p.Percent
	e.job.Message = p.Status
	if e.sink != nil {
		e.sink(p)
	}
}
