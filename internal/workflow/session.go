package workflow

import (
	"context"
	"sync"
)

const progressBuffer = 64

// Session runs one request on a background goroutine.
type Session struct {
	progress chan Update
	done     chan RunResult
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// Start launches req on o. The caller reads Progress until it closes and
// then receives the result from Done.
func Start(ctx context.Context, o *Orchestrator, req Request) *Session {
	runCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		progress: make(chan Update, progressBuffer),
		done:     make(chan RunResult, 1),
		cancel:   cancel,
	}
	caller := req.Progress
	req.Progress = func(u Update) {
		if caller != nil {
			caller(u)
		}
		// A slow reader misses intermediate updates, never their order.
		select {
		case s.progress <- u:
		default:
		}
	}
	go func() {
		defer cancel()
		result := o.Run(runCtx, req)
		close(s.progress)
		s.done <- result
		close(s.done)
	}()
	return s
}

// Progress delivers updates in stage order; it closes when the run ends.
func (s *Session) Progress() <-chan Update { return s.progress }

// Done yields the run result once.
func (s *Session) Done() <-chan RunResult { return s.done }

// Stop asks the run to finish after the stage in flight. It does not wait.
func (s *Session) Stop() {
	s.stopOnce.Do(s.cancel)
}

// Wait blocks until the run ends and returns its result.
func (s *Session) Wait() RunResult {
	for range s.progress {
	}
	return <-s.done
}
