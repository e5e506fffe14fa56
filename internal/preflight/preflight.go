package preflight

import (
	"context"

	"dubline/internal/config"
	"dubline/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}

// RunAll executes every applicable check. The LLM check only runs when
// probeLLM is set, since it spends a request.
func RunAll(ctx context.Context, cfg *config.Config, probeLLM bool) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, fromStatus(status))
	}
	if probeLLM && cfg.Translation.Method == config.TranslationOpenRouter {
		results = append(results, CheckLLM(ctx, "Translation LLM", cfg.Translation))
	}
	return results
}

func fromStatus(s deps.Status) Result {
	detail := s.Detail
	if detail == "" {
		detail = s.Command
	}
	return Result{Name: s.Name, Passed: s.Available, Optional: s.Optional, Detail: detail}
}
