package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"dubline/internal/job"
	"dubline/internal/services"
)

// Request is one pipeline invocation. Either Spec or Sources names the
// input; Sources wins when both are set.
type Request struct {
	// Spec is a free-form source specification: an existing file path, or
	// remote locators separated by commas or newlines.
	Spec    string       `validate:"required_without=Sources"`
	Sources []job.Source `validate:"required_without=Spec,dive"`
	// Count caps how many videos remote locators expand to; zero uses the
	// configured video_count.
	Count int `validate:"gte=0,lte=500"`
	// WorkRoot overrides the configured work directory.
	WorkRoot string
	Progress ProgressFunc `validate:"-"`
}

// Update is one progress report for the job currently running.
type Update struct {
	JobID    string
	JobIndex int
	JobCount int
	Percent  int
	Status   string
}

// ProgressFunc receives updates synchronously, one at a time, in stage order.
type ProgressFunc func(Update)

var validate = validator.New(validator.WithRequiredStructEnabled())

// sources validates the request and resolves it to job sources.
func (r Request) sources() ([]job.Source, error) {
	if err := validate.Struct(r); err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "validate request", describeValidation(err), nil)
	}
	if len(r.Sources) > 0 {
		return r.Sources, nil
	}
	sources, err := job.ParseSources(r.Spec)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "parse sources", "", err)
	}
	return sources, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
