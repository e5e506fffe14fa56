package services

import (
	"errors"
	"fmt"
	"strings"
)

// Failure classes. Wrap tags errors with one of these so history and logs
// can group failures without parsing messages.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// categories is checked in order; the first matching marker wins.
var categories = []struct {
	marker error
	name   string
}{
	{ErrConfiguration, "configuration"},
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrTimeout, "timeout"},
	{ErrExternalTool, "external_tool"},
}

// Wrap returns err annotated as "<marker>: stage: operation: message: err".
// A nil marker means ErrTransient and a nil err yields a fresh error.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	context := joinNonEmpty(stage, operation, message)
	if context == "" {
		context = "service failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, context)
	}
	return fmt.Errorf("%w: %s: %w", marker, context, err)
}

// Category names the failure class of err for run history. Unmarked errors
// count as transient.
func Category(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range categories {
		if errors.Is(err, c.marker) {
			return c.name
		}
	}
	return "transient"
}

func joinNonEmpty(values ...string) string {
	kept := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ": ")
}
