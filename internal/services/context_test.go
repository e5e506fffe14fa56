package services_test

import (
	"context"
	"testing"

	"dubline/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := services.WithRequestID(
		services.WithStage(
			services.WithRunID(
				services.WithJobID(context.Background(), "job-1"),
				"run-9"),
			"translate"),
		"req-123")

	checks := map[string]func(context.Context) (string, bool){
		"job-1":     services.JobIDFromContext,
		"run-9":     services.RunIDFromContext,
		"translate": services.StageFromContext,
		"req-123":   services.RequestIDFromContext,
	}
	for want, get := range checks {
		if got, ok := get(ctx); !ok || got != want {
			t.Fatalf("expected %q, got %q (ok=%v)", want, got, ok)
		}
	}
}

func TestEmptyValuesAreIgnored(t *testing.T) {
	ctx := services.WithJobID(services.WithStage(context.Background(), ""), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id")
	}
}
