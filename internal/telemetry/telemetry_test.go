package telemetry

import (
	"context"
	"testing"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}

	_, span := Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("disabled telemetry should yield non-recording spans")
	}
}

func TestSetup_Enabled(t *testing.T) {
	cfg := Config{Endpoint: "127.0.0.1:4318", Insecure: true}
	shutdown, err := Setup(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	_, span := Tracer("test").Start(context.Background(), "op")
	if !span.SpanContext().IsValid() {
		t.Error("enabled telemetry should produce sampled spans")
	}
	span.End()

	// Nothing listens on the endpoint; only make sure shutdown returns.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestConfig_Validate(t *testing.T) {
	bad := 1.5
	if err := (Config{SampleRatio: &bad}).Validate(); err == nil {
		t.Error("expected error for ratio > 1")
	}
	ok := 0.25
	if err := (Config{SampleRatio: &ok}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
