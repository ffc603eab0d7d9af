package service

import (
	"log/slog"

	"github.com/pastibot/companion/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/pastibot/companion/internal/service"

// Telemetry groups the optional observability dependencies shared by services.
type Telemetry struct {
	Logger  *slog.Logger     // Optional: defaults to slog.Default()
	Metrics metrics.Recorder // Optional: defaults to metrics.Nop
	Tracer  trace.Tracer     // Optional: defaults to the global tracer provider
}

func (t Telemetry) withDefaults() Telemetry {
	if t.Logger == nil {
		t.Logger = slog.Default()
	}
	if t.Metrics == nil {
		t.Metrics = metrics.Nop{}
	}
	if t.Tracer == nil {
		t.Tracer = otel.Tracer(tracerName)
	}
	return t
}
