package action

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithTracerProvider enables OpenTelemetry tracing of handler invocations
// and publish cycles. Without this option the registry records nothing.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Registry) {
		r.tracer = tracerHook{
			tracer: tp.Tracer("github.com/mostlygeek/action-bus/action"),
		}
	}
}

// tracerHook wraps an optional tracer; the zero value records nothing.
type tracerHook struct {
	tracer trace.Tracer
}

func (h tracerHook) start(spanName, actionName string) func() {
	if h.tracer == nil {
		return func() {}
	}
	_, span := h.tracer.Start(context.Background(), spanName,
		trace.WithAttributes(attribute.String("action.name", actionName)))
	return func() { span.End() }
}

func (h tracerHook) startPublish(spanName, actionName string, subscribers int) func() {
	if h.tracer == nil {
		return func() {}
	}
	_, span := h.tracer.Start(context.Background(), spanName,
		trace.WithAttributes(
			attribute.String("action.name", actionName),
			attribute.Int("action.subscribers", subscribers),
		))
	return func() { span.End() }
}
