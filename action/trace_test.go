package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingDisabledByDefault(t *testing.T) {
	reg := New(map[string]any{"x": nil})
	_, err := reg.On("x", func(any) {})
	require.NoError(t, err)

	// Must not panic without a tracer provider configured.
	reg.Call("x", 1)
}

func TestTracingSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	reg := New(map[string]any{"load": nil}, WithTracerProvider(tp))
	require.NoError(t, reg.RegisterAsync("load", func(done Done, payload any) {
		done.Invoke(payload)
	}))
	_, err := reg.On("load", func(any) {})
	require.NoError(t, err)
	_, err = reg.On("load", func(any) {})
	require.NoError(t, err)

	reg.Call("load", 42)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	// The publish cycle ends inside the handler, so it exports first.
	assert.Equal(t, "action.publish", spans[0].Name)
	assert.Equal(t, "action.call", spans[1].Name)

	attrs := make(map[string]any)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "load", attrs["action.name"])
	assert.Equal(t, int64(2), attrs["action.subscribers"])
}
