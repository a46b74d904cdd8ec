package tracing_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"pixshare/internal/tracing"
)

func TestInit(t *testing.T) {
	_, err := tracing.Init(context.Background(), "pixshare-stub", "jaeger", nil)
	assert.Error(t, err)

	shutdown, err := tracing.Init(context.Background(), "pixshare-stub", "", nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err = tracing.Init(context.Background(), "pixshare-stub", "stdout", &buf)
	require.NoError(t, err)
	_, span := otel.Tracer("test").Start(context.Background(), "open share")
	span.End()
	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "open share")
}
