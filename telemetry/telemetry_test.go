package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, isSDK := tp.(*sdktrace.TracerProvider)
	assert.False(t, isSDK)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx))
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	// non-routable, nothing is exported before shutdown
	tp, shutdown, err := Setup(context.Background(), Config{
		Endpoint:    "http://192.0.2.1:4318",
		ServiceName: "portal-test",
	})
	require.NoError(t, err)

	_, isSDK := tp.(*sdktrace.TracerProvider)
	assert.True(t, isSDK)
	assert.Same(t, tp, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupAcceptsHostPort(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, shutdown, err := Setup(context.Background(), Config{
		Endpoint: "192.0.2.1:4318",
		Insecure: true,
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
