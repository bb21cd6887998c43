package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpointsIsNoop(t *testing.T) {
	tel, err := Setup(context.Background(), "railscout", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetupHTTPExporters(t *testing.T) {
	tel, err := Setup(context.Background(), "railscout", Config{
		Traces:  Endpoint{HttpEndpoint: "http://127.0.0.1:4318/v1/traces"},
		Metrics: Endpoint{HttpEndpoint: "http://127.0.0.1:4318/v1/metrics"},
	})
	require.NoError(t, err)
	require.NotNil(t, tel.TracerProvider)
	require.NotNil(t, tel.MeterProvider)

	// nothing listens on the endpoint, so the final flush may fail
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = tel.Shutdown(ctx)
}
