package telemetry

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderFallsBackToStdoutWithoutEndpoint(t *testing.T) {
	os.Unsetenv("TRIAGE_OTLP_ENDPOINT")

	p, err := NewProvider(context.Background(), "triage-test")
	require.NoError(t, err)
	assert.NotNil(t, p.Tracer)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProviderShutdownIsNoopWithoutShutdownFunc(t *testing.T) {
	p := &Provider{}
	assert.NoError(t, p.Shutdown(context.Background()))
}
