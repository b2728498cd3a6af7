package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewResourceCarriesServiceName(t *testing.T) {
	res := newResource("triage-orchestrator")

	var found bool
	for _, kv := range res.Attributes() {
		if kv.Key == semconv.ServiceNameKey {
			assert.Equal(t, "triage-orchestrator", kv.Value.AsString())
			found = true
		}
	}
	assert.True(t, found, "expected a service.name attribute on the resource")
}
