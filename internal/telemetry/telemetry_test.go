// ABOUTME: Tests for tracing setup.
// ABOUTME: Only the disabled path runs; it must not need a collector.
package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "stress", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := Tracer().Start(context.Background(), "noop")
	span.End()
}
