package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupDisabledReturnsNoopShutdown(t *testing.T) {
	shutdown, err := Setup(context.Background(), "aicg-test", false)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupEnabledInstallsProviderAndShutsDownCleanly(t *testing.T) {
	shutdown, err := Setup(context.Background(), "aicg-test", true)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
