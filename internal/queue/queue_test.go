package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waveCodeSite/aicg/internal/models"
)

func TestQueueNamePrefixesCapability(t *testing.T) {
	require.Equal(t, "cap_image", QueueName(models.CapabilityImage))
}

func TestWeightsOneQueuePerCapability(t *testing.T) {
	w := Weights(3, 5, 5, 5, 64, 1)
	require.Len(t, w, 6)
	require.Equal(t, 64, w[QueueName(models.CapabilityVideoPoll)])
	require.Equal(t, 1, w[QueueName(models.CapabilityAssembly)])
}
