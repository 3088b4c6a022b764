package sweeper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtForMime(t *testing.T) {
	require.Equal(t, ".webm", extForMime("video/webm"))
	require.Equal(t, ".mp4", extForMime("video/mp4"))
	require.Equal(t, ".mp4", extForMime("unknown/format"))
}
