package assembly

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtForURL(t *testing.T) {
	require.Equal(t, ".mp4", extForURL("https://blob.example/clip.mp4"))
	require.Equal(t, ".webm", extForURL("https://blob.example/clip.webm?X-Amz-Signature=abc"))
	require.Equal(t, ".mp4", extForURL("https://blob.example/clip-with-no-extension"))
}
