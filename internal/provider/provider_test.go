package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryBuildUsesPerCallCredential(t *testing.T) {
	reg := NewRegistry()
	var gotSecret, gotBaseURL string
	reg.Register("acme", func(secret, baseURL string) Adapter {
		gotSecret, gotBaseURL = secret, baseURL
		return Adapter{Text: nil}
	})

	_, ok := reg.Build("acme", "secret-a", "https://a.example")
	require.True(t, ok)
	require.Equal(t, "secret-a", gotSecret)
	require.Equal(t, "https://a.example", gotBaseURL)

	// A second Build call for a different credential gets its own
	// independently-built Adapter rather than reusing the first.
	_, ok = reg.Build("acme", "secret-b", "https://b.example")
	require.True(t, ok)
	require.Equal(t, "secret-b", gotSecret)
	require.Equal(t, "https://b.example", gotBaseURL)
}

func TestRegistryBuildUnknownProvider(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Build("nope", "s", "b")
	require.False(t, ok)
}
