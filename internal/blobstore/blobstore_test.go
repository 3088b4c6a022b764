package blobstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyBuildsFlatNamespacePrefix(t *testing.T) {
	require.Equal(t, "proj-1/scene_image/shot-9.png", Key("proj-1", "scene_image", "shot-9", ".png"))
}

func TestContentTypeByExtKnownExtensions(t *testing.T) {
	require.Equal(t, "image/png", contentTypeByExt("a/b.png"))
	require.Equal(t, "video/mp4", contentTypeByExt("a/b.mp4"))
	require.Equal(t, "audio/mpeg", contentTypeByExt("a/b.mp3"))
	require.Equal(t, "application/octet-stream", contentTypeByExt("a/b.unknown"))
}
