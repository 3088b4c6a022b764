package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringSetValueScanRoundTrip(t *testing.T) {
	want := StringSet{"alice", "bob"}
	v, err := want.Value()
	require.NoError(t, err)

	var got StringSet
	require.NoError(t, got.Scan(v))
	require.Equal(t, want, got)
}

func TestStringSetScanNilClears(t *testing.T) {
	got := StringSet{"stale"}
	require.NoError(t, got.Scan(nil))
	require.Nil(t, got)
}

func TestStringSetScanRejectsNonBytes(t *testing.T) {
	var got StringSet
	require.Error(t, got.Scan(42))
}

func TestStringSetContains(t *testing.T) {
	s := StringSet{"a", "b"}
	require.True(t, s.Contains("a"))
	require.False(t, s.Contains("c"))
}

func TestJobStatisticsValueScanRoundTrip(t *testing.T) {
	want := JobStatistics{Total: 10, Success: 7, Failed: 2, Skipped: 1}
	v, err := want.Value()
	require.NoError(t, err)

	var got JobStatistics
	require.NoError(t, got.Scan(v))
	require.Equal(t, want, got)
}

func TestTaskProgressValueScanRoundTrip(t *testing.T) {
	want := TaskProgress{Current: 3, Total: 5}
	v, err := want.Value()
	require.NoError(t, err)

	var got TaskProgress
	require.NoError(t, got.Scan(v))
	require.Equal(t, want, got)
}

func TestTaskPayloadValueScanRoundTripPreservesOneOf(t *testing.T) {
	want := TaskPayload{ExtractShots: &ExtractShotsPayload{SceneID: "scene-1", APIKeyID: "key-1", Model: "m"}}
	v, err := want.Value()
	require.NoError(t, err)

	var got TaskPayload
	require.NoError(t, got.Scan(v))
	require.Nil(t, got.ExtractCharacters)
	require.NotNil(t, got.ExtractShots)
	require.Equal(t, "scene-1", got.ExtractShots.SceneID)
}
