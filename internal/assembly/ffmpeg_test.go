package assembly

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverlapTrimFramesRoundsOneAndAHalfFrameIntervals(t *testing.T) {
	require.Equal(t, 36, overlapTrimFrames(24))
	require.Equal(t, 45, overlapTrimFrames(30))
}

func TestParseFrameRateRoundsNTSCRates(t *testing.T) {
	fps, err := parseFrameRate("24000/1001")
	require.NoError(t, err)
	require.Equal(t, 24, fps)
}

func TestParseFrameRateWholeNumberNoDenominator(t *testing.T) {
	fps, err := parseFrameRate("30")
	require.NoError(t, err)
	require.Equal(t, 30, fps)
}

func TestParseFrameRateZeroDenominatorErrors(t *testing.T) {
	_, err := parseFrameRate("24/0")
	require.Error(t, err)
}

func TestParseResolution(t *testing.T) {
	w, h, err := parseResolution("1920x1080")
	require.NoError(t, err)
	require.Equal(t, 1920, w)
	require.Equal(t, 1080, h)
}

func TestParseResolutionRejectsMalformedInput(t *testing.T) {
	_, _, err := parseResolution("not-a-resolution")
	require.Error(t, err)
}

func TestEscapeDrawtextEscapesFFmpegFilterMetachars(t *testing.T) {
	require.Equal(t, `it\'s a test\: really`, escapeDrawtext("it's a test: really"))
}
