package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfWrapped(t *testing.T) {
	base := Provider("upstream exploded")
	wrapped := fmt.Errorf("calling adapter: %w", base)

	require.Equal(t, KindProvider, KindOf(wrapped))
}

func TestKindOfIncompleteMaterials(t *testing.T) {
	err := IncompleteMaterials([]string{"shot_2.keyframe"})
	require.Equal(t, KindIncompleteMaterials, KindOf(err))
	require.Contains(t, err.Error(), "shot_2.keyframe")
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(errors.New("boom")))
}

func TestRetryableByKind(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{Validation("bad input"), false},
		{NotFound("missing"), false},
		{Conflict("already exists"), false},
		{ContentPolicy("blocked"), false},
		{Cancelled("stopped"), false},
		{IncompleteMaterials([]string{"x"}), false},
		{Provider("flaky upstream"), true},
		{Quota("rate limited"), true},
		{Timeout("slow"), true},
		{MalformedResponse("bad json"), true},
	}
	for _, c := range cases {
		require.Equal(t, c.retryable, Retryable(c.err), "kind %v", KindOf(c.err))
	}
}
