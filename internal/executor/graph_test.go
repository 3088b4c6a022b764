package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waveCodeSite/aicg/internal/models"
)

func TestStagesForPicksDAGByProjectType(t *testing.T) {
	require.Equal(t, MovieStages, StagesFor(models.ProjectTypeMovie))
	require.Equal(t, NarrativeStages, StagesFor(models.ProjectTypeNarrative))
}

func TestTransitiveClosureIncludesWholeDependencyChain(t *testing.T) {
	closure := TransitiveClosure(MovieStages, StageComposeVideo)

	for _, name := range []StageName{
		StageExtractCharacters, StageExtractScenes, StageExtractShots,
		StageCharacterAvatars, StageKeyframes, StageTransitions,
		StageTransitionVideos, StageComposeVideo,
	} {
		require.True(t, closure[name], "expected %s in closure", name)
	}
	// scene images aren't on the dependency path to compose_video for this
	// DAG shape, so they must not be pulled in.
	require.False(t, closure[StageSceneImages])
}

func TestTransitiveClosureOfLeafStageIsJustItself(t *testing.T) {
	closure := TransitiveClosure(MovieStages, StageExtractCharacters)
	require.Equal(t, map[StageName]bool{StageExtractCharacters: true}, closure)
}

func TestStageByNameMissing(t *testing.T) {
	_, ok := StageByName(MovieStages, StageName("does_not_exist"))
	require.False(t, ok)
}
