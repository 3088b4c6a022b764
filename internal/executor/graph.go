// Package executor is the Stage Graph Executor of spec.md §4.5: it drives a
// Chapter from raw text to finished video by walking an explicit dependency
// DAG of Stages, fanning out tasks under the Task Runtime's concurrency caps
// and re-evaluating readiness every time a task terminates. It generalizes
// the teacher's single flat HandleGenerateTask switch (service/processor.go)
// into named stage nodes with declared DependsOn edges.
package executor

import "github.com/waveCodeSite/aicg/internal/models"

// StageName identifies a node in a project type's stage DAG.
type StageName string

const (
	StageExtractCharacters StageName = "S0_extract_characters"
	StageExtractScenes     StageName = "S1_extract_scenes"
	StageExtractShots      StageName = "S2_extract_shots"
	StageSceneImages       StageName = "S3_generate_scene_images"
	StageCharacterAvatars  StageName = "S4_generate_character_avatars"
	StageKeyframes         StageName = "S5_generate_keyframes"
	StageTransitions       StageName = "S6_create_transitions"
	StageTransitionVideos  StageName = "S7_generate_transition_videos"
	StageComposeVideo      StageName = "S8_compose_video"

	StageSentenceAssets StageName = "N0_sentence_assets"
	StageNarrativeAssembly StageName = "N1_assembly"
)

// stageWeight is the per-task cost estimate of spec.md §4.5's progress
// rollup: video=8, image=2, text=1, assembly=10.
func stageWeight(cap models.TaskCapability) float64 {
	switch cap {
	case models.CapabilityText:
		return 1
	case models.CapabilityImage, models.CapabilityTTS:
		return 2
	case models.CapabilityVideoSubmit, models.CapabilityVideoPoll:
		return 8
	case models.CapabilityAssembly:
		return 10
	default:
		return 1
	}
}

// Stage is one DAG node: the task kind it fans out, the stages it depends
// on, and an AllowPartial marker. The readiness evaluator (stageReady) does
// not read AllowPartial: a partially successful dependency releases
// downstream stages only when the Job has ContinueOnPartial set.
type Stage struct {
	Name            StageName
	Kind            models.TaskKind
	Capability      models.TaskCapability
	DependsOn       []StageName
	AllowPartial    bool
}

// MovieStages is the S0-S8 DAG of spec.md §4.5's table, in dependency order.
var MovieStages = []Stage{
	{Name: StageExtractCharacters, Kind: models.TaskKindExtractCharacters, Capability: models.CapabilityText},
	{Name: StageExtractScenes, Kind: models.TaskKindExtractScenes, Capability: models.CapabilityText, DependsOn: []StageName{StageExtractCharacters}},
	{Name: StageExtractShots, Kind: models.TaskKindExtractShots, Capability: models.CapabilityText, DependsOn: []StageName{StageExtractScenes}},
	{Name: StageSceneImages, Kind: models.TaskKindGenerateSceneImage, Capability: models.CapabilityImage, DependsOn: []StageName{StageExtractScenes}, AllowPartial: true},
	{Name: StageCharacterAvatars, Kind: models.TaskKindGenerateCharacterAvatar, Capability: models.CapabilityImage, DependsOn: []StageName{StageExtractCharacters}, AllowPartial: true},
	{Name: StageKeyframes, Kind: models.TaskKindGenerateKeyframe, Capability: models.CapabilityImage, DependsOn: []StageName{StageExtractShots, StageCharacterAvatars}, AllowPartial: true},
	{Name: StageTransitions, Kind: models.TaskKindCreateTransition, Capability: models.CapabilityText, DependsOn: []StageName{StageExtractShots, StageKeyframes}, AllowPartial: true},
	{Name: StageTransitionVideos, Kind: models.TaskKindSubmitTransitionVideo, Capability: models.CapabilityVideoSubmit, DependsOn: []StageName{StageTransitions}, AllowPartial: true},
	{Name: StageComposeVideo, Kind: models.TaskKindComposeVideo, Capability: models.CapabilityAssembly, DependsOn: []StageName{StageTransitionVideos}},
}

// NarrativeStages is the simpler per-sentence fan-out: one stage that
// creates an image task and an audio task per sentence (the two run
// independently of each other), then assembly.
var NarrativeStages = []Stage{
	{Name: StageSentenceAssets, Kind: models.TaskKindGenerateSentenceImage, Capability: models.CapabilityImage, AllowPartial: true},
	{Name: StageNarrativeAssembly, Kind: models.TaskKindComposeVideo, Capability: models.CapabilityAssembly, DependsOn: []StageName{StageSentenceAssets}},
}

// StageByName indexes a stage list for the readiness evaluator.
func StageByName(stages []Stage, name StageName) (Stage, bool) {
	for _, s := range stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// StagesFor resolves which stage list a Job walks, based on project type.
func StagesFor(pt models.ProjectType) []Stage {
	if pt == models.ProjectTypeNarrative {
		return NarrativeStages
	}
	return MovieStages
}

// TransitiveClosure returns target and every stage target (directly or
// indirectly) depends on, the set SubmitJob must materialize.
func TransitiveClosure(stages []Stage, target StageName) map[StageName]bool {
	closure := map[StageName]bool{}
	var visit func(name StageName)
	visit = func(name StageName) {
		if closure[name] {
			return
		}
		stage, ok := StageByName(stages, name)
		if !ok {
			return
		}
		closure[name] = true
		for _, dep := range stage.DependsOn {
			visit(dep)
		}
	}
	visit(target)
	return closure
}
