package executor

import (
	"context"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

// materialize creates every task a stage's fan-out calls for, reading
// current chapter state so a resumed job only creates tasks for resources
// that don't already have one (ListTasksByJobAndStage already guarantees
// materialize only runs once per stage per job, so this is the single
// place fan-out counts are decided).
func (ex *Executor) materialize(ctx context.Context, job *models.Job, chapter *models.Chapter, stage Stage) error {
	switch stage.Name {
	case StageExtractCharacters:
		apiKeyID, model, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityText)
		if err != nil {
			return err
		}
		return ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
			ExtractCharacters: &models.ExtractCharactersPayload{ChapterID: chapter.ID, APIKeyID: apiKeyID, Model: model},
		})

	case StageExtractScenes:
		apiKeyID, model, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityText)
		if err != nil {
			return err
		}
		return ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
			ExtractScenes: &models.ExtractScenesPayload{ChapterID: chapter.ID, APIKeyID: apiKeyID, Model: model},
		})

	case StageExtractShots:
		script, err := ex.repo.EnsureScript(ctx, chapter.ID)
		if err != nil {
			return err
		}
		scenes, err := ex.repo.ListScenes(ctx, script.ID)
		if err != nil {
			return err
		}
		apiKeyID, model, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityText)
		if err != nil {
			return err
		}
		for _, scene := range scenes {
			if err := ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
				ExtractShots: &models.ExtractShotsPayload{SceneID: scene.ID, APIKeyID: apiKeyID, Model: model},
			}); err != nil {
				return err
			}
		}
		return nil

	case StageSceneImages:
		script, err := ex.repo.EnsureScript(ctx, chapter.ID)
		if err != nil {
			return err
		}
		scenes, err := ex.repo.ListScenes(ctx, script.ID)
		if err != nil {
			return err
		}
		apiKeyID, model, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityImage)
		if err != nil {
			return err
		}
		for _, scene := range scenes {
			if err := ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
				GenerateSceneImage: &models.GenerateSceneImagePayload{SceneID: scene.ID, Prompt: scene.Description, APIKeyID: apiKeyID, Model: model},
			}); err != nil {
				return err
			}
		}
		return nil

	case StageCharacterAvatars:
		characters, err := ex.repo.ListCharacters(ctx, chapter.ProjectID)
		if err != nil {
			return err
		}
		apiKeyID, model, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityImage)
		if err != nil {
			return err
		}
		for _, c := range characters {
			if err := ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
				GenerateCharacterAvatar: &models.GenerateCharacterAvatarPayload{CharacterID: c.ID, Prompt: c.VisualTraits, APIKeyID: apiKeyID, Model: model},
			}); err != nil {
				return err
			}
		}
		return nil

	case StageKeyframes:
		return ex.materializeKeyframes(ctx, job, chapter, stage)

	case StageTransitions:
		return ex.materializeTransitions(ctx, job, chapter, stage)

	case StageTransitionVideos:
		return ex.materializeTransitionVideos(ctx, job, chapter, stage)

	case StageComposeVideo:
		return ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
			ComposeVideo: &models.ComposeVideoPayload{ChapterID: chapter.ID, Resolution: "1920x1080", FPS: 24},
		})

	case StageSentenceAssets:
		return ex.materializeSentenceAssets(ctx, job, chapter, stage)

	case StageNarrativeAssembly:
		return ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
			ComposeVideo: &models.ComposeVideoPayload{ChapterID: chapter.ID, Resolution: "1080x1920", FPS: 24},
		})

	default:
		return apperr.Validation("no fan-out defined for stage " + string(stage.Name))
	}
}

// materializeKeyframes enforces the fine-grained dependency of spec.md
// §4.5: a shot is ready only once every character it references has a
// completed avatar, independently of whether other shots are waiting on
// different (or no) characters.
func (ex *Executor) materializeKeyframes(ctx context.Context, job *models.Job, chapter *models.Chapter, stage Stage) error {
	script, err := ex.repo.EnsureScript(ctx, chapter.ID)
	if err != nil {
		return err
	}
	scenes, err := ex.repo.ListScenes(ctx, script.ID)
	if err != nil {
		return err
	}
	apiKeyID, model, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityImage)
	if err != nil {
		return err
	}
	for _, scene := range scenes {
		shots, err := ex.repo.ListShots(ctx, scene.ID)
		if err != nil {
			return err
		}
		for _, shot := range shots {
			refs, err := ex.resolveCharacterAvatars(ctx, chapter.ProjectID, shot.CharacterRefs)
			if err != nil {
				continue // a missing/ungenerated character ref blocks only this shot
			}
			if err := ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
				GenerateKeyframe: &models.GenerateKeyframePayload{
					ShotID: shot.ID, Prompt: shot.KeyframePrompt, ReferenceImages: refs, APIKeyID: apiKeyID, Model: model,
				},
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ex *Executor) resolveCharacterAvatars(ctx context.Context, projectID string, refs models.StringSet) ([]string, error) {
	urls := make([]string, 0, len(refs))
	for _, name := range refs {
		c, err := ex.repo.GetCharacterByName(ctx, projectID, name)
		if err != nil {
			return nil, err
		}
		if c.AvatarURL == "" {
			return nil, apperr.IncompleteMaterials([]string{"character_avatar:" + c.ID})
		}
		urls = append(urls, c.AvatarURL)
	}
	return urls, nil
}

// materializeTransitions pairs consecutive shots across the whole script
// (flattened across scenes in scene order, then shot order within a scene)
// and creates one Transition + one create_transition task per adjacent
// pair.
func (ex *Executor) materializeTransitions(ctx context.Context, job *models.Job, chapter *models.Chapter, stage Stage) error {
	script, err := ex.repo.EnsureScript(ctx, chapter.ID)
	if err != nil {
		return err
	}
	shots, err := ex.flattenShots(ctx, script.ID)
	if err != nil {
		return err
	}
	apiKeyID, model, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityText)
	if err != nil {
		return err
	}
	for i := 0; i+1 < len(shots); i++ {
		t := &models.Transition{ScriptID: script.ID, FromShotID: shots[i].ID, ToShotID: shots[i+1].ID, Order: i}
		if err := ex.repo.CreateTransition(ctx, t); err != nil {
			return err
		}
		if err := ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
			CreateTransition: &models.CreateTransitionPayload{TransitionID: t.ID, APIKeyID: apiKeyID, Model: model},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) materializeTransitionVideos(ctx context.Context, job *models.Job, chapter *models.Chapter, stage Stage) error {
	script, err := ex.repo.EnsureScript(ctx, chapter.ID)
	if err != nil {
		return err
	}
	transitions, err := ex.repo.ListTransitions(ctx, script.ID)
	if err != nil {
		return err
	}
	apiKeyID, model, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityVideoSubmit)
	if err != nil {
		return err
	}
	for _, t := range transitions {
		fromShot, err := ex.repo.GetShot(ctx, t.FromShotID)
		if err != nil {
			return err
		}
		toShot, err := ex.repo.GetShot(ctx, t.ToShotID)
		if err != nil {
			return err
		}
		if err := ex.enqueue(ctx, job, stage.Kind, stage.Capability, stage.Name, models.TaskPayload{
			SubmitTransitionVideo: &models.SubmitTransitionVideoPayload{
				TransitionID: t.ID, FirstFrame: fromShot.KeyframeURL, LastFrame: toShot.KeyframeURL, DurationS: 8, APIKeyID: apiKeyID, Model: model,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) materializeSentenceAssets(ctx context.Context, job *models.Job, chapter *models.Chapter, stage Stage) error {
	sentences, err := ex.repo.ListSentences(ctx, chapter.ID)
	if err != nil {
		return err
	}
	imgKeyID, imgModel, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityImage)
	if err != nil {
		return err
	}
	ttsKeyID, ttsModel, err := ex.defaultAPIKey(ctx, chapter.ProjectID, models.CapabilityTTS)
	if err != nil {
		return err
	}
	for _, s := range sentences {
		if err := ex.enqueue(ctx, job, models.TaskKindGenerateSentenceImage, models.CapabilityImage, stage.Name, models.TaskPayload{
			GenerateSentenceImage: &models.GenerateSentenceImagePayload{SentenceID: s.ID, Prompt: s.Text, APIKeyID: imgKeyID, Model: imgModel},
		}); err != nil {
			return err
		}
		if err := ex.enqueue(ctx, job, models.TaskKindGenerateSentenceAudio, models.CapabilityTTS, stage.Name, models.TaskPayload{
			GenerateSentenceAudio: &models.GenerateSentenceAudioPayload{SentenceID: s.ID, Text: s.Text, APIKeyID: ttsKeyID, Model: ttsModel},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) flattenShots(ctx context.Context, scriptID string) ([]models.Shot, error) {
	scenes, err := ex.repo.ListScenes(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	var all []models.Shot
	for _, scene := range scenes {
		shots, err := ex.repo.ListShots(ctx, scene.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, shots...)
	}
	return all, nil
}

// defaultAPIKey resolves the project owner's first active key; the
// capability only chooses the default model name. Letting the caller pick a specific
// provider per stage is out of scope here; this always takes the first
// active key the user has, which is enough to exercise every provider
// adapter in a single-tenant deployment.
func (ex *Executor) defaultAPIKey(ctx context.Context, projectID string, cap models.TaskCapability) (apiKeyID, model string, err error) {
	project, err := ex.repo.GetProject(ctx, projectID)
	if err != nil {
		return "", "", err
	}
	keys, err := ex.repo.ListAPIKeys(ctx, project.UserID)
	if err != nil {
		return "", "", err
	}
	for _, k := range keys {
		if k.Status == "active" {
			return k.ID, defaultModelFor(k.Provider, cap), nil
		}
	}
	return "", "", apperr.Validation("no active api key configured for user")
}

func defaultModelFor(providerName string, cap models.TaskCapability) string {
	switch cap {
	case models.CapabilityText:
		return "text-default"
	case models.CapabilityImage:
		return "doubao-seedream-4-0-250828"
	case models.CapabilityTTS:
		return "tts-default"
	case models.CapabilityVideoSubmit, models.CapabilityVideoPoll:
		return "doubao-seedance"
	default:
		return ""
	}
}
