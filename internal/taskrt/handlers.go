package taskrt

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/blobstore"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/provider"
)

type extractedCharacter struct {
	Name            string `json:"name"`
	VisualTraits    string `json:"visual_traits"`
	KeyVisualTraits string `json:"key_visual_traits"`
}

func (rt *Runtime) extractCharacters(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.ExtractCharacters
	if p == nil {
		return models.TaskResult{}, apperr.Validation("extract_characters task missing payload")
	}
	chapter, err := rt.repo.GetChapter(ctx, p.ChapterID)
	if err != nil {
		return models.TaskResult{}, err
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.Text == nil {
		return models.TaskResult{}, apperr.Provider("provider has no TextModel adapter")
	}

	system := "Extract every named character in the text. Respond with a JSON array of objects: name, visual_traits, key_visual_traits."
	res, err := adapter.Text.Complete(ctx, chapter.RawText, system, p.Model, provider.CompleteOptions{JSONMode: true})
	if err != nil {
		return models.TaskResult{}, err
	}

	var extracted []extractedCharacter
	if err := json.Unmarshal([]byte(res.Text), &extracted); err != nil {
		return models.TaskResult{}, apperr.MalformedResponse("extract_characters: response was not a JSON character array")
	}
	for _, c := range extracted {
		if c.Name == "" {
			continue
		}
		character := &models.Character{
			ProjectID:       chapter.ProjectID,
			Name:            c.Name,
			VisualTraits:    c.VisualTraits,
			KeyVisualTraits: c.KeyVisualTraits,
		}
		if err := rt.repo.CreateCharacter(ctx, character); err != nil && apperr.KindOf(err) != apperr.KindConflict {
			return models.TaskResult{}, err
		}
	}
	return models.TaskResult{ResourceType: "chapter", ResourceID: p.ChapterID}, nil
}

type extractedScene struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
}

func (rt *Runtime) extractScenes(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.ExtractScenes
	if p == nil {
		return models.TaskResult{}, apperr.Validation("extract_scenes task missing payload")
	}
	chapter, err := rt.repo.GetChapter(ctx, p.ChapterID)
	if err != nil {
		return models.TaskResult{}, err
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.Text == nil {
		return models.TaskResult{}, apperr.Provider("provider has no TextModel adapter")
	}

	script, err := rt.repo.EnsureScript(ctx, p.ChapterID)
	if err != nil {
		return models.TaskResult{}, err
	}

	system := "Split the text into ordered scenes. Respond with a JSON array of objects: order, description."
	res, err := adapter.Text.Complete(ctx, chapter.RawText, system, p.Model, provider.CompleteOptions{JSONMode: true})
	if err != nil {
		return models.TaskResult{}, err
	}
	var extracted []extractedScene
	if err := json.Unmarshal([]byte(res.Text), &extracted); err != nil {
		return models.TaskResult{}, apperr.MalformedResponse("extract_scenes: response was not a JSON scene array")
	}
	scenes := make([]models.Scene, 0, len(extracted))
	for _, s := range extracted {
		scenes = append(scenes, models.Scene{ScriptID: script.ID, Order: s.Order, Description: s.Description})
	}
	if err := rt.repo.CreateScenes(ctx, scenes); err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "script", ResourceID: script.ID}, nil
}

type extractedShot struct {
	Order          int      `json:"order"`
	Dialogue       string   `json:"dialogue"`
	KeyframePrompt string   `json:"keyframe_prompt"`
	CharacterRefs  []string `json:"character_refs"`
}

func (rt *Runtime) extractShots(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.ExtractShots
	if p == nil {
		return models.TaskResult{}, apperr.Validation("extract_shots task missing payload")
	}
	scene, err := rt.repo.GetScene(ctx, p.SceneID)
	if err != nil {
		return models.TaskResult{}, err
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.Text == nil {
		return models.TaskResult{}, apperr.Provider("provider has no TextModel adapter")
	}

	script, err := rt.repo.GetScriptByID(ctx, scene.ScriptID)
	if err != nil {
		return models.TaskResult{}, err
	}
	projectID, err := rt.repo.ProjectIDForScript(ctx, script.ID)
	if err != nil {
		return models.TaskResult{}, err
	}

	system := "Split the scene into ordered shots. Respond with a JSON array of objects: order, dialogue, keyframe_prompt, character_refs (array of character names appearing in the shot)."
	res, err := adapter.Text.Complete(ctx, scene.Description, system, p.Model, provider.CompleteOptions{JSONMode: true})
	if err != nil {
		return models.TaskResult{}, err
	}
	var extracted []extractedShot
	if err := json.Unmarshal([]byte(res.Text), &extracted); err != nil {
		return models.TaskResult{}, apperr.MalformedResponse("extract_shots: response was not a JSON shot array")
	}
	shots := make([]models.Shot, 0, len(extracted))
	for _, s := range extracted {
		shots = append(shots, models.Shot{
			SceneID:        p.SceneID,
			Order:          s.Order,
			Dialogue:       s.Dialogue,
			KeyframePrompt: s.KeyframePrompt,
			CharacterRefs:  models.StringSet(s.CharacterRefs),
		})
	}
	if err := rt.repo.CreateShots(ctx, projectID, shots); err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "scene", ResourceID: p.SceneID}, nil
}

func (rt *Runtime) generateSceneImage(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.GenerateSceneImage
	if p == nil {
		return models.TaskResult{}, apperr.Validation("generate_scene_image task missing payload")
	}
	scene, err := rt.repo.GetScene(ctx, p.SceneID)
	if err != nil {
		return models.TaskResult{}, err
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.Image == nil {
		return models.TaskResult{}, apperr.Provider("provider has no ImageModel adapter")
	}
	img, err := adapter.Image.Generate(ctx, p.Prompt, p.Model, provider.GenerateOptions{})
	if err != nil {
		return models.TaskResult{}, err
	}
	projectID, err := rt.repo.ProjectIDForScene(ctx, scene.ID)
	if err != nil {
		return models.TaskResult{}, err
	}
	put, err := rt.blobs.Put(ctx, blobstore.Key(projectID, "scene_image", uuid.NewString(), extForMime(img.Mime)), img.Bytes, img.Mime)
	if err != nil {
		return models.TaskResult{}, apperr.Provider("blob store put failed: " + err.Error())
	}
	if err := rt.repo.UpsertSceneImage(ctx, p.SceneID, put.URL, p.Prompt, p.Model); err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "scene", ResourceID: p.SceneID, ResourceURL: put.URL}, nil
}

func (rt *Runtime) generateCharacterAvatar(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.GenerateCharacterAvatar
	if p == nil {
		return models.TaskResult{}, apperr.Validation("generate_character_avatar task missing payload")
	}
	character, err := rt.repo.GetCharacter(ctx, p.CharacterID)
	if err != nil {
		return models.TaskResult{}, err
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.Image == nil {
		return models.TaskResult{}, apperr.Provider("provider has no ImageModel adapter")
	}
	img, err := adapter.Image.Generate(ctx, p.Prompt, p.Model, provider.GenerateOptions{})
	if err != nil {
		return models.TaskResult{}, err
	}
	put, err := rt.blobs.Put(ctx, blobstore.Key(character.ProjectID, "character_avatar", uuid.NewString(), extForMime(img.Mime)), img.Bytes, img.Mime)
	if err != nil {
		return models.TaskResult{}, apperr.Provider("blob store put failed: " + err.Error())
	}
	if err := rt.repo.UpsertCharacterAvatar(ctx, p.CharacterID, put.URL, p.Prompt, p.Model); err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "character", ResourceID: p.CharacterID, ResourceURL: put.URL}, nil
}

func (rt *Runtime) generateKeyframe(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.GenerateKeyframe
	if p == nil {
		return models.TaskResult{}, apperr.Validation("generate_keyframe task missing payload")
	}
	shot, err := rt.repo.GetShot(ctx, p.ShotID)
	if err != nil {
		return models.TaskResult{}, err
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.Image == nil {
		return models.TaskResult{}, apperr.Provider("provider has no ImageModel adapter")
	}
	img, err := adapter.Image.Generate(ctx, p.Prompt, p.Model, provider.GenerateOptions{ReferenceImages: p.ReferenceImages})
	if err != nil {
		return models.TaskResult{}, err
	}
	projectID, err := rt.repo.ProjectIDForScene(ctx, shot.SceneID)
	if err != nil {
		return models.TaskResult{}, err
	}
	put, err := rt.blobs.Put(ctx, blobstore.Key(projectID, "shot_keyframe", uuid.NewString(), extForMime(img.Mime)), img.Bytes, img.Mime)
	if err != nil {
		return models.TaskResult{}, apperr.Provider("blob store put failed: " + err.Error())
	}
	if err := rt.repo.UpsertShotKeyframe(ctx, p.ShotID, put.URL, p.Prompt, p.Model); err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "shot", ResourceID: p.ShotID, ResourceURL: put.URL}, nil
}

func (rt *Runtime) createTransition(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.CreateTransition
	if p == nil {
		return models.TaskResult{}, apperr.Validation("create_transition task missing payload")
	}
	transition, err := rt.repo.GetTransition(ctx, p.TransitionID)
	if err != nil {
		return models.TaskResult{}, err
	}
	fromShot, err := rt.repo.GetShot(ctx, transition.FromShotID)
	if err != nil {
		return models.TaskResult{}, err
	}
	toShot, err := rt.repo.GetShot(ctx, transition.ToShotID)
	if err != nil {
		return models.TaskResult{}, err
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.Text == nil {
		return models.TaskResult{}, apperr.Provider("provider has no TextModel adapter")
	}
	system := "Describe, in one vivid sentence suitable as a video generation prompt, the motion that connects the first shot's final frame to the second shot's first frame."
	prompt := fromShot.Dialogue + " -> " + toShot.Dialogue
	res, err := adapter.Text.Complete(ctx, prompt, system, p.Model, provider.CompleteOptions{})
	if err != nil {
		return models.TaskResult{}, err
	}
	if err := rt.repo.SetTransitionPrompt(ctx, p.TransitionID, res.Text); err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "transition", ResourceID: p.TransitionID}, nil
}

func (rt *Runtime) submitTransitionVideo(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.SubmitTransitionVideo
	if p == nil {
		return models.TaskResult{}, apperr.Validation("submit_transition_video task missing payload")
	}
	transition, err := rt.repo.GetTransition(ctx, p.TransitionID)
	if err != nil {
		return models.TaskResult{}, err
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.Video == nil {
		return models.TaskResult{}, apperr.Provider("provider has no VideoModel adapter")
	}
	externalID, err := adapter.Video.Submit(ctx, transition.VideoPrompt, p.Model, provider.SubmitOptions{
		FirstFrame: p.FirstFrame,
		LastFrame:  p.LastFrame,
		DurationS:  p.DurationS,
	})
	if err != nil {
		return models.TaskResult{}, err
	}
	if err := rt.repo.SetTransitionSubmitted(ctx, p.TransitionID, externalID, p.APIKeyID, p.Model, task.JobID); err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "transition", ResourceID: p.TransitionID, ExternalTaskID: externalID}, nil
}

func (rt *Runtime) generateSentenceImage(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.GenerateSentenceImage
	if p == nil {
		return models.TaskResult{}, apperr.Validation("generate_sentence_image task missing payload")
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.Image == nil {
		return models.TaskResult{}, apperr.Provider("provider has no ImageModel adapter")
	}
	img, err := adapter.Image.Generate(ctx, p.Prompt, p.Model, provider.GenerateOptions{})
	if err != nil {
		return models.TaskResult{}, err
	}
	projectID, err := rt.repo.ProjectIDForSentence(ctx, p.SentenceID)
	if err != nil {
		return models.TaskResult{}, err
	}
	put, err := rt.blobs.Put(ctx, blobstore.Key(projectID, "sentence_image", uuid.NewString(), extForMime(img.Mime)), img.Bytes, img.Mime)
	if err != nil {
		return models.TaskResult{}, apperr.Provider("blob store put failed: " + err.Error())
	}
	if err := rt.repo.UpsertSentenceImage(ctx, p.SentenceID, put.URL, p.Prompt, p.Model); err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "sentence", ResourceID: p.SentenceID, ResourceURL: put.URL}, nil
}

func (rt *Runtime) generateSentenceAudio(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.GenerateSentenceAudio
	if p == nil {
		return models.TaskResult{}, apperr.Validation("generate_sentence_audio task missing payload")
	}
	adapter, err := rt.resolveAdapter(ctx, p.APIKeyID)
	if err != nil {
		return models.TaskResult{}, err
	}
	if adapter.TTS == nil {
		return models.TaskResult{}, apperr.Provider("provider has no TTSModel adapter")
	}
	audio, err := adapter.TTS.Synthesize(ctx, p.Text, p.VoiceID, p.Model, provider.SynthesizeOptions{})
	if err != nil {
		return models.TaskResult{}, err
	}
	projectID, err := rt.repo.ProjectIDForSentence(ctx, p.SentenceID)
	if err != nil {
		return models.TaskResult{}, err
	}
	put, err := rt.blobs.Put(ctx, blobstore.Key(projectID, "sentence_audio", uuid.NewString(), extForMime(audio.Mime)), audio.AudioBytes, audio.Mime)
	if err != nil {
		return models.TaskResult{}, apperr.Provider("blob store put failed: " + err.Error())
	}
	if err := rt.repo.UpsertSentenceAudio(ctx, p.SentenceID, put.URL, audio.DurationMs, p.Text, p.Model); err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "sentence", ResourceID: p.SentenceID, ResourceURL: put.URL}, nil
}

// composeVideo hands off to the Video Assembly Engine. It runs inside the
// same capability queue as every other task kind (cap_assembly) rather than
// a separate process, so its progress is visible through the ordinary Task
// row while the Engine itself drives the finer-grained VideoTask record.
func (rt *Runtime) composeVideo(ctx context.Context, task *models.Task) (models.TaskResult, error) {
	p := task.Payload.ComposeVideo
	if p == nil {
		return models.TaskResult{}, apperr.Validation("compose_video task missing payload")
	}
	if rt.assembly == nil {
		return models.TaskResult{}, apperr.Provider("assembly engine not configured on this worker")
	}
	videoURL, err := rt.assembly.Compose(ctx, p.ChapterID, p.Resolution, p.FPS, p.BGMRef, p.BGMVolume)
	if err != nil {
		return models.TaskResult{}, err
	}
	return models.TaskResult{ResourceType: "chapter", ResourceID: p.ChapterID, ResourceURL: videoURL}, nil
}

func extForMime(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "video/mp4":
		return ".mp4"
	default:
		return ".jpg"
	}
}
