// Package volcengine adapts volcengine-go-sdk's arkruntime client to the
// ImageModel and VideoModel interfaces, grounded on GoldenLandForever-V2V's
// controller/T2I.go (GenerateImages) and controller/I2V.go
// (CreateContentGenerationTask / GetContentGenerationTask).
package volcengine

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/provider"
)

type Adapter struct {
	client *arkruntime.Client
}

func New(apiKey, baseURL string) *Adapter {
	if baseURL != "" {
		return &Adapter{client: arkruntime.NewClientWithApiKey(apiKey, arkruntime.WithBaseUrl(baseURL))}
	}
	return &Adapter{client: arkruntime.NewClientWithApiKey(apiKey)}
}

func (a *Adapter) Generate(ctx context.Context, prompt, model_ string, opts provider.GenerateOptions) (provider.ImageResult, error) {
	req := model.GenerateImagesRequest{
		Model:          model_,
		Prompt:         prompt,
		ResponseFormat: volcengine.String(model.GenerateImagesResponseFormatURL),
		Watermark:      volcengine.Bool(false),
	}
	if opts.AspectRatio != "" {
		req.Size = volcengine.String(opts.AspectRatio)
	}
	resp, err := a.client.GenerateImages(ctx, req)
	if err != nil {
		return provider.ImageResult{}, apperr.Provider(fmt.Sprintf("volcengine GenerateImages: %v", err))
	}
	if resp.Error != nil {
		if isContentPolicyCode(resp.Error.Code) {
			return provider.ImageResult{}, apperr.ContentPolicy(resp.Error.Message)
		}
		return provider.ImageResult{}, apperr.Provider(resp.Error.Code + ": " + resp.Error.Message)
	}
	if len(resp.Data) == 0 || resp.Data[0].Url == nil {
		return provider.ImageResult{}, apperr.MalformedResponse("volcengine image response missing url")
	}
	b, mime, err := fetchURL(ctx, *resp.Data[0].Url)
	if err != nil {
		return provider.ImageResult{}, apperr.Provider(fmt.Sprintf("fetch generated image: %v", err))
	}
	return provider.ImageResult{Bytes: b, Mime: mime}, nil
}

func (a *Adapter) Submit(ctx context.Context, prompt, model_ string, opts provider.SubmitOptions) (string, error) {
	req := model.CreateContentGenerationTaskRequest{
		Model: model_,
		Content: []*model.CreateContentGenerationContentItem{
			{Type: model.ContentGenerationContentItemTypeText, Text: &prompt},
		},
	}
	resp, err := a.client.CreateContentGenerationTask(ctx, req)
	if err != nil {
		return "", apperr.Provider(fmt.Sprintf("volcengine CreateContentGenerationTask: %v", err))
	}
	if resp.ID == "" {
		return "", apperr.MalformedResponse("volcengine video submit response missing id")
	}
	return resp.ID, nil
}

func (a *Adapter) Poll(ctx context.Context, externalTaskID string) (provider.PollResult, error) {
	req := model.GetContentGenerationTaskRequest{ID: externalTaskID}
	resp, err := a.client.GetContentGenerationTask(ctx, req)
	if err != nil {
		return provider.PollResult{}, apperr.Provider(fmt.Sprintf("volcengine GetContentGenerationTask: %v", err))
	}
	switch resp.Status {
	case "succeeded":
		if resp.Content.VideoURL == "" {
			return provider.PollResult{}, apperr.MalformedResponse("volcengine video task succeeded without a video_url")
		}
		b, mime, err := fetchURL(ctx, resp.Content.VideoURL)
		if err != nil {
			return provider.PollResult{}, apperr.Provider(fmt.Sprintf("fetch generated video: %v", err))
		}
		return provider.PollResult{Status: provider.PollStatusSucceeded, VideoBytes: b, Mime: mime}, nil
	case "failed":
		errMsg := ""
		if resp.Error != nil {
			errMsg = resp.Error.Code + ": " + resp.Error.Message
		}
		return provider.PollResult{Status: provider.PollStatusFailed, Error: errMsg}, nil
	default:
		return provider.PollResult{Status: provider.PollStatusRunning}, nil
	}
}

func isContentPolicyCode(code string) bool {
	return code == "OutputImageSensitiveContentDetected" || code == "InputContentSensitive"
}

func fetchURL(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return b, resp.Header.Get("Content-Type"), nil
}
