// Package genericrest implements TextModel and TTSModel against any
// HTTP+JSON endpoint that accepts a POST and returns a result inline,
// grounded on the teacher's dispatchWorkerRequest/pollJobResult
// (service/processor.go): this adapter only covers the synchronous half of
// that pattern since TextModel.Complete and TTSModel.Synthesize are both
// synchronous in spec.md §4.1. It is registered under the provider name
// "generic"; an api_key naming a provider with no registered factory is not
// routed here (the Task Runtime fails it with a ProviderError).
package genericrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/provider"
)

type Adapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(baseURL, apiKey string) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type completeRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	JSONMode    bool    `json:"json_mode,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type completeResponse struct {
	Text  string `json:"text"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error string `json:"error,omitempty"`
}

func (a *Adapter) Complete(ctx context.Context, prompt, system, model string, opts provider.CompleteOptions) (provider.CompleteResult, error) {
	body := completeRequest{Model: model, Prompt: prompt, System: system, JSONMode: opts.JSONMode, Temperature: opts.Temperature}
	var out completeResponse
	if err := a.post(ctx, "/v1/complete", body, &out); err != nil {
		return provider.CompleteResult{}, err
	}
	if out.Error != "" {
		return provider.CompleteResult{}, apperr.Provider(out.Error)
	}
	text := out.Text
	if opts.JSONMode {
		text = stripCodeFence(text)
	}
	return provider.CompleteResult{
		Text:  text,
		Usage: provider.Usage{PromptTokens: out.Usage.PromptTokens, CompletionTokens: out.Usage.CompletionTokens},
	}, nil
}

type synthesizeRequest struct {
	Model   string  `json:"model"`
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed,omitempty"`
	Emotion string  `json:"emotion,omitempty"`
}

type synthesizeResponse struct {
	AudioURL   string `json:"audio_url"`
	Mime       string `json:"mime"`
	DurationMs int    `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func (a *Adapter) Synthesize(ctx context.Context, text, voiceID, model string, opts provider.SynthesizeOptions) (provider.AudioResult, error) {
	body := synthesizeRequest{Model: model, Text: text, VoiceID: voiceID, Speed: opts.Speed, Emotion: opts.Emotion}
	var out synthesizeResponse
	if err := a.post(ctx, "/v1/synthesize", body, &out); err != nil {
		return provider.AudioResult{}, err
	}
	if out.Error != "" {
		return provider.AudioResult{}, apperr.Provider(out.Error)
	}
	if out.AudioURL == "" {
		return provider.AudioResult{}, apperr.MalformedResponse("synthesize response missing audio_url")
	}
	audioBytes, mime, err := a.fetch(ctx, out.AudioURL)
	if err != nil {
		return provider.AudioResult{}, apperr.Provider(fmt.Sprintf("fetch synthesized audio: %v", err))
	}
	duration := out.DurationMs
	if duration <= 0 {
		duration = measurePCMDurationMs(audioBytes)
	}
	if out.Mime != "" {
		mime = out.Mime
	}
	return provider.AudioResult{AudioBytes: audioBytes, Mime: mime, DurationMs: duration}, nil
}

func (a *Adapter) post(ctx context.Context, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return apperr.Timeout(fmt.Sprintf("request to %s: %v", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return apperr.Quota("provider rate limit exceeded")
	}
	if resp.StatusCode >= 500 {
		return apperr.Provider(fmt.Sprintf("%s returned status %d", path, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return apperr.Validation(fmt.Sprintf("%s returned status %d", path, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.MalformedResponse(fmt.Sprintf("decode %s response: %v", path, err))
	}
	return nil
}

func (a *Adapter) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), resp.Header.Get("Content-Type"), nil
}

// stripCodeFence removes a leading/trailing ``` or ```json fence, per
// spec.md §4.1's json_mode contract.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// measurePCMDurationMs is a conservative fallback when a provider omits
// duration_ms: it assumes a 16-bit mono 24kHz WAV payload, the format every
// TTS provider wired so far returns, and is only reached when the provider
// response itself was malformed enough not to report a duration.
func measurePCMDurationMs(audio []byte) int {
	const bytesPerMs = 24000 * 2 / 1000
	if len(audio) <= 44 {
		return 0
	}
	return (len(audio) - 44) / bytesPerMs
}
