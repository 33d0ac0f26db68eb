package engines

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Vovarama1992/voice_bot/internal/speech"
)

const (
	elevenLabsURL   = "https://api.elevenlabs.io"
	elevenLabsModel = "eleven_multilingual_v2"
)

// ElevenLabsTTS синтезирует через ElevenLabs. voice здесь это voice_id.
// Запрашивает сырой PCM на нужной частоте и сам пишет WAV.
type ElevenLabsTTS struct {
	apiKey  string
	baseURL string
	httpCli *http.Client
}

func NewElevenLabsTTS(apiKey, baseURL string) (*ElevenLabsTTS, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ELEVENLABS_API_KEY not set", speech.ErrEngineUnavailable)
	}
	if baseURL == "" {
		baseURL = elevenLabsURL
	}
	return &ElevenLabsTTS{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCli: http.DefaultClient,
	}, nil
}

// TEXT → SPEECH
func (c *ElevenLabsTTS) Render(ctx context.Context, text, voice string, sampleRate int, outPath string) error {
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=pcm_%d",
		c.baseURL, url.PathEscape(voice), sampleRate)

	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": elevenLabsModel,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("elevenlabs read: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("elevenlabs error %d: %s", resp.StatusCode, body)
	}

	return writeWAV(outPath, body, sampleRate)
}
