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

const deepgramURL = "https://api.deepgram.com"

// DeepgramSTT копит PCM и отправляет его в Deepgram в Finalize.
type DeepgramSTT struct {
	apiKey     string
	baseURL    string
	language   string
	sampleRate int
	client     *http.Client

	buf bytes.Buffer
}

func NewDeepgramSTT(apiKey, baseURL, language string, sampleRate int) (*DeepgramSTT, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY not set", speech.ErrEngineUnavailable)
	}
	if baseURL == "" {
		baseURL = deepgramURL
	}
	return &DeepgramSTT{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		sampleRate: sampleRate,
		client:     &http.Client{},
	}, nil
}

func (c *DeepgramSTT) Feed(_ context.Context, pcm []byte) (bool, error) {
	c.buf.Write(pcm)
	return false, nil
}

func (c *DeepgramSTT) Finalize(ctx context.Context) ([]byte, error) {
	defer c.Reset()

	if c.buf.Len() == 0 {
		return json.Marshal(speech.Result{})
	}
	wav, err := EncodeWAV(c.buf.Bytes(), c.sampleRate, 1)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("model", "nova-2")
	q.Set("smart_format", "true")
	if c.language != "" {
		q.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/listen?"+q.Encode(), bytes.NewReader(wav))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepgram error %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
					Words      []struct {
						Word       string  `json:"word"`
						Start      float64 `json:"start"`
						End        float64 `json:"end"`
						Confidence float64 `json:"confidence"`
					} `json:"words"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode deepgram: %w", err)
	}

	// пустой ответ = тишина, не ошибка
	var res speech.Result
	if len(parsed.Results.Channels) > 0 && len(parsed.Results.Channels[0].Alternatives) > 0 {
		alt := parsed.Results.Channels[0].Alternatives[0]
		res.Text = alt.Transcript
		for _, w := range alt.Words {
			res.Words = append(res.Words, speech.Word{Word: w.Word, Start: w.Start, End: w.End, Conf: w.Confidence})
		}
	}
	return json.Marshal(res)
}

func (c *DeepgramSTT) Reset() {
	c.buf.Reset()
}
