package engines

import (
	"bytes"
	"context"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Vovarama1992/voice_bot/internal/speech"
)

// openAISpeechRate: tts-1 отдаёт PCM только в 24 кГц.
const openAISpeechRate = 24000

func NewOpenAIClient(apiKey, baseURL string) (*openai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", speech.ErrEngineUnavailable)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg), nil
}

// === TTS ===

type OpenAITTS struct {
	client *openai.Client
	model  openai.SpeechModel
}

func NewOpenAITTS(client *openai.Client) *OpenAITTS {
	return &OpenAITTS{client: client, model: openai.TTSModel1}
}

func (c *OpenAITTS) Render(ctx context.Context, text, voice string, sampleRate int, outPath string) error {
	if sampleRate != openAISpeechRate {
		return fmt.Errorf("openai tts supports only %d Hz, got %d", openAISpeechRate, sampleRate)
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	pcm, err := io.ReadAll(resp)
	if err != nil {
		return fmt.Errorf("openai speech read: %w", err)
	}
	return writeWAV(outPath, pcm, openAISpeechRate)
}

// === STT ===

// WhisperSTT копит PCM и отправляет его одним WAV-файлом в Finalize.
type WhisperSTT struct {
	client     *openai.Client
	language   string
	sampleRate int

	buf bytes.Buffer
}

func NewWhisperSTT(client *openai.Client, language string, sampleRate int) *WhisperSTT {
	return &WhisperSTT{client: client, language: language, sampleRate: sampleRate}
}

func (w *WhisperSTT) Feed(_ context.Context, pcm []byte) (bool, error) {
	w.buf.Write(pcm)
	return false, nil
}

func (w *WhisperSTT) Finalize(ctx context.Context) ([]byte, error) {
	defer w.Reset()

	if w.buf.Len() == 0 {
		return json.Marshal(speech.Result{})
	}
	wav, err := EncodeWAV(w.buf.Bytes(), w.sampleRate, 1)
	if err != nil {
		return nil, err
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:                  openai.Whisper1,
		FilePath:               "speech.wav",
		Reader:                 bytes.NewReader(wav),
		Language:               w.language,
		Format:                 openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{openai.TranscriptionTimestampGranularityWord},
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	res := speech.Result{Text: resp.Text}
	for _, wd := range resp.Words {
		res.Words = append(res.Words, speech.Word{Word: wd.Word, Start: wd.Start, End: wd.End, Conf: 1})
	}
	return json.Marshal(res)
}

func (w *WhisperSTT) Reset() {
	w.buf.Reset()
}
