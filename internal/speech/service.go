package speech

import (
	"context"
	"time"

	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

// === Единый сервис (и для стт и для ттс) ===

type Service struct {
	tts *Orchestrator
	stt *Recognizer
	tc  Transcoder
}

func NewService(tts *Orchestrator, stt *Recognizer, tc Transcoder) *Service {
	return &Service{
		tts: tts,
		stt: stt,
		tc:  tc,
	}
}

// Transcribe: голос в текст.
func (s *Service) Transcribe(ctx context.Context, filePath string) (string, error) {
	res, err := s.stt.Transcribe(ctx, filePath)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (s *Service) TranscribeResult(ctx context.Context, filePath string) (Result, error) {
	return s.stt.Transcribe(ctx, filePath)
}

// Synthesize: текст в голос. Файл результата принадлежит вызывающему.
func (s *Service) Synthesize(ctx context.Context, text string, opts Options) (Artifact, error) {
	return s.tts.TextToAudio(ctx, text, opts)
}

// Convert перекодирует аудио в памяти.
func (s *Service) Convert(ctx context.Context, data []byte, target transcoder.Format) ([]byte, error) {
	return s.tc.TranscodeBytes(ctx, data, target)
}

func (s *Service) Duration(ctx context.Context, path string) (time.Duration, error) {
	return s.tc.Duration(ctx, path)
}
