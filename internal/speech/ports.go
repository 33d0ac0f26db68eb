package speech

import (
	"context"
	"io"
	"time"

	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

// === Движки (непрозрачные) ===

// SynthesisEngine рисует один ограниченный по длине кусок текста в аудиофайл outPath
// в своём родном формате. Лимит длины обеспечивает вызывающий.
type SynthesisEngine interface {
	Render(ctx context.Context, text, voice string, sampleRate int, outPath string) error
}

// RecognitionEngine принимает 16-битный PCM кусками и в конце отдаёт JSON с полем text.
// pcm валиден только на время вызова Feed. Finalize сбрасывает состояние высказывания.
type RecognitionEngine interface {
	Feed(ctx context.Context, pcm []byte) (accepted bool, err error)
	Finalize(ctx context.Context) ([]byte, error)
}

// resetter: необязательная возможность движка сбросить накопленное без финального результата.
type resetter interface {
	Reset()
}

// === Транскодер ===

type Transcoder interface {
	Transcode(ctx context.Context, in, out string, target transcoder.Format) error
	DecodeStream(ctx context.Context, in string, sampleRate, channels int) (io.ReadCloser, error)
	Concat(ctx context.Context, inputs []string, out string) error
	TranscodeBytes(ctx context.Context, in []byte, target transcoder.Format) ([]byte, error)
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// === Данные ===

// Artifact: аудио на диске и его формат. Принадлежит тому, кто его создал,
// пока не передан дальше или не удалён.
type Artifact struct {
	Path   string
	Format transcoder.Format
}

type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// Result: итог распознавания. Поля совпадают с JSON финального результата движка.
type Result struct {
	Text  string `json:"text"`
	Words []Word `json:"result,omitempty"`
}

// Options: переопределения на один запрос синтеза. Нулевые поля берутся из конфига.
type Options struct {
	Voice      string
	SampleRate int
	Format     transcoder.Format
	OutPath    string
}
