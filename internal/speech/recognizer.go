package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	DefaultRecognizerRate = 16000
	DefaultChunkSize      = 4000
)

type RecognizerConfig struct {
	SampleRate int
	ChunkSize  int
}

// Recognizer гонит файл через ffmpeg в PCM и кормит движок буферами фиксированного размера.
type Recognizer struct {
	engine *Handle[RecognitionEngine]
	tc     Transcoder
	cfg    RecognizerConfig
	log    *zap.Logger
}

func NewRecognizer(engine *Handle[RecognitionEngine], tc Transcoder, cfg RecognizerConfig, log *zap.Logger) (*Recognizer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if engine == nil || tc == nil {
		return nil, fmt.Errorf("%w: recognizer needs an engine and a transcoder", ErrEngineUnavailable)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultRecognizerRate
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Recognizer{engine: engine, tc: tc, cfg: cfg, log: log.Named("stt")}, nil
}

// Transcribe распознаёт файл целиком. Тишина даёт пустой текст без ошибки.
// Движок занят на всё время вызова, поэтому результаты разных вызовов не смешиваются.
func (r *Recognizer) Transcribe(ctx context.Context, path string) (Result, error) {
	if path == "" {
		return Result{}, fmt.Errorf("%w: empty audio path", ErrInvalidInput)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s does not exist", ErrInvalidInput, path)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	started := time.Now()
	var (
		res    Result
		chunks int
	)
	err := r.engine.Do(ctx, func(e RecognitionEngine) error {
		raw, n, err := r.feed(ctx, e, path)
		chunks = n
		if err != nil {
			r.reset(ctx, e)
			return err
		}
		res, err = parseResult(raw)
		return err
	})
	if err != nil {
		r.log.Warn("transcribe failed", zap.String("path", path), zap.Int("chunks", chunks), zap.Error(err))
		return Result{}, err
	}

	r.log.Info("transcribed",
		zap.String("path", path),
		zap.Int("chunks", chunks),
		zap.Int("chars", len([]rune(res.Text))),
		zap.Duration("took", time.Since(started)),
	)
	return res, nil
}

func (r *Recognizer) feed(ctx context.Context, e RecognitionEngine, path string) ([]byte, int, error) {
	stream, err := r.tc.DecodeStream(ctx, path, r.cfg.SampleRate, 1)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	buf := make([]byte, r.cfg.ChunkSize)
	chunks := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, chunks, err
		}

		n, err := io.ReadFull(stream, buf)
		if n > 0 {
			if _, ferr := e.Feed(ctx, buf[:n]); ferr != nil {
				return nil, chunks, fmt.Errorf("feed chunk %d: %w", chunks, ferr)
			}
			chunks++
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, chunks, err
		}
	}

	raw, err := e.Finalize(ctx)
	if err != nil {
		return nil, chunks, fmt.Errorf("finalize: %w", err)
	}
	return raw, chunks, nil
}

// reset выбрасывает накопленное состояние движка после сбоя, чтобы следующий запрос начался с нуля.
func (r *Recognizer) reset(ctx context.Context, e RecognitionEngine) {
	if rs, ok := e.(resetter); ok {
		rs.Reset()
		return
	}
	if _, err := e.Finalize(context.WithoutCancel(ctx)); err != nil {
		r.log.Debug("discard engine state", zap.Error(err))
	}
}

func parseResult(raw []byte) (Result, error) {
	var res Result
	if len(bytes.TrimSpace(raw)) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("decode engine result: %w", err)
	}
	res.Text = strings.TrimSpace(res.Text)
	return res, nil
}
