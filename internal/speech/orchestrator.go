package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_bot/internal/textproc"
	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

const DefaultMaxSegment = 800

type OrchestratorConfig struct {
	MaxSegment int               // лимит символов на один вызов движка
	TempDir    string            // промежуточные файлы и результат без OutPath
	Format     transcoder.Format // формат результата по умолчанию
}

// Orchestrator синтезирует текст любой длины: нормализация чисел, нарезка,
// синтез по кускам и склейка в один файл.
type Orchestrator struct {
	synth *Synthesizer
	tc    Transcoder
	cfg   OrchestratorConfig
	log   *zap.Logger
}

func NewOrchestrator(synth *Synthesizer, tc Transcoder, cfg OrchestratorConfig, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxSegment <= 0 {
		cfg.MaxSegment = DefaultMaxSegment
	}
	if cfg.Format.IsZero() {
		cfg.Format = transcoder.OGG
	}
	return &Orchestrator{synth: synth, tc: tc, cfg: cfg, log: log.Named("tts")}
}

// TextToAudio возвращает ровно один артефакт в нужном формате. При любой ошибке
// промежуточные файлы запроса удаляются до возврата.
func (o *Orchestrator) TextToAudio(ctx context.Context, text string, opts Options) (Artifact, error) {
	if strings.TrimSpace(text) == "" {
		return Artifact{}, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	target := opts.Format
	if target.IsZero() {
		target = o.cfg.Format
	}

	ws, err := NewWorkspace(o.cfg.TempDir, o.log)
	if err != nil {
		return Artifact{}, err
	}
	defer ws.Cleanup()

	started := time.Now()

	// 1. числа -> слова
	normalized := textproc.NormalizeNumerals(text)

	// 2. нарезка
	segs := textproc.Split(normalized, o.cfg.MaxSegment)

	// 3/4. один кусок или много
	var native Artifact
	if segs.Len() == 1 {
		native, err = o.synth.SynthesizeSegment(ctx, ws, segs.Collect()[0], opts)
	} else {
		native, err = o.multi(ctx, ws, segs, opts)
	}
	if err != nil {
		ws.log.Warn("synthesis failed", zap.Int("segments", segs.Len()), zap.Error(err))
		return Artifact{}, err
	}

	final, err := o.synth.ToTargetFormat(ctx, ws, native, target)
	if err != nil {
		return Artifact{}, err
	}

	if opts.OutPath != "" {
		if err := moveFile(final.Path, opts.OutPath); err != nil {
			return Artifact{}, fmt.Errorf("place output: %w", err)
		}
		ws.Keep(final.Path)
		final.Path = opts.OutPath
	} else {
		ws.Keep(final.Path)
	}

	fields := []zap.Field{
		zap.Int("segments", segs.Len()),
		zap.String("path", final.Path),
		zap.Stringer("format", final.Format),
		zap.Duration("took", time.Since(started)),
	}
	if st, err := os.Stat(final.Path); err == nil {
		fields = append(fields, zap.String("size", humanize.Bytes(uint64(st.Size()))))
	}
	ws.log.Info("synthesized", fields...)
	return final, nil
}

func (o *Orchestrator) multi(ctx context.Context, ws *Workspace, segs textproc.Segments, opts Options) (Artifact, error) {
	parts := make([]Artifact, 0, segs.Len())
	for seg := range segs.All() {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		// кусок из одних пробелов (хвост "\n" после нарезки) озвучивать нечего
		if strings.TrimSpace(seg.Text) == "" {
			ws.log.Debug("blank segment skipped", zap.Int("segment", seg.Index))
			continue
		}
		a, err := o.synth.SynthesizeSegment(ctx, ws, seg, opts)
		if err != nil {
			return Artifact{}, err
		}
		parts = append(parts, a)
	}
	switch len(parts) {
	case 0:
		return Artifact{}, fmt.Errorf("%w: only whitespace to synthesize", ErrInvalidInput)
	case 1:
		return parts[0], nil
	}

	paths := make([]string, len(parts))
	for i, p := range parts {
		paths[i] = p.Path
	}

	out := ws.Path("concat", parts[0].Format.Ext)
	if err := o.tc.Concat(ctx, paths, out); err != nil {
		ws.Discard(out)
		return Artifact{}, fmt.Errorf("concat %d segments: %w", len(parts), err)
	}
	for _, p := range paths {
		ws.Discard(p)
	}

	ws.log.Debug("segments joined", zap.Int("segments", len(parts)), zap.String("path", out))
	return Artifact{Path: out, Format: parts[0].Format}, nil
}

// moveFile перемещает src в dst с перезаписью; между разными ФС копирует.
func moveFile(src, dst string) error {
	if err := removeFile(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return multierr.Append(err, removeFile(dst))
	}
	if err := out.Close(); err != nil {
		return multierr.Append(err, removeFile(dst))
	}
	return removeFile(src)
}
