package speech

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_bot/internal/textproc"
	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

const (
	DefaultVoice      = "kseniya"
	DefaultSampleRate = 24000
)

// DefaultSampleRates: частоты, которые понимает движок синтеза по умолчанию.
var DefaultSampleRates = []int{8000, 24000, 48000}

type SynthesizerConfig struct {
	Voice       string
	SampleRate  int
	Voices      []string // пусто: любой голос
	SampleRates []int    // пусто: DefaultSampleRates
	Native      transcoder.Format
}

// Synthesizer превращает один кусок текста в аудио через движок и при необходимости
// перегоняет его в целевой формат.
type Synthesizer struct {
	engine *Handle[SynthesisEngine]
	tc     Transcoder
	cfg    SynthesizerConfig
	log    *zap.Logger
}

func NewSynthesizer(engine *Handle[SynthesisEngine], tc Transcoder, cfg SynthesizerConfig, log *zap.Logger) (*Synthesizer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if engine == nil || tc == nil {
		return nil, fmt.Errorf("%w: synthesizer needs an engine and a transcoder", ErrEngineUnavailable)
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if len(cfg.SampleRates) == 0 {
		cfg.SampleRates = DefaultSampleRates
	}
	if cfg.Native.IsZero() {
		cfg.Native = transcoder.WAV
	}

	s := &Synthesizer{engine: engine, tc: tc, cfg: cfg, log: log.Named("synth")}
	if _, _, err := s.resolve(Options{}); err != nil {
		return nil, fmt.Errorf("synthesizer defaults: %w", err)
	}
	return s, nil
}

// SynthesizeSegment рендерит один кусок в родной формат движка.
// Длину куска не проверяет: это забота того, кто резал текст.
func (s *Synthesizer) SynthesizeSegment(ctx context.Context, ws *Workspace, seg textproc.Segment, opts Options) (Artifact, error) {
	if seg.Text == "" {
		return Artifact{}, fmt.Errorf("%w: empty text for segment %d", ErrInvalidInput, seg.Index)
	}
	voice, rate, err := s.resolve(opts)
	if err != nil {
		return Artifact{}, err
	}

	out := ws.Path(fmt.Sprintf("seg%d", seg.Index), s.cfg.Native.Ext)
	err = s.engine.Do(ctx, func(e SynthesisEngine) error {
		return e.Render(ctx, seg.Text, voice, rate, out)
	})
	if err != nil {
		ws.Discard(out)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Artifact{}, ctxErr
		}
		return Artifact{}, fmt.Errorf("%w: segment %d: %w", ErrSynthesisFailed, seg.Index, err)
	}

	st, err := os.Stat(out)
	if err != nil || st.Size() == 0 {
		ws.Discard(out)
		return Artifact{}, fmt.Errorf("%w: segment %d: engine produced no audio", ErrSynthesisFailed, seg.Index)
	}

	ws.log.Debug("segment rendered",
		zap.Int("segment", seg.Index),
		zap.Int("chars", len([]rune(seg.Text))),
		zap.String("size", humanize.Bytes(uint64(st.Size()))),
	)
	return Artifact{Path: out, Format: s.cfg.Native.WithRate(rate, 1)}, nil
}

// ToTargetFormat перегоняет артефакт в target через транскодер и удаляет исходник.
// Если формат уже совпадает, возвращает артефакт как есть.
func (s *Synthesizer) ToTargetFormat(ctx context.Context, ws *Workspace, a Artifact, target transcoder.Format) (Artifact, error) {
	if sameFormat(a.Format, target) {
		return a, nil
	}

	out := ws.Path("conv", target.Ext)
	if err := s.tc.Transcode(ctx, a.Path, out, target); err != nil {
		ws.Discard(out)
		return Artifact{}, fmt.Errorf("convert to %s: %w", target, err)
	}
	ws.Discard(a.Path)

	if target.SampleRate == 0 {
		target.SampleRate = a.Format.SampleRate
	}
	if target.Channels == 0 {
		target.Channels = a.Format.Channels
	}
	return Artifact{Path: out, Format: target}, nil
}

func (s *Synthesizer) resolve(opts Options) (string, int, error) {
	voice, rate := s.cfg.Voice, s.cfg.SampleRate
	if opts.Voice != "" {
		voice = opts.Voice
	}
	if opts.SampleRate != 0 {
		rate = opts.SampleRate
	}

	if len(s.cfg.Voices) > 0 && !slices.Contains(s.cfg.Voices, voice) {
		return "", 0, fmt.Errorf("%w: unknown voice %q (available: %s)", ErrInvalidInput, voice, strings.Join(s.cfg.Voices, ", "))
	}
	if !slices.Contains(s.cfg.SampleRates, rate) {
		return "", 0, fmt.Errorf("%w: unsupported sample rate %d", ErrInvalidInput, rate)
	}
	return voice, rate, nil
}

// sameFormat: нулевые частота и каналы цели означают «любые».
func sameFormat(have, want transcoder.Format) bool {
	if have.Codec != want.Codec || have.Container != want.Container {
		return false
	}
	if want.SampleRate != 0 && want.SampleRate != have.SampleRate {
		return false
	}
	return want.Channels == 0 || want.Channels == have.Channels
}
