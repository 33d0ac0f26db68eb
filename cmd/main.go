package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_bot/internal/config"
	"github.com/Vovarama1992/voice_bot/internal/engines"
	"github.com/Vovarama1992/voice_bot/internal/speech"
	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

var rootCmd = &cobra.Command{
	Use:   "voice_bot",
	Short: "Text-to-speech and speech-to-text bot",
	Long: `Voice bot: turns text into voice messages and voice messages into text.

Engines, formats and limits are configured through environment variables
(a .env file in the working directory is loaded first).`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(botCmd, serveCmd, sayCmd, hearCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app: собранный конвейер и всё, что надо закрыть при выходе.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	speech *speech.Service
	tts    *speech.Handle[speech.SynthesisEngine]
	stt    *speech.Handle[speech.RecognitionEngine]
}

func (a *app) Close() error {
	err := multierr.Combine(a.tts.Close(), a.stt.Close())
	_ = a.log.Sync()
	return err
}

func setup() (*app, error) {

	// =========================================================================
	// ENV / LOGGER
	// =========================================================================

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var log *zap.Logger
	if cfg.LogDev {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// TRANSCODER
	// =========================================================================

	ff, err := transcoder.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, log)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// ENGINES (TTS / STT)
	// =========================================================================

	synthEngine, rates, err := newSynthesisEngine(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("tts engine %s: %w", cfg.TTSEngine, err)
	}
	recEngine, err := newRecognitionEngine(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("stt engine %s: %w", cfg.STTEngine, err)
	}

	ttsHandle := speech.NewHandle(synthEngine)
	sttHandle := speech.NewHandle(recEngine)

	// =========================================================================
	// PIPELINE
	// =========================================================================

	synth, err := speech.NewSynthesizer(ttsHandle, ff, speech.SynthesizerConfig{
		Voice:       cfg.TTSVoice,
		SampleRate:  cfg.TTSSampleRate,
		Voices:      cfg.TTSVoices,
		SampleRates: rates,
		Native:      transcoder.WAV,
	}, log)
	if err != nil {
		return nil, err
	}

	orchestrator := speech.NewOrchestrator(synth, ff, speech.OrchestratorConfig{
		MaxSegment: cfg.TTSMaxSegment,
		TempDir:    cfg.TempDir,
		Format:     cfg.TTSOutputFormat,
	}, log)

	recognizer, err := speech.NewRecognizer(sttHandle, ff, speech.RecognizerConfig{
		SampleRate: cfg.STTSampleRate,
		ChunkSize:  cfg.STTChunkSize,
	}, log)
	if err != nil {
		return nil, err
	}

	log.Info("pipeline ready",
		zap.String("tts", cfg.TTSEngine),
		zap.String("stt", cfg.STTEngine),
		zap.Stringer("format", cfg.TTSOutputFormat),
		zap.String("temp_dir", cfg.TempDir),
	)

	return &app{
		cfg:    cfg,
		log:    log,
		speech: speech.NewService(orchestrator, recognizer, ff),
		tts:    ttsHandle,
		stt:    sttHandle,
	}, nil
}

// newSynthesisEngine возвращает движок и частоты, которые он умеет.
func newSynthesisEngine(cfg config.Config, log *zap.Logger) (speech.SynthesisEngine, []int, error) {
	switch cfg.TTSEngine {
	case "openai":
		client, err := engines.NewOpenAIClient(cfg.OpenAIKey, "")
		if err != nil {
			return nil, nil, err
		}
		return engines.NewOpenAITTS(client), []int{24000}, nil
	case "elevenlabs":
		e, err := engines.NewElevenLabsTTS(cfg.ElevenLabsKey, "")
		return e, speech.DefaultSampleRates, err
	default:
		e, err := engines.NewCommandTTS(cfg.TTSCommand, cfg.TTSCommandArgs, log)
		return e, speech.DefaultSampleRates, err
	}
}

func newRecognitionEngine(cfg config.Config, log *zap.Logger) (speech.RecognitionEngine, error) {
	switch cfg.STTEngine {
	case "whisper":
		client, err := engines.NewOpenAIClient(cfg.OpenAIKey, "")
		if err != nil {
			return nil, err
		}
		return engines.NewWhisperSTT(client, cfg.STTLanguage, cfg.STTSampleRate), nil
	case "deepgram":
		return engines.NewDeepgramSTT(cfg.DeepgramKey, "", cfg.STTLanguage, cfg.STTSampleRate)
	default:
		return engines.NewVoskSTT(cfg.VoskURL, cfg.STTSampleRate, log)
	}
}
