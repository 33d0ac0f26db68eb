package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

var (
	sileroVoices = []string{"aidar", "baya", "kseniya", "xenia", "eugene", "random"}
	openAIVoices = []string{"alloy", "ash", "ballad", "coral", "echo", "fable", "onyx", "nova", "shimmer", "verse"}
)

// engineVoices: голос и список голосов по умолчанию для каждого TTS_ENGINE.
// У ElevenLabs голос задаётся voice_id, список не ограничен.
var engineVoices = map[string]struct {
	voice  string
	voices []string
}{
	"command":    {"kseniya", sileroVoices},
	"openai":     {"alloy", openAIVoices},
	"elevenlabs": {"21m00Tcm4TlvDq8ikWAM", nil},
}

type Config struct {
	TelegramToken string
	AdminChatID   int64

	HTTPAddr      string
	HTTPRateLimit int // запросов в минуту на IP

	FFmpegPath  string
	FFprobePath string
	TempDir     string

	TTSEngine       string
	TTSVoice        string
	TTSVoices       []string
	TTSSampleRate   int
	TTSMaxSegment   int
	TTSCommand      string
	TTSCommandArgs  []string
	TTSOutputFormat transcoder.Format

	STTEngine     string
	STTSampleRate int
	STTChunkSize  int
	STTLanguage   string
	VoskURL       string

	OpenAIKey     string
	ElevenLabsKey string
	DeepgramKey   string

	LogDev bool
}

// Load читает окружение. .env подгружает вызывающий (godotenv) до Load.
func Load() (Config, error) {
	var errs error
	num := func(key string, def int) int {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %q is not a number", key, v))
			return def
		}
		return n
	}

	cfg := Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		AdminChatID:   int64(num("ADMIN_CHAT_ID", 0)),

		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		HTTPRateLimit: num("HTTP_RATE_LIMIT", 30),

		FFmpegPath:  env("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: env("FFPROBE_PATH", "ffprobe"),
		TempDir:     env("TEMP_DIR", filepath.Join(os.TempDir(), "voice_bot")),

		TTSEngine:      env("TTS_ENGINE", "command"),
		TTSSampleRate:  num("TTS_SAMPLE_RATE", 24000),
		TTSMaxSegment:  num("TTS_MAX_SEGMENT", 800),
		TTSCommand:     os.Getenv("TTS_COMMAND"),
		TTSCommandArgs: strings.Fields(os.Getenv("TTS_COMMAND_ARGS")),

		STTEngine:     env("STT_ENGINE", "vosk"),
		STTSampleRate: num("STT_SAMPLE_RATE", 16000),
		STTChunkSize:  num("STT_CHUNK_SIZE", 4000),
		STTLanguage:   env("STT_LANGUAGE", "ru"),
		VoskURL:       env("VOSK_URL", "ws://localhost:2700"),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		ElevenLabsKey: os.Getenv("ELEVENLABS_API_KEY"),
		DeepgramKey:   os.Getenv("DEEPGRAM_API_KEY"),

		LogDev: os.Getenv("LOG_DEV") == "1",
	}

	// голоса по умолчанию зависят от движка
	voices := engineVoices[cfg.TTSEngine]
	cfg.TTSVoice = env("TTS_VOICE", voices.voice)
	if v := list(os.Getenv("TTS_VOICES")); len(v) > 0 {
		cfg.TTSVoices = v
	} else {
		cfg.TTSVoices = slices.Clone(voices.voices)
	}

	format, err := transcoder.ParseFormat(env("TTS_OUTPUT_FORMAT", "ogg"))
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("TTS_OUTPUT_FORMAT: %w", err))
	}
	cfg.TTSOutputFormat = format

	if errs != nil {
		return cfg, errs
	}
	return cfg, cfg.Validate()
}

// Validate проверяет значения вне допустимых доменов.
// Ключи движков проверяют сами движки при создании.
func (c Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.TTSMaxSegment < 1 || c.TTSMaxSegment > 1000 {
		add("TTS_MAX_SEGMENT must be within 1..1000, got %d", c.TTSMaxSegment)
	}
	if !slices.Contains([]int{8000, 24000, 48000}, c.TTSSampleRate) {
		add("TTS_SAMPLE_RATE must be 8000, 24000 or 48000, got %d", c.TTSSampleRate)
	}
	if !slices.Contains([]string{"command", "openai", "elevenlabs"}, c.TTSEngine) {
		add("TTS_ENGINE: unknown engine %q", c.TTSEngine)
	}
	if c.TTSVoice == "" {
		add("TTS_VOICE must not be empty")
	}
	if len(c.TTSVoices) > 0 && !slices.Contains(c.TTSVoices, c.TTSVoice) {
		add("TTS_VOICE %q is not in TTS_VOICES", c.TTSVoice)
	}
	if c.TTSEngine == "openai" {
		for _, v := range append([]string{c.TTSVoice}, c.TTSVoices...) {
			if !slices.Contains(openAIVoices, v) {
				add("TTS_VOICE/TTS_VOICES: %q is not an openai voice (%s)", v, strings.Join(openAIVoices, ", "))
				break
			}
		}
	}
	if c.TTSEngine == "elevenlabs" {
		for _, v := range append([]string{c.TTSVoice}, c.TTSVoices...) {
			if slices.Contains(sileroVoices, v) {
				add("TTS_VOICE/TTS_VOICES: %q is a local engine voice, elevenlabs expects a voice_id", v)
				break
			}
		}
	}
	if !slices.Contains([]string{"vosk", "whisper", "deepgram"}, c.STTEngine) {
		add("STT_ENGINE: unknown engine %q", c.STTEngine)
	}
	if c.STTSampleRate <= 0 {
		add("STT_SAMPLE_RATE must be positive, got %d", c.STTSampleRate)
	}
	if c.STTChunkSize <= 0 || c.STTChunkSize%2 != 0 {
		add("STT_CHUNK_SIZE must be a positive even number, got %d", c.STTChunkSize)
	}
	if c.HTTPRateLimit < 0 {
		add("HTTP_RATE_LIMIT must not be negative, got %d", c.HTTPRateLimit)
	}
	return errs
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
