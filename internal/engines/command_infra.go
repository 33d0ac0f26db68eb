package engines

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_bot/internal/speech"
)

// CommandTTS запускает внешнюю программу синтеза на каждый кусок текста.
// В аргументах подставляются {voice}, {rate}, {out} и {text}; если {text}
// нигде нет, текст идёт в stdin. Программа обязана записать WAV в {out}.
type CommandTTS struct {
	bin  string
	args []string
	log  *zap.Logger
}

func NewCommandTTS(bin string, args []string, log *zap.Logger) (*CommandTTS, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if bin == "" {
		return nil, fmt.Errorf("%w: TTS_COMMAND not set", speech.ErrEngineUnavailable)
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", speech.ErrEngineUnavailable, bin, err)
	}
	return &CommandTTS{bin: path, args: args, log: log.Named("command_tts")}, nil
}

func (c *CommandTTS) Render(ctx context.Context, text, voice string, sampleRate int, outPath string) error {
	args, viaStdin := expandArgs(c.args, strings.NewReplacer(
		"{voice}", voice,
		"{rate}", strconv.Itoa(sampleRate),
		"{out}", outPath,
		"{text}", text,
	))

	cmd := exec.CommandContext(ctx, c.bin, args...)
	if viaStdin {
		cmd.Stdin = strings.NewReader(text)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", c.bin, err, strings.TrimSpace(stderr.String()))
	}

	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("%s produced no file: %w", c.bin, err)
	}
	c.log.Debug("rendered", zap.String("voice", voice), zap.Int("rate", sampleRate), zap.String("out", outPath))
	return nil
}

// expandArgs подставляет значения; второй результат говорит, нужен ли stdin для текста.
func expandArgs(args []string, r *strings.Replacer) ([]string, bool) {
	out := make([]string, len(args))
	viaStdin := true
	for i, a := range args {
		if strings.Contains(a, "{text}") {
			viaStdin = false
		}
		out[i] = r.Replace(a)
	}
	return out, viaStdin
}
