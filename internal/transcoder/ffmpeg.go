package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FFmpeg запускает внешний ffmpeg/ffprobe. Вся конвертация форматов идёт через него.
type FFmpeg struct {
	bin   string
	probe string
	log   *zap.Logger
}

// NewFFmpeg проверяет наличие бинарника сразу: без ffmpeg пайплайн не стартует.
// ffprobe опционален, без него не работает только Duration.
func NewFFmpeg(bin, probe string, log *zap.Logger) (*FFmpeg, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if bin == "" {
		bin = "ffmpeg"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg %q: %v", ErrEngineUnavailable, bin, err)
	}

	f := &FFmpeg{bin: path, log: log.Named("ffmpeg")}
	if probe != "" {
		if p, err := exec.LookPath(probe); err == nil {
			f.probe = p
		} else {
			f.log.Warn("ffprobe not found, durations unavailable", zap.String("probe", probe), zap.Error(err))
		}
	}
	return f, nil
}

// Transcode перекодирует in в out (формат target). Существующий out удаляется заранее,
// недописанный out удаляется при ошибке.
func (f *FFmpeg) Transcode(ctx context.Context, in, out string, target Format) error {
	if err := checkInput(in); err != nil {
		return err
	}
	if out == "" {
		return fmt.Errorf("%w: empty output path", ErrInvalidInput)
	}
	if err := removeStale(out); err != nil {
		return err
	}
	return f.run(ctx, transcodeArgs(in, out, target), out)
}

// DecodeStream отдаёт сырой s16le PCM из stdout ffmpeg без материализации в памяти.
// stderr подавлен; ненулевой код выхода всплывает как ErrTranscodeFailed на последнем Read.
func (f *FFmpeg) DecodeStream(ctx context.Context, in string, sampleRate, channels int) (io.ReadCloser, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d, channels %d", ErrInvalidInput, sampleRate, channels)
	}

	cmd := exec.CommandContext(ctx, f.bin, decodeArgs(in, sampleRate, channels)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrTranscodeFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, f.startErr(err)
	}

	f.log.Debug("decode stream started", zap.String("in", in), zap.Int("rate", sampleRate))
	return &stream{ctx: ctx, cmd: cmd, out: stdout}, nil
}

// Concat склеивает однородные файлы без перекодирования (-c copy) в заданном порядке.
func (f *FFmpeg) Concat(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: nothing to concat", ErrInvalidInput)
	}
	if out == "" {
		return fmt.Errorf("%w: empty output path", ErrInvalidInput)
	}

	abs := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if err := checkInput(in); err != nil {
			return err
		}
		p, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		abs = append(abs, p)
	}

	if err := removeStale(out); err != nil {
		return err
	}

	// список кладём рядом с результатом, имя уникально для запроса
	list, err := os.CreateTemp(filepath.Dir(out), "concat-*.txt")
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer os.Remove(list.Name())

	if _, err := list.WriteString(concatList(abs)); err != nil {
		list.Close()
		return fmt.Errorf("write concat list: %w", err)
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("close concat list: %w", err)
	}

	return f.run(ctx, concatArgs(list.Name(), out), out)
}

// TranscodeBytes: то же, что Transcode, но через stdin/stdout, без файлов на диске.
func (f *FFmpeg) TranscodeBytes(ctx context.Context, in []byte, target Format) ([]byte, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrInvalidInput)
	}
	if target.Container == "" {
		return nil, fmt.Errorf("%w: container required for pipe output", ErrInvalidInput)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.bin, pipeArgs(target)...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, f.exitErr(ctx, err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrTranscodeFailed)
	}
	return stdout.Bytes(), nil
}

// Duration: длительность файла по ffprobe.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	if f.probe == "" {
		return 0, fmt.Errorf("%w: ffprobe not configured", ErrEngineUnavailable)
	}
	if err := checkInput(path); err != nil {
		return 0, err
	}

	out, err := exec.CommandContext(ctx, f.probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, f.exitErr(ctx, err, "")
	}

	sec, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: probe output %q", ErrTranscodeFailed, strings.TrimSpace(string(out)))
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (f *FFmpeg) run(ctx context.Context, args []string, out string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.bin, args...)
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Run(); err != nil {
		if rmErr := os.Remove(out); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			f.log.Warn("remove partial output", zap.String("path", out), zap.Error(rmErr))
		}
		return f.exitErr(ctx, err, stderr.String())
	}

	f.log.Debug("ffmpeg done", zap.String("out", out), zap.Duration("took", time.Since(started)))
	return nil
}

func (f *FFmpeg) startErr(err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
}

func (f *FFmpeg) exitErr(ctx context.Context, err error, stderr string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return f.startErr(err)
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%w: exit %d: %s", ErrTranscodeFailed, exitErr.ExitCode(), lastLine(msg))
	}
	return fmt.Errorf("%w: exit %d", ErrTranscodeFailed, exitErr.ExitCode())
}

// stream: stdout ffmpeg как io.ReadCloser.
type stream struct {
	ctx    context.Context
	cmd    *exec.Cmd
	out    io.ReadCloser
	err    error
	waited bool
}

func (s *stream) Read(p []byte) (int, error) {
	if s.waited {
		return 0, s.err
	}

	n, err := s.out.Read(p)
	if err == nil {
		return n, nil
	}

	// конец потока: дожидаемся процесса и смотрим код выхода
	s.waited = true
	s.err = io.EOF
	if werr := s.cmd.Wait(); werr != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			s.err = ctxErr
		} else {
			s.err = fmt.Errorf("%w: decode: %v", ErrTranscodeFailed, werr)
		}
	} else if err != io.EOF {
		s.err = fmt.Errorf("%w: read: %v", ErrTranscodeFailed, err)
	}

	if n > 0 {
		return n, nil
	}
	return 0, s.err
}

func (s *stream) Close() error {
	if s.waited {
		return nil
	}
	s.waited = true
	s.err = io.ErrClosedPipe
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}

func checkInput(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty input path", ErrInvalidInput)
	}
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s does not exist", ErrInvalidInput, path)
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if st.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidInput, path)
	}
	return nil
}

func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing %s: %w", path, err)
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
