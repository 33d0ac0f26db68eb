package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

// fakeTranscoder работает с байтами файлов напрямую вместо ffmpeg.
type fakeTranscoder struct {
	failTranscode bool
	failConcat    bool
	failDecode    bool

	mu      sync.Mutex
	concats [][]string
}

func (f *fakeTranscoder) Transcode(_ context.Context, in, out string, target transcoder.Format) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if f.failTranscode {
		return fmt.Errorf("%w: exit 1", ErrTranscodeFailed)
	}
	return os.WriteFile(out, append([]byte(target.Ext+":"), data...), 0o644)
}

func (f *fakeTranscoder) DecodeStream(_ context.Context, in string, _, _ int) (io.ReadCloser, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if f.failDecode {
		return io.NopCloser(&failingReader{data: data[:len(data)/2]}), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeTranscoder) Concat(_ context.Context, inputs []string, out string) error {
	f.mu.Lock()
	f.concats = append(f.concats, append([]string(nil), inputs...))
	f.mu.Unlock()

	if f.failConcat {
		// оставляем мусор, как упавший ffmpeg
		_ = os.WriteFile(out, []byte("partial"), 0o644)
		return fmt.Errorf("%w: exit 1", ErrTranscodeFailed)
	}
	var joined []byte
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		joined = append(joined, data...)
	}
	return os.WriteFile(out, joined, 0o644)
}

func (f *fakeTranscoder) TranscodeBytes(_ context.Context, in []byte, target transcoder.Format) ([]byte, error) {
	return append([]byte(target.Ext+":"), in...), nil
}

func (f *fakeTranscoder) Duration(_ context.Context, path string) (time.Duration, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return time.Duration(st.Size()) * time.Millisecond, nil
}

type failingReader struct {
	data []byte
	off  int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, fmt.Errorf("%w: decode: exit status 1", ErrTranscodeFailed)
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}

// fakeSynth пишет текст куска в файл и проверяет, что его не зовут параллельно.
type fakeSynth struct {
	failOn int // номер вызова (с 1), на котором падать; 0 значит никогда

	mu       sync.Mutex
	calls    []string
	voices   []string
	inflight atomic.Int32
	overlap  atomic.Bool
}

func (f *fakeSynth) Render(_ context.Context, text, voice string, _ int, outPath string) error {
	if f.inflight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inflight.Add(-1)
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.voices = append(f.voices, voice)
	n := len(f.calls)
	f.mu.Unlock()

	if f.failOn != 0 && n == f.failOn {
		return errors.New("engine exploded")
	}
	return os.WriteFile(outPath, []byte(text), 0o644)
}

// fakeRecognizer копит PCM и в Finalize отдаёт его длину как «текст».
type fakeRecognizer struct {
	silent bool

	chunks [][]byte
	resets int
}

func (f *fakeRecognizer) Feed(_ context.Context, pcm []byte) (bool, error) {
	f.chunks = append(f.chunks, append([]byte(nil), pcm...))
	return false, nil
}

func (f *fakeRecognizer) Finalize(_ context.Context) ([]byte, error) {
	defer func() { f.chunks = nil }()
	if f.silent {
		return []byte(`{"text" : ""}`), nil
	}
	total := 0
	for _, c := range f.chunks {
		total += len(c)
	}
	return json.Marshal(Result{
		Text:  fmt.Sprintf(" bytes %d ", total),
		Words: []Word{{Word: "bytes", Start: 0, End: 0.5, Conf: 1}},
	})
}

func (f *fakeRecognizer) Reset() {
	f.resets++
	f.chunks = nil
}
