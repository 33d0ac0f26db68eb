package transcoder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeFFmpeg понимает ровно те режимы, которые вызывает FFmpeg:
// concat склеивает файлы из списка, pipe:0 копирует stdin, s16le печатает вход в stdout,
// остальное копирует вход в последний аргумент.
const fakeFFmpeg = `#!/bin/sh
for a; do last="$a"; done
prev=""
in=""
for a; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
done
case " $* " in
  *" concat "*) sed -e "s/^file '//" -e "s/'$//" "$in" | while IFS= read -r f; do cat "$f"; done > "$last" ;;
  *" pipe:0 "*) cat ;;
  *" s16le "*) cat "$in" ;;
  *) cp "$in" "$last" ;;
esac
`

const failingFFmpeg = `#!/bin/sh
echo "Invalid data found when processing input" >&2
exit 1
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stand-ins need /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func newFake(t *testing.T, body string) *FFmpeg {
	t.Helper()
	f, err := NewFFmpeg(writeScript(t, body), "", nil)
	if err != nil {
		t.Fatalf("NewFFmpeg: %v", err)
	}
	return f
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestNewFFmpegMissingBinary(t *testing.T) {
	_, err := NewFFmpeg(filepath.Join(t.TempDir(), "no-such-ffmpeg"), "", nil)
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("err = %v; want ErrEngineUnavailable", err)
	}
}

func TestTranscodeOverwritesOutput(t *testing.T) {
	f := newFake(t, fakeFFmpeg)
	dir := t.TempDir()
	in := writeFile(t, dir, "in.wav", "fresh")
	out := writeFile(t, dir, "out.ogg", "stale data that is longer")

	if err := f.Transcode(context.Background(), in, out, OGG); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	got, _ := os.ReadFile(out)
	if string(got) != "fresh" {
		t.Errorf("out = %q; want %q", got, "fresh")
	}
}

func TestTranscodeMissingInput(t *testing.T) {
	f := newFake(t, fakeFFmpeg)
	dir := t.TempDir()
	err := f.Transcode(context.Background(), filepath.Join(dir, "nope.wav"), filepath.Join(dir, "out.ogg"), OGG)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v; want ErrInvalidInput", err)
	}
}

func TestTranscodeFailureRemovesOutput(t *testing.T) {
	f := newFake(t, failingFFmpeg)
	dir := t.TempDir()
	in := writeFile(t, dir, "in.wav", "x")
	out := filepath.Join(dir, "out.ogg")

	err := f.Transcode(context.Background(), in, out, OGG)
	if !errors.Is(err, ErrTranscodeFailed) {
		t.Fatalf("err = %v; want ErrTranscodeFailed", err)
	}
	if !strings.Contains(err.Error(), "Invalid data") {
		t.Errorf("err = %v; want stderr tail in message", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output left behind: %v", statErr)
	}
}

func TestConcatPreservesOrder(t *testing.T) {
	f := newFake(t, fakeFFmpeg)
	dir := t.TempDir()
	var inputs []string
	for i, part := range []string{"a1", "b2", "c3", "d4"} {
		inputs = append(inputs, writeFile(t, dir, "seg"+string(rune('0'+i))+".wav", part))
	}
	out := filepath.Join(dir, "joined.wav")

	if err := f.Concat(context.Background(), inputs, out); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	got, _ := os.ReadFile(out)
	if string(got) != "a1b2c3d4" {
		t.Errorf("joined = %q; want %q", got, "a1b2c3d4")
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "concat-") {
			t.Errorf("concat list %s left behind", e.Name())
		}
	}
}

func TestConcatRejectsEmpty(t *testing.T) {
	f := newFake(t, fakeFFmpeg)
	err := f.Concat(context.Background(), nil, filepath.Join(t.TempDir(), "out.wav"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v; want ErrInvalidInput", err)
	}
}

func TestDecodeStreamDeliversBytesInOrder(t *testing.T) {
	f := newFake(t, fakeFFmpeg)
	payload := bytes.Repeat([]byte("0123456789"), 1000)
	in := writeFile(t, t.TempDir(), "in.ogg", string(payload))

	s, err := f.DecodeStream(context.Background(), in, 16000, 1)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	defer s.Close()

	var got []byte
	buf := make([]byte, 4000)
	for {
		n, err := io.ReadFull(s, buf)
		got = append(got, buf[:n]...)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decoded %d bytes; want %d identical bytes", len(got), len(payload))
	}
}

func TestDecodeStreamCorruptInput(t *testing.T) {
	f := newFake(t, failingFFmpeg)
	in := writeFile(t, t.TempDir(), "broken.ogg", "garbage")

	s, err := f.DecodeStream(context.Background(), in, 16000, 1)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	defer s.Close()

	_, err = io.ReadAll(s)
	if !errors.Is(err, ErrTranscodeFailed) {
		t.Fatalf("err = %v; want ErrTranscodeFailed", err)
	}
}

func TestTranscodeBytes(t *testing.T) {
	f := newFake(t, fakeFFmpeg)
	out, err := f.TranscodeBytes(context.Background(), []byte("RIFFdata"), OGG)
	if err != nil {
		t.Fatalf("TranscodeBytes: %v", err)
	}
	if string(out) != "RIFFdata" {
		t.Errorf("out = %q", out)
	}

	if _, err := f.TranscodeBytes(context.Background(), nil, OGG); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty input err = %v; want ErrInvalidInput", err)
	}
}

func TestDurationWithoutProbe(t *testing.T) {
	f := newFake(t, fakeFFmpeg)
	in := writeFile(t, t.TempDir(), "a.wav", "x")
	if _, err := f.Duration(context.Background(), in); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("err = %v; want ErrEngineUnavailable", err)
	}
}
