package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Vovarama1992/go-utils/logger"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_bot/internal/speech"
	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

type fakeSpeech struct {
	dir string
	err error

	gotOpts   speech.Options
	gotUpload []byte
	artifact  string
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string, opts speech.Options) (speech.Artifact, error) {
	f.gotOpts = opts
	if f.err != nil {
		return speech.Artifact{}, f.err
	}
	format := opts.Format
	if format.IsZero() {
		format = transcoder.OGG
	}
	f.artifact = filepath.Join(f.dir, "out."+format.Ext)
	if err := os.WriteFile(f.artifact, []byte("audio:"+text), 0o644); err != nil {
		return speech.Artifact{}, err
	}
	return speech.Artifact{Path: f.artifact, Format: format}, nil
}

func (f *fakeSpeech) TranscribeResult(_ context.Context, path string) (speech.Result, error) {
	if f.err != nil {
		return speech.Result{}, f.err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return speech.Result{}, err
	}
	f.gotUpload = data
	return speech.Result{Text: "привет", Words: []speech.Word{{Word: "привет", End: 0.5, Conf: 1}}}, nil
}

func (f *fakeSpeech) Convert(_ context.Context, data []byte, target transcoder.Format) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte(target.Ext+":"), data...), nil
}

func newTestServer(t *testing.T, svc *fakeSpeech, rateLimit int) (*httptest.Server, string) {
	t.Helper()
	tmp := t.TempDir()
	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	srv := httptest.NewServer(NewRouter(NewSpeechHandler(svc, tmp, zl), rateLimit))
	t.Cleanup(srv.Close)
	return srv, tmp
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSpeech{}, 0)
	resp, err := http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "pong" {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
}

func TestTextToSpeech(t *testing.T) {
	svc := &fakeSpeech{dir: t.TempDir()}
	srv, _ := newTestServer(t, svc, 0)

	resp, err := http.Post(srv.URL+"/v1/tts", "application/json",
		strings.NewReader(`{"text":"Привет","voice":"baya","sample_rate":48000,"format":"mp3"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if string(body) != "audio:Привет" || resp.Header.Get("Content-Type") != "audio/mpeg" {
		t.Errorf("body %q type %q", body, resp.Header.Get("Content-Type"))
	}
	if svc.gotOpts.Voice != "baya" || svc.gotOpts.SampleRate != 48000 || svc.gotOpts.Format != transcoder.MP3 {
		t.Errorf("opts = %+v", svc.gotOpts)
	}
	if _, err := os.Stat(svc.artifact); !os.IsNotExist(err) {
		t.Error("artifact not removed after response")
	}
}

func TestTextToSpeechErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"bad format", `{"text":"x","format":"flac"}`, nil, http.StatusBadRequest},
		{"invalid input", `{"text":""}`, fmt.Errorf("%w: empty text", speech.ErrInvalidInput), http.StatusBadRequest},
		{"engine down", `{"text":"x"}`, fmt.Errorf("%w: vosk", speech.ErrEngineUnavailable), http.StatusServiceUnavailable},
		{"synthesis failed", `{"text":"x"}`, fmt.Errorf("%w: segment 0", speech.ErrSynthesisFailed), http.StatusInternalServerError},
		{"transcode failed", `{"text":"x"}`, fmt.Errorf("%w: exit 1", speech.ErrTranscodeFailed), http.StatusUnprocessableEntity},
		{"too long", `{"text":"` + strings.Repeat("a", maxTextRunes+1) + `"}`, nil, http.StatusRequestEntityTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeSpeech{dir: t.TempDir(), err: tc.err}, 0)
			resp, err := http.Post(srv.URL+"/v1/tts", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Errorf("status = %d; want %d", resp.StatusCode, tc.status)
			}
		})
	}
}

func TestSpeechToText(t *testing.T) {
	svc := &fakeSpeech{}
	srv, tmp := newTestServer(t, svc, 0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "voice.oga")
	_, _ = part.Write([]byte("OggS-data"))
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/v1/stt", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out struct {
		Text  string        `json:"text"`
		Words []speech.Word `json:"words"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || out.Text != "привет" || len(out.Words) != 1 {
		t.Errorf("status %d result %+v", resp.StatusCode, out)
	}
	if string(svc.gotUpload) != "OggS-data" {
		t.Errorf("upload = %q", svc.gotUpload)
	}
	if entries, _ := os.ReadDir(tmp); len(entries) != 0 {
		t.Errorf("upload not removed: %v", entries)
	}
}

func TestSpeechToTextMissingFile(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSpeech{}, 0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("lang", "ru")
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/v1/stt", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestConvert(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSpeech{}, 0)

	resp, err := http.Post(srv.URL+"/v1/convert?format=wav", "application/octet-stream", strings.NewReader("raw"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "wav:raw" || resp.Header.Get("Content-Type") != "audio/wav" {
		t.Errorf("body %q type %q", body, resp.Header.Get("Content-Type"))
	}

	resp, err = http.Post(srv.URL+"/v1/convert?format=flac", "application/octet-stream", strings.NewReader("raw"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format status = %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSpeech{}, 2)

	var codes []int
	for i := 0; i < 3; i++ {
		resp, err := http.Post(srv.URL+"/v1/convert", "application/octet-stream", strings.NewReader("raw"))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}
