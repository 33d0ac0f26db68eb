package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Vovarama1992/voice_bot/internal/speech"
	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

const (
	maxUploadSize  = 32 << 20
	maxTextRunes   = 20000
	serviceName    = "voice_bot"
	defaultConvert = "ogg"
)

type SpeechService interface {
	Synthesize(ctx context.Context, text string, opts speech.Options) (speech.Artifact, error)
	TranscribeResult(ctx context.Context, path string) (speech.Result, error)
	Convert(ctx context.Context, data []byte, target transcoder.Format) ([]byte, error)
}

type SpeechHandler struct {
	speech  SpeechService
	tempDir string
	log     *logger.ZapLogger
}

func NewSpeechHandler(svc SpeechService, tempDir string, log *logger.ZapLogger) *SpeechHandler {
	return &SpeechHandler{
		speech:  svc,
		tempDir: tempDir,
		log:     log,
	}
}

// POST /v1/tts {"text": "...", "voice": "...", "sample_rate": 24000, "format": "ogg"}
func (h *SpeechHandler) TextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       string `json:"text"`
		Voice      string `json:"voice"`
		SampleRate int    `json:"sample_rate"`
		Format     string `json:"format"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len([]rune(req.Text)) > maxTextRunes {
		http.Error(w, fmt.Sprintf("text longer than %d characters", maxTextRunes), http.StatusRequestEntityTooLarge)
		return
	}

	opts := speech.Options{Voice: req.Voice, SampleRate: req.SampleRate}
	if req.Format != "" {
		f, err := transcoder.ParseFormat(req.Format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		opts.Format = f
	}

	art, err := h.speech.Synthesize(r.Context(), req.Text, opts)
	if err != nil {
		h.fail(w, "synthesis failed", err)
		return
	}
	defer func() {
		if err := os.Remove(art.Path); err != nil {
			h.log.Log(logger.LogEntry{Level: "warn", Message: "remove artifact", Service: serviceName, Error: err})
		}
	}()

	f, err := os.Open(art.Path)
	if err != nil {
		h.fail(w, "open artifact", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", art.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="speech.%s"`, art.Format.Ext))
	if _, err := io.Copy(w, f); err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "stream artifact", Service: serviceName, Error: err})
	}
}

// POST /v1/stt multipart: file
func (h *SpeechHandler) SpeechToText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "invalid multipart", Service: serviceName, Error: err})
		http.Error(w, "invalid multipart: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "missing file", Service: serviceName, Error: err})
		http.Error(w, "missing file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	local, err := h.saveUpload(file, filepath.Ext(header.Filename))
	if err != nil {
		h.fail(w, "save upload", err)
		return
	}
	defer os.Remove(local)

	res, err := h.speech.TranscribeResult(r.Context(), local)
	if err != nil {
		h.fail(w, "transcription failed", err)
		return
	}
	if res.Words == nil {
		res.Words = []speech.Word{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"text": res.Text, "words": res.Words})
}

// POST /v1/convert?format=ogg, в теле исходное аудио
func (h *SpeechHandler) Convert(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = defaultConvert
	}
	target, err := transcoder.ParseFormat(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	out, err := h.speech.Convert(r.Context(), data, target)
	if err != nil {
		h.fail(w, "conversion failed", err)
		return
	}

	w.Header().Set("Content-Type", target.ContentType())
	_, _ = w.Write(out)
}

func (h *SpeechHandler) saveUpload(src io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(h.tempDir, 0o755); err != nil {
		return "", err
	}
	ext = strings.ToLower(ext)
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	local := filepath.Join(h.tempDir, uuid.NewString()+"_upload"+ext)

	out, err := os.Create(local)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(local)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(local)
		return "", err
	}
	return local, nil
}

func (h *SpeechHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	level := "error"
	if status < http.StatusInternalServerError {
		level = "warn"
	}
	h.log.Log(logger.LogEntry{Level: level, Message: msg, Service: serviceName, Error: err})
	http.Error(w, msg+": "+err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, speech.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, speech.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, speech.ErrTranscodeFailed):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
