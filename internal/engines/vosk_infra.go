package engines

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_bot/internal/speech"
)

const voskIOTimeout = 30 * time.Second

// voskMessage: ответ vosk-server на каждый кадр. Наличие text означает
// законченную фразу, иначе приходит partial.
type voskMessage struct {
	Text    *string       `json:"text"`
	Partial string        `json:"partial"`
	Result  []speech.Word `json:"result"`
}

// VoskSTT: клиент vosk-server по websocket. Соединение открывается на первом
// Feed и закрывается в Finalize, так что одно соединение = одно высказывание.
type VoskSTT struct {
	url        string
	sampleRate int
	dialer     *websocket.Dialer
	log        *zap.Logger

	conn  *websocket.Conn
	texts []string
	words []speech.Word
}

func NewVoskSTT(url string, sampleRate int, log *zap.Logger) (*VoskSTT, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if url == "" {
		return nil, fmt.Errorf("%w: VOSK_URL not set", speech.ErrEngineUnavailable)
	}
	return &VoskSTT{
		url:        url,
		sampleRate: sampleRate,
		dialer:     websocket.DefaultDialer,
		log:        log.Named("vosk"),
	}, nil
}

func (v *VoskSTT) Feed(ctx context.Context, pcm []byte) (bool, error) {
	if v.conn == nil {
		if err := v.open(ctx); err != nil {
			return false, err
		}
	}

	v.deadline(ctx)
	if err := v.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return false, fmt.Errorf("vosk write: %w", err)
	}
	msg, err := v.read()
	if err != nil {
		return false, err
	}
	return v.collect(msg), nil
}

func (v *VoskSTT) Finalize(ctx context.Context) ([]byte, error) {
	defer v.Reset()

	if v.conn != nil {
		v.deadline(ctx)
		if err := v.conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
			return nil, fmt.Errorf("vosk eof: %w", err)
		}
		msg, err := v.read()
		if err != nil {
			return nil, err
		}
		v.collect(msg)
	}

	return json.Marshal(speech.Result{
		Text:  strings.Join(v.texts, " "),
		Words: v.words,
	})
}

// Reset рвёт соединение вместе с незаконченным высказыванием.
func (v *VoskSTT) Reset() {
	if v.conn != nil {
		_ = v.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err := v.conn.Close(); err != nil {
			v.log.Debug("close", zap.Error(err))
		}
	}
	v.conn = nil
	v.texts = nil
	v.words = nil
}

func (v *VoskSTT) Close() error {
	v.Reset()
	return nil
}

func (v *VoskSTT) open(ctx context.Context) error {
	conn, _, err := v.dialer.DialContext(ctx, v.url, nil)
	if err != nil {
		return fmt.Errorf("%w: vosk dial %s: %v", speech.ErrEngineUnavailable, v.url, err)
	}
	v.conn = conn

	cfg, _ := json.Marshal(map[string]any{
		"config": map[string]any{"sample_rate": v.sampleRate, "words": 1},
	})
	if err := conn.WriteMessage(websocket.TextMessage, cfg); err != nil {
		v.Reset()
		return fmt.Errorf("vosk config: %w", err)
	}
	v.log.Debug("connected", zap.String("url", v.url), zap.Int("sample_rate", v.sampleRate))
	return nil
}

func (v *VoskSTT) read() (voskMessage, error) {
	var msg voskMessage
	_, data, err := v.conn.ReadMessage()
	if err != nil {
		return msg, fmt.Errorf("vosk read: %w", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("vosk decode: %w", err)
	}
	return msg, nil
}

// collect сохраняет законченную фразу; true, если она была.
func (v *VoskSTT) collect(msg voskMessage) bool {
	if msg.Text == nil {
		return false
	}
	if t := strings.TrimSpace(*msg.Text); t != "" {
		v.texts = append(v.texts, t)
	}
	v.words = append(v.words, msg.Result...)
	return true
}

func (v *VoskSTT) deadline(ctx context.Context) {
	dl, ok := ctx.Deadline()
	if !ok {
		dl = time.Now().Add(voskIOTimeout)
	}
	_ = v.conn.SetWriteDeadline(dl)
	_ = v.conn.SetReadDeadline(dl)
}
