package transcoder

import (
	"fmt"
	"strings"
)

// Format описывает целевое представление аудио для ffmpeg.
type Format struct {
	Codec      string // энкодер ffmpeg (-c:a)
	Container  string // муксер ffmpeg (-f)
	Ext        string
	SampleRate int // 0: как в источнике
	Channels   int // 0: как в источнике
}

var (
	WAV  = Format{Codec: "pcm_s16le", Container: "wav", Ext: "wav"}
	OGG  = Format{Codec: "libvorbis", Container: "ogg", Ext: "ogg"}
	Opus = Format{Codec: "libopus", Container: "ogg", Ext: "ogg"}
	MP3  = Format{Codec: "libmp3lame", Container: "mp3", Ext: "mp3"}
	PCM  = Format{Codec: "pcm_s16le", Container: "s16le", Ext: "pcm"}
)

// ParseFormat maps a user-facing name (ogg, opus, mp3, wav, pcm) to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ogg", "vorbis":
		return OGG, nil
	case "opus", "voice":
		return Opus, nil
	case "mp3":
		return MP3, nil
	case "wav":
		return WAV, nil
	case "pcm", "s16le":
		return PCM, nil
	}
	return Format{}, fmt.Errorf("%w: unknown audio format %q", ErrInvalidInput, name)
}

func (f Format) WithRate(sampleRate, channels int) Format {
	f.SampleRate = sampleRate
	f.Channels = channels
	return f
}

func (f Format) IsZero() bool {
	return f == Format{}
}

func (f Format) ContentType() string {
	switch f.Container {
	case "ogg":
		return "audio/ogg"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	}
	return "application/octet-stream"
}

func (f Format) String() string {
	s := f.Codec + "/" + f.Container
	if f.SampleRate > 0 {
		s += fmt.Sprintf("@%dHz", f.SampleRate)
	}
	if f.Channels > 0 {
		s += fmt.Sprintf("x%d", f.Channels)
	}
	return s
}
