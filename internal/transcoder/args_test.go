package transcoder

import (
	"errors"
	"strings"
	"testing"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		got  []string
		want string
	}{
		{
			name: "transcode to ogg keeps source rate",
			got:  transcodeArgs("in.wav", "out.ogg", OGG),
			want: "-hide_banner -loglevel error -y -i in.wav -vn -c:a libvorbis -f ogg out.ogg",
		},
		{
			name: "transcode with rate and channels",
			got:  transcodeArgs("in.ogg", "out.wav", WAV.WithRate(16000, 1)),
			want: "-hide_banner -loglevel error -y -i in.ogg -vn -ar 16000 -ac 1 -c:a pcm_s16le -f wav out.wav",
		},
		{
			name: "decode to pipe",
			got:  decodeArgs("voice.ogg", 16000, 1),
			want: "-hide_banner -loglevel quiet -i voice.ogg -vn -ar 16000 -ac 1 -f s16le pipe:1",
		},
		{
			name: "concat copies streams",
			got:  concatArgs("list.txt", "out.wav"),
			want: "-hide_banner -loglevel error -y -f concat -safe 0 -i list.txt -c copy out.wav",
		},
		{
			name: "pipe to pipe",
			got:  pipeArgs(Opus),
			want: "-hide_banner -loglevel error -i pipe:0 -vn -c:a libopus -f ogg pipe:1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := strings.Join(tc.got, " "); got != tc.want {
				t.Errorf("args = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestConcatListEscapesQuotes(t *testing.T) {
	got := concatList([]string{"/tmp/a.wav", "/tmp/it's.wav"})
	want := "file '/tmp/a.wav'\nfile '/tmp/it'\\''s.wav'\n"
	if got != want {
		t.Errorf("list = %q; want %q", got, want)
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"ogg": OGG, "OPUS": Opus, " mp3 ": MP3, "wav": WAV} {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseFormat("flac"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseFormat(flac) err = %v; want ErrInvalidInput", err)
	}
}
