package transcoder

import (
	"strconv"
	"strings"
)

// шаблоны аргументов ffmpeg для каждого режима

func transcodeArgs(in, out string, f Format) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", in, "-vn"}
	args = append(args, encodeArgs(f)...)
	return append(args, out)
}

func decodeArgs(in string, sampleRate, channels int) []string {
	return []string{
		"-hide_banner", "-loglevel", "quiet",
		"-i", in,
		"-vn",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-f", "s16le",
		"pipe:1",
	}
}

func concatArgs(list, out string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		out,
	}
}

func pipeArgs(f Format) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0", "-vn"}
	args = append(args, encodeArgs(f)...)
	return append(args, "pipe:1")
}

func encodeArgs(f Format) []string {
	var args []string
	if f.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(f.SampleRate))
	}
	if f.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(f.Channels))
	}
	if f.Codec != "" {
		args = append(args, "-c:a", f.Codec)
	}
	if f.Container != "" {
		args = append(args, "-f", f.Container)
	}
	return args
}

// concatList собирает список для concat-демуксера: file '<path>' по строке,
// одинарные кавычки экранируются как '\''.
func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}
