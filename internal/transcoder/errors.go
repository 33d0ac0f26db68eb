package transcoder

import "errors"

var (
	// ErrEngineUnavailable: бинарник ffmpeg не найден (фатально при старте).
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrInvalidInput: пустой аргумент или несуществующий входной файл.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTranscodeFailed: ffmpeg завершился с ненулевым кодом или не смог декодировать вход.
	ErrTranscodeFailed = errors.New("transcode failed")
)
