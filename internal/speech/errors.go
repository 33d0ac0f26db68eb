package speech

import (
	"errors"

	"github.com/Vovarama1992/voice_bot/internal/transcoder"
)

var (
	ErrEngineUnavailable = transcoder.ErrEngineUnavailable
	ErrInvalidInput      = transcoder.ErrInvalidInput
	ErrTranscodeFailed   = transcoder.ErrTranscodeFailed

	// ErrSynthesisFailed: движок синтеза упал на куске текста.
	ErrSynthesisFailed = errors.New("synthesis failed")
	// ErrCleanupFailed: не удалось удалить временный файл. Только логируется.
	ErrCleanupFailed = errors.New("cleanup failed")
)
