package speech

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Workspace: набор промежуточных файлов одного запроса.
// Все имена содержат id запроса, поэтому параллельные запросы не пересекаются.
// Cleanup удаляет всё, что не передано наружу через Keep.
type Workspace struct {
	dir       string
	requestID string
	log       *zap.Logger

	mu      sync.Mutex
	seq     int
	pending []string
}

func NewWorkspace(dir string, log *zap.Logger) (*Workspace, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	id := uuid.NewString()
	return &Workspace{
		dir:       dir,
		requestID: id,
		log:       log.With(zap.String("request_id", id)),
	}, nil
}

func (w *Workspace) RequestID() string { return w.requestID }

// Path выделяет новое имя файла вида <request>_<seq>_<stage>.<ext> и ставит его на учёт.
// Сам файл не создаётся.
func (w *Workspace) Path(stage, ext string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := fmt.Sprintf("%s_%d_%s.%s", w.requestID, w.seq, stage, ext)
	w.seq++

	p := filepath.Join(w.dir, name)
	w.pending = append(w.pending, p)
	return p
}

// Keep снимает файл с учёта: теперь за него отвечает вызывающий.
func (w *Workspace) Keep(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = slices.DeleteFunc(w.pending, func(p string) bool { return p == path })
}

// Track ставит на учёт файл, созданный не через Path (например, загрузку пользователя).
func (w *Workspace) Track(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, path)
}

// Discard удаляет файл сразу и снимает его с учёта.
func (w *Workspace) Discard(path string) {
	w.Keep(path)
	if err := removeFile(path); err != nil {
		w.log.Warn("discard artifact", zap.String("path", path), zap.Error(err))
	}
}

// Cleanup удаляет все файлы на учёте. Уже отсутствующий файл ошибкой не считается.
// Ошибки логируются; возвращаются только для диагностики.
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	var errs error
	for _, p := range pending {
		if err := removeFile(p); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		w.log.Warn("cleanup incomplete", zap.Error(errs))
		return fmt.Errorf("%w: %w", ErrCleanupFailed, errs)
	}
	return nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
