package speech

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Handle владеет единственным на процесс экземпляром движка.
// Вызовы через Do идут строго по одному, остальные ждут в очереди
// (или выходят по своему контексту).
type Handle[E any] struct {
	engine E
	sem    chan struct{}

	closeOnce sync.Once
	closed    bool
	closeErr  error
}

func NewHandle[E any](engine E) *Handle[E] {
	return &Handle[E]{
		engine: engine,
		sem:    make(chan struct{}, 1),
	}
}

// Do выполняет fn с эксклюзивным доступом к движку.
func (h *Handle[E]) Do(ctx context.Context, fn func(E) error) error {
	select {
	case h.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-h.sem }()

	if h.closed {
		return fmt.Errorf("%w: engine handle closed", ErrEngineUnavailable)
	}
	return fn(h.engine)
}

// Close дожидается текущего вызова и закрывает движок, если он io.Closer. Повторные вызовы
// возвращают результат первого.
func (h *Handle[E]) Close() error {
	h.closeOnce.Do(func() {
		h.sem <- struct{}{}
		defer func() { <-h.sem }()

		h.closed = true
		if c, ok := any(h.engine).(io.Closer); ok {
			h.closeErr = c.Close()
		}
	})
	return h.closeErr
}
