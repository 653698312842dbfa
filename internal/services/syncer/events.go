package syncer

import (
	"context"
	"sync/atomic"

	"github.com/astoko/ParcelBuddy/internal/integrations/carrier"
	"github.com/astoko/ParcelBuddy/internal/models"
)

// Events are the engine's callbacks to its caller (the presentation layer).
// Nil callbacks are skipped. All callbacks are invoked from one dispatch
// goroutine, so the caller can touch single-threaded state (a UI main loop
// queue, say) without its own locking.
type Events struct {
	OnLog                func(message string)
	OnFetchSuccess       func(record models.ParcelRecord, result carrier.FetchResult, isNewParcel, isInteractive bool)
	OnFetchError         func(err error, isNewParcel, isInteractive bool)
	OnBatchComplete      func()
	OnCredentialsInvalid func()
}

// dispatcher serializes event callbacks. Before Run starts it (or after it
// stops), emit degrades to an inline call so interactive use in tests does
// not deadlock.
type dispatcher struct {
	ch      chan func()
	done    chan struct{}
	running atomic.Bool
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		ch:   make(chan func(), 128),
		done: make(chan struct{}),
	}
}

func (d *dispatcher) run(ctx context.Context) {
	d.running.Store(true)
	defer func() {
		d.running.Store(false)
		close(d.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-d.ch:
			fn()
		}
	}
}

func (d *dispatcher) emit(fn func()) {
	if fn == nil {
		return
	}
	if !d.running.Load() {
		fn()
		return
	}
	select {
	case d.ch <- fn:
	case <-d.done:
		// Диспетчер остановлен, воркеров не блокируем.
		fn()
	}
}
