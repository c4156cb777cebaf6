package store

import (
	"context"
	"sync"

	"ohbang/internal/events"
	"ohbang/internal/models"
)

type query func(ctx context.Context) ([]models.MenuItemRecord, error)

// Watch is a live query. C receives the current result right away and a new
// result after every change to the menu table. Delivery is latest-wins: an
// unread result is replaced by a newer one. C is closed when the watch ends.
type Watch struct {
	C <-chan []models.MenuItemRecord

	out    chan []models.MenuItemRecord
	dirty  chan struct{}
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func (s *MenuStore) watch(ctx context.Context, name string, q query) *Watch {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		out:    make(chan []models.MenuItemRecord, 1),
		dirty:  make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	w.C = w.out

	subs := []events.Subscription{
		s.bus.Subscribe(events.EventMenuCleared, w.notify),
		s.bus.Subscribe(events.EventMenuInserted, w.notify),
	}
	w.dirty <- struct{}{}

	logger := s.logger.With().Str("watch", name).Logger()

	go func() {
		defer close(w.done)
		defer close(w.out)
		defer func() {
			for _, sub := range subs {
				s.bus.Unsubscribe(sub)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.dirty:
			}

			records, err := q(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn().Err(err).Msg("watch query failed")
				w.setErr(err)
				continue
			}
			w.setErr(nil)
			w.deliver(records)
		}
	}()

	return w
}

func (w *Watch) notify(_ *events.Event) error {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
	return nil
}

// deliver is only called from the watch goroutine, the single sender on out.
func (w *Watch) deliver(records []models.MenuItemRecord) {
	select {
	case <-w.out:
	default:
	}
	w.out <- records
}

func (w *Watch) setErr(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

// Err returns the error of the most recent query, if it failed.
func (w *Watch) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close stops the watch and waits for its goroutine to exit.
func (w *Watch) Close() {
	w.cancel()
	<-w.done
}

// Done is closed once the watch has stopped.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}
