package storage

import (
	"context"
	"sync"
)

// watcher queues change sets for one subscriber. The pump goroutine is the
// only sender on out and the only one that closes it.
type watcher struct {
	out chan ChangeSet

	mu      sync.Mutex
	queue   []ChangeSet
	wake    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newWatcher() *watcher {
	return &watcher{
		out:     make(chan ChangeSet),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

func (w *watcher) push(cs ChangeSet) {
	w.mu.Lock()
	w.queue = append(w.queue, cs)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) stop() {
	w.once.Do(func() { close(w.stopped) })
}

func (w *watcher) pump(ctx context.Context) {
	defer close(w.out)
	for {
		w.mu.Lock()
		var next ChangeSet
		pending := len(w.queue) > 0
		if pending {
			next = w.queue[0]
			w.queue = w.queue[1:]
		}
		w.mu.Unlock()

		if !pending {
			select {
			case <-w.wake:
				continue
			case <-ctx.Done():
				return
			case <-w.stopped:
				return
			}
		}

		select {
		case w.out <- next:
		case <-ctx.Done():
			return
		case <-w.stopped:
			return
		}
	}
}
