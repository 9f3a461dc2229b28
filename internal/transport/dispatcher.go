package transport

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// queueDepth is the number of updates buffered per worker
const queueDepth = 64

// Dispatcher hands updates to a fixed pool of workers. All updates of one
// user go to the same worker, so a user's messages are handled one at a
// time in arrival order while different users proceed in parallel.
type Dispatcher struct {
	queues []chan Inbound
	group  errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workers that call handle with ctx
func NewDispatcher(ctx context.Context, workers int, handle func(context.Context, Inbound)) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{queues: make([]chan Inbound, workers)}
	for i := range d.queues {
		q := make(chan Inbound, queueDepth)
		d.queues[i] = q
		d.group.Go(func() error {
			for in := range q {
				handle(ctx, in)
			}
			return nil
		})
	}
	return d
}

// Handle queues in behind the user's earlier updates. It blocks while the
// worker's queue is full and gives up when ctx ends or the dispatcher is closed.
func (d *Dispatcher) Handle(ctx context.Context, in Inbound) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queues[d.shard(in.UserID)] <- in:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) shard(userID int64) int {
	return int(uint64(userID) % uint64(len(d.queues)))
}

// Close stops accepting updates and waits for queued ones to finish
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
	}
	d.mu.Unlock()
	return d.group.Wait()
}
