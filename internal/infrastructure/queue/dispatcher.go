package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned by Do once the dispatcher's context is done.
var ErrStopped = errors.New("dispatcher stopped")

type task struct {
	ctx  context.Context
	key  string
	run  func(ctx context.Context) error
	done chan error
}

// Dispatcher routes jobs to a fixed set of workers using consistent hashing on
// a key, so jobs sharing a key run one at a time in arrival order.
type Dispatcher struct {
	workers []chan task
	log     zerolog.Logger

	startOnce sync.Once
	stopped   chan struct{}
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan task, numWorkers),
		log:     log,
		stopped: make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan task, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		for i, ch := range d.workers {
			go d.runWorker(ctx, i, ch)
		}
		go func() {
			<-ctx.Done()
			close(d.stopped)
		}()
	})
}

// Do runs job on the worker responsible for key and waits for its result.
// It returns ctx.Err() if ctx ends first; a job whose ctx ended while queued
// is skipped.
func (d *Dispatcher) Do(ctx context.Context, key string, job func(ctx context.Context) error) error {
	t := task{ctx: ctx, key: key, run: job, done: make(chan error, 1)}

	select {
	case d.workers[d.shardIndex(key)] <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrStopped
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrStopped
	}
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan task) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ch:
			if err := t.ctx.Err(); err != nil {
				t.done <- err
				continue
			}
			err := t.run(t.ctx)
			if err != nil {
				d.log.Debug().Err(err).
					Str("key", t.key).
					Int("worker_id", id).
					Msg("job failed")
			}
			t.done <- err
		}
	}
}
