package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func started(t *testing.T, workers int) *Dispatcher {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	d := NewDispatcher(workers, zerolog.Nop())
	d.Start(ctx)
	return d
}

func TestDispatcher_SameKeyRunsInOrder(t *testing.T) {
	d := started(t, 4)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	release := make(chan struct{})

	// The first job holds the worker so the rest queue up behind it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.Do(context.Background(), "user-1", func(context.Context) error {
			<-release
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	for i := 1; i <= 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Do(context.Background(), "user-1", func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		time.Sleep(10 * time.Millisecond)
	}

	close(release)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestDispatcher_ReturnsJobError(t *testing.T) {
	d := started(t, 2)
	boom := errors.New("boom")

	err := d.Do(context.Background(), "k", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, d.Do(context.Background(), "k", func(context.Context) error { return nil }))
}

func TestDispatcher_CallerContextCancelled(t *testing.T) {
	d := started(t, 1)
	release := make(chan struct{})
	defer close(release)

	go func() {
		_ = d.Do(context.Background(), "k", func(context.Context) error {
			<-release
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ran := false
	err := d.Do(ctx, "k", func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
}

func TestDispatcher_Stopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(1, zerolog.Nop())
	d.Start(ctx)
	cancel()
	time.Sleep(10 * time.Millisecond)

	block := make(chan struct{})
	err := d.Do(context.Background(), "k", func(context.Context) error {
		<-block
		return nil
	})
	close(block)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(0, zerolog.Nop())
	assert.Len(t, d.workers, defaultWorkers)
	assert.Equal(t, d.shardIndex("user-42"), d.shardIndex("user-42"))
}
