package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_AdvanceRunsDueTimersInOrder(t *testing.T) {
	clk := NewManual(epoch)
	var order []int
	clk.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	clk.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	clk.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	clk.Advance(2 * time.Second)
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, epoch.Add(2*time.Second), clk.Now())

	clk.Advance(time.Second)
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Zero(t, clk.Pending())
}

func TestManual_StoppedTimerDoesNotFire(t *testing.T) {
	clk := NewManual(epoch)
	fired := false
	tm := clk.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	clk.Advance(time.Minute)
	assert.False(t, fired)
}

func TestGroup_After(t *testing.T) {
	clk := NewManual(epoch)
	g := NewGroup(clk)
	var n atomic.Int32

	g.After(time.Second, func() { n.Add(1) })
	require.Equal(t, 1, g.Len())

	clk.Advance(999 * time.Millisecond)
	assert.Zero(t, n.Load())
	clk.Advance(time.Millisecond)
	assert.EqualValues(t, 1, n.Load())
	assert.Zero(t, g.Len(), "fired one-shot timers are released")
}

func TestGroup_EveryRepeatsUntilCancelled(t *testing.T) {
	clk := NewManual(epoch)
	g := NewGroup(clk)
	var n atomic.Int32

	h := g.Every(10*time.Second, func() { n.Add(1) })
	clk.Advance(35 * time.Second)
	assert.EqualValues(t, 3, n.Load())

	h.Cancel()
	clk.Advance(time.Minute)
	assert.EqualValues(t, 3, n.Load())
	assert.False(t, h.Active())
}

func TestGroup_StopCancelsEverything(t *testing.T) {
	clk := NewManual(epoch)
	g := NewGroup(clk)
	var n atomic.Int32

	g.After(time.Second, func() { n.Add(1) })
	g.Every(time.Second, func() { n.Add(1) })
	d := g.Debounce(time.Second, func() { n.Add(1) })
	d.Trigger()

	g.Stop()
	clk.Advance(time.Minute)

	assert.Zero(t, n.Load())
	assert.Zero(t, g.Len())
	assert.Zero(t, clk.Pending())
}

func TestGroup_NoTimersAfterStop(t *testing.T) {
	clk := NewManual(epoch)
	g := NewGroup(clk)
	g.Stop()

	fired := false
	h := g.After(time.Second, func() { fired = true })
	clk.Advance(time.Minute)

	assert.False(t, fired)
	assert.False(t, h.Active())
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	clk := NewManual(epoch)
	g := NewGroup(clk)
	var n atomic.Int32
	d := g.Debounce(time.Second, func() { n.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		clk.Advance(500 * time.Millisecond)
	}
	assert.Zero(t, n.Load(), "still inside the quiet period")
	assert.True(t, d.Pending())

	clk.Advance(500 * time.Millisecond)
	assert.EqualValues(t, 1, n.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	clk := NewManual(epoch)
	g := NewGroup(clk)
	fired := false
	d := g.Debounce(time.Second, func() { fired = true })

	d.Trigger()
	d.Cancel()
	clk.Advance(time.Minute)
	assert.False(t, fired)
}

func TestGroup_SystemClock(t *testing.T) {
	g := NewGroup(nil)
	defer g.Stop()

	done := make(chan struct{})
	g.After(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}
