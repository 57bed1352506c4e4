package ime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSource is a deterministic, lock-free Source for tests.
type fakeSource struct {
	open      atomic.Bool
	ok        atomic.Bool
	candidate atomic.Bool
}

func (f *fakeSource) InputSourceOpen(ctx context.Context) (bool, bool) {
	return f.open.Load(), f.ok.Load()
}
func (f *fakeSource) CandidateWindowVisible() bool        { return f.candidate.Load() }
func (f *fakeSource) AccessibilityFocusIsCandidate() bool { return false }

func newTestContext() (*Context, *fakeSource, chan struct{}) {
	src := &fakeSource{}
	src.ok.Store(true)
	wake := make(chan struct{}, 1)
	return New(src, wake), src, wake
}

func TestContext_EmitsOnlyOnChange(t *testing.T) {
	c, src, _ := newTestContext()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	// First observation always emits, even though the value is false.
	var first Event
	select {
	case first = <-c.Events():
	case <-time.After(time.Second):
		t.Fatal("expected first emission")
	}
	require.False(t, first.On)

	// No change -> no further emission within a couple of poll intervals.
	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected emission with no change: %+v", ev)
	case <-time.After(250 * time.Millisecond):
	}

	src.open.Store(true)

	select {
	case ev := <-c.Events():
		require.True(t, ev.On)
	case <-time.After(time.Second):
		t.Fatal("expected emission on change")
	}
}

func TestContext_ScancodeToggleBothEdges(t *testing.T) {
	c, _, _ := newTestContext()
	td := c.ToggleDetector()

	require.False(t, c.resolveOpen())
	td.OnToggleEdge()
	require.True(t, c.resolveOpen())
	td.OnToggleEdge()
	require.False(t, c.resolveOpen())
}

func TestContext_PolledLayerTakesPriorityOverScancode(t *testing.T) {
	c, src, _ := newTestContext()
	c.toggleDetect.open.Store(true) // scancode layer says open

	src.open.Store(false)
	src.ok.Store(true)

	c.settleAndPoll(context.Background())
	require.False(t, c.resolveOpen(), "polled layer (available) must win over scancode layer")
}

func TestContext_CompositionFallbackWhenPolledUnavailable(t *testing.T) {
	c, src, _ := newTestContext()
	src.ok.Store(false) // polled layer unavailable

	require.False(t, c.resolveOpen())
	c.NotifyCompositionStart()
	require.True(t, c.resolveOpen())
}

func TestContext_StaleCompositionFlagRecovered(t *testing.T) {
	c, src, _ := newTestContext()
	c.NotifyCompositionStart()
	src.candidate.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.candidateLoop(ctx)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()
	wg.Wait()

	require.False(t, c.compositionFlag.Load(), "stale composition flag must be reset when no candidate window confirms it")
}

func TestContext_ImeActiveTracksCandidateWindow(t *testing.T) {
	c, src, _ := newTestContext()
	src.candidate.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	defer func() {
		cancel()
		c.Stop()
	}()

	require.Eventually(t, func() bool {
		return c.ImeActiveSnapshot()
	}, time.Second, 10*time.Millisecond)
}
