package motion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStub_TriggerDeliversEvent(t *testing.T) {
	s := NewStub()
	require.NoError(t, s.Start(context.Background()))

	now := time.Now()
	require.True(t, s.Trigger(now))

	select {
	case ev := <-s.Events():
		require.Equal(t, now, ev.At)
	default:
		t.Fatal("expected event on channel")
	}
}

func TestStub_TriggerBeforeStartIsNoop(t *testing.T) {
	s := NewStub()
	require.False(t, s.Trigger(time.Now()))
}

func TestStub_TriggerAfterStopIsNoop(t *testing.T) {
	s := NewStub()
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	require.False(t, s.Trigger(time.Now()))
}

func TestStub_TriggerDropsWhenChannelFull(t *testing.T) {
	s := NewStub()
	require.NoError(t, s.Start(context.Background()))

	for i := 0; i < eventCapacity; i++ {
		require.True(t, s.Trigger(time.Now()))
	}
	require.False(t, s.Trigger(time.Now()), "channel is full, trigger should report drop")
}
