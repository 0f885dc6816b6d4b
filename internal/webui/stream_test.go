// ABOUTME: Tests for the patch broadcaster
// ABOUTME: Covers fan-out, per-session isolation, slow subscribers and cleanup

package webui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Patch) Patch {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "channel closed")
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for patch")
		return Patch{}
	}
}

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()
	ctx := t.Context()

	first, _ := b.Subscribe(ctx, "s-1")
	second, _ := b.Subscribe(ctx, "s-1")
	other, _ := b.Subscribe(ctx, "s-2")

	b.Publish("s-1", Patch{Op: OpScroll})

	assert.Equal(t, OpScroll, receive(t, first).Op)
	assert.Equal(t, OpScroll, receive(t, second).Op)
	select {
	case p := <-other:
		t.Errorf("other session received %+v", p)
	default:
	}
}

func TestBroadcaster_DropsForSlowSubscriber(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, _ := b.Subscribe(t.Context(), "s-1")
	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish("s-1", Patch{Op: OpScroll})
	}
	assert.Len(t, ch, subscriberBufferSize)
}

func TestBroadcaster_UnsubscribeOnContextCancel(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, "s-1")
	require.Equal(t, 1, b.Subscribers("s-1"))

	cancel()
	require.Eventually(t, func() bool { return b.Subscribers("s-1") == 0 }, time.Second, 10*time.Millisecond)

	_, open := <-ch
	assert.False(t, open)
}

func TestBroadcaster_DropClosesSession(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, subID := b.Subscribe(t.Context(), "s-1")
	b.Drop("s-1")

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, b.Subscribers("s-1"))

	// Unsubscribing after a drop is a no-op.
	b.Unsubscribe("s-1", subID)
	b.Publish("s-1", Patch{Op: OpScroll})
}
