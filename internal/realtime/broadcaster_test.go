package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster(4, zap.NewNop())

	first := b.Subscribe()
	second := b.Subscribe()
	require.Equal(t, 2, b.Count())

	b.Broadcast("incoming", map[string]string{"phone": "+15551234567"})

	want := "event: incoming\ndata: {\"phone\":\"+15551234567\"}\n\n"
	assert.Equal(t, want, string(<-first.Frames()))
	assert.Equal(t, want, string(<-second.Frames()))
}

func TestBroadcastRemovesStalledSubscriber(t *testing.T) {
	b := NewBroadcaster(1, zap.NewNop())

	healthy := b.Subscribe()
	stalled := b.Subscribe()

	// Fill the stalled subscriber's buffer; the next frame cannot be
	// accepted and must evict it without blocking the others.
	b.Broadcast("incoming", 1)
	<-healthy.Frames()
	b.Broadcast("incoming", 2)

	assert.Equal(t, 1, b.Count())

	// The evicted subscriber's channel is drained then closed.
	<-stalled.Frames()
	_, open := <-stalled.Frames()
	assert.False(t, open)

	// The healthy subscriber still received the second frame.
	frame, open := <-healthy.Frames()
	require.True(t, open)
	assert.Contains(t, string(frame), "data: 2")
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := NewBroadcaster(4, zap.NewNop())

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)

	assert.Zero(t, b.Count())
	_, open := <-sub.Frames()
	assert.False(t, open)
}

func TestShutdownClosesAllStreams(t *testing.T) {
	b := NewBroadcaster(4, zap.NewNop())

	sub := b.Subscribe()
	b.Shutdown()

	_, open := <-sub.Frames()
	assert.False(t, open)
	assert.Zero(t, b.Count())

	// Late subscribers get an already-closed stream instead of a panic.
	late := b.Subscribe()
	_, open = <-late.Frames()
	assert.False(t, open)

	b.Shutdown()
}

func TestBroadcastUnencodableDataIsDropped(t *testing.T) {
	b := NewBroadcaster(4, zap.NewNop())

	sub := b.Subscribe()
	b.Broadcast("incoming", make(chan int))

	select {
	case frame := <-sub.Frames():
		t.Fatalf("expected no frame, got %q", frame)
	default:
	}
}
