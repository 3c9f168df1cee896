package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Subscriber is one open streaming connection. Created on stream open,
// destroyed on stream close or the first frame its buffer cannot accept.
type Subscriber struct {
	frames chan []byte
}

// Frames returns the channel of encoded SSE frames for this subscriber.
// The channel is closed when the subscriber is removed from the bus.
func (s *Subscriber) Frames() <-chan []byte {
	return s.frames
}

// Broadcaster is an in-process publish/subscribe registry for streaming
// operator clients. Delivery is fire-and-forget and at-most-once per
// currently connected subscriber: no queue, no replay, no confirmation.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[*Subscriber]struct{}
	bufSize int
	closed  bool
	logger  *zap.Logger
}

// NewBroadcaster constructs an empty registry.
func NewBroadcaster(bufSize int, logger *zap.Logger) *Broadcaster {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Broadcaster{
		subs:    make(map[*Subscriber]struct{}),
		bufSize: bufSize,
		logger:  logger,
	}
}

// Subscribe registers a new streaming connection.
func (b *Broadcaster) Subscribe() *Subscriber {
	sub := &Subscriber{frames: make(chan []byte, b.bufSize)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.frames)
		return sub
	}
	b.subs[sub] = struct{}{}
	b.logger.Info("stream client connected", zap.Int("clients", len(b.subs)))
	return sub
}

// Unsubscribe removes a subscriber when its connection closes.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.frames)
	b.logger.Info("stream client disconnected", zap.Int("clients", len(b.subs)))
}

// Count returns the number of connected subscribers.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Broadcast serializes data once and writes an event frame to every
// current subscriber. A subscriber that cannot accept the frame is
// removed immediately; the rest still receive it. This keeps the
// registry self-healing against half-closed connections.
func (b *Broadcaster) Broadcast(event string, data any) {
	frame, err := EncodeFrame(event, data)
	if err != nil {
		b.logger.Error("broadcast encode failed", zap.String("event", event), zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Info("broadcast", zap.String("event", event), zap.Int("clients", len(b.subs)))

	for sub := range b.subs {
		select {
		case sub.frames <- frame:
		default:
			delete(b.subs, sub)
			close(sub.frames)
			b.logger.Warn("stream client stalled, removed", zap.Int("clients", len(b.subs)))
		}
	}
}

// Shutdown closes every stream and rejects further subscriptions.
func (b *Broadcaster) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.frames)
	}
}

// EncodeFrame renders a named SSE event frame.
func EncodeFrame(event string, data any) ([]byte, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, encoded)), nil
}

// KeepAliveFrame is the comment-only frame used to defeat idle-connection
// timeouts on intermediary proxies.
var KeepAliveFrame = []byte(": keepalive\n\n")
