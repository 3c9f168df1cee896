package handlers

import (
	"bufio"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/supportbase/keel/internal/realtime"
)

// EventsHandler serves the realtime operator stream.
type EventsHandler struct {
	broadcaster *realtime.Broadcaster
	keepAlive   time.Duration
}

// NewEventsHandler constructs handler.
func NewEventsHandler(broadcaster *realtime.Broadcaster, keepAlive time.Duration) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster, keepAlive: keepAlive}
}

// Stream GET /events/stream. Long-lived text/event-stream connection:
// a connected notice up front, incoming events as they happen, and
// comment-only keep-alive frames to defeat idle proxy timeouts.
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("Access-Control-Allow-Origin", "*")
	c.Set("X-Accel-Buffering", "no")

	sub := h.broadcaster.Subscribe()
	connected, err := realtime.EncodeFrame("connected", fiber.Map{
		"message": "Connected to inbox events",
		"clients": h.broadcaster.Count(),
	})
	if err != nil {
		h.broadcaster.Unsubscribe(sub)
		return err
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// Leaving this function tears the subscription down and stops
		// the heartbeat; a failed flush means the client went away.
		defer h.broadcaster.Unsubscribe(sub)

		if _, err := w.Write(connected); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case frame, ok := <-sub.Frames():
				if !ok {
					return
				}
				if _, err := w.Write(frame); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.Write(realtime.KeepAliveFrame); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}
