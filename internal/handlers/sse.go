package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/robwestplumbing/sitecms/internal/metrics"
	"github.com/valyala/fasthttp"
)

const sseHeartbeat = 30 * time.Second

// sseStream describes one server-sent event stream. Each value received on
// changes triggers a fresh snapshot; alive is checked on every heartbeat and
// ends the stream when it returns false.
type sseStream struct {
	event    string
	changes  <-chan struct{}
	cancel   func()
	snapshot func() any
	alive    func() bool
}

func startSSE(ctx context.Context, c *fiber.Ctx, s sseStream) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		metrics.WatchSubscriptions.Inc()
		defer metrics.WatchSubscriptions.Dec()
		defer s.cancel()

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		var eventID uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				if s.alive != nil && !s.alive() {
					return
				}
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-s.changes:
				eventID++
				if err := writeSSEEvent(w, eventID, s.event, s.snapshot()); err != nil {
					slog.Debug("sse client disconnected", "event", s.event, "error", err)
					return
				}
			}
		}
	}))
	return nil
}

func writeSSEEvent(w *bufio.Writer, id uint64, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", event, id, payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return w.Flush()
}
