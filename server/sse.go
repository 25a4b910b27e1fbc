package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"sonicfeed/feedsync"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// sse streams render notifications so open pages can reload their feed.
func (h *handlers) sse(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	hub := h.config.Hub
	key, renders := hub.Subscribe(feedsync.RenderChannel)
	_, version := h.config.View.Snapshot()
	interval := h.config.PingInterval

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		aliveChan := time.NewTicker(interval)
		defer aliveChan.Stop()
		defer func() {
			log.Infof("Cleaning up SSE stream for client: %s", key)
			hub.Unsubscribe(feedsync.RenderChannel, key)
		}()

		// Send initial event with client key and the version the page shows
		fmt.Fprintf(w, "event: init\ndata: {\"key\":%q,\"version\":%d}\n\n", key, version)
		if err := w.Flush(); err != nil {
			log.Errorf("Failed to send init event: %v", err)
			return
		}

		for {
			select {
			case <-aliveChan.C:
				if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
					log.Warnf("Failed to send ping to client %s: %v", key, err)
					return
				}
				if err := w.Flush(); err != nil {
					log.Warnf("Failed to flush ping for client %s: %v", key, err)
					return
				}

			case msg, ok := <-renders:
				if !ok {
					log.Warnf("Render channel closed for client %s", key)
					return
				}
				data, err := json.Marshal(msg)
				if err != nil {
					log.Errorf("Error marshalling render event for client %s: %v", key, err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: render\ndata: %s\n\n", data); err != nil {
					log.Warnf("Failed to send render event to client %s: %v", key, err)
					return
				}
				if err := w.Flush(); err != nil {
					log.Warnf("Failed to flush render event for client %s: %v", key, err)
					return
				}
			}
		}
	}))

	return nil
}
