package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"sentinel/pkg/models"
)

// Event is one named stream event with its JSON payload.
type Event struct {
	Name string
	Data interface{}
}

// Terminal reports whether the event ends its stream.
func (e Event) Terminal() bool { return models.TerminalEvent(e.Name) }

// SSEWriter frames events as server-sent events on an http.ResponseWriter.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewSSEWriter wraps a response writer and sets the SSE headers. The
// flusher is optional; buffered writers without flush support still get
// correct framing.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: flusher}
}

// Write frames one event as "event: <name>\ndata: <json>\n\n" and
// flushes it to the client.
func (s *SSEWriter) Write(ev Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Name, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
