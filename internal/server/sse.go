package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// sseWriter serializes events onto a text/event-stream response, one
// `data: <json>` line per event. Writes are mutex-guarded because workflow
// levels emit from concurrent node goroutines.
type sseWriter struct {
	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(writer http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := writer.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	header := writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{writer: writer, flusher: flusher}, nil
}

// send writes one event and flushes it immediately. A client that already
// disconnected makes the write fail silently; the scheduler notices through
// the request context instead.
func (sse *sseWriter) send(event any) {
	encoded, err := json.Marshal(event)
	if err != nil {
		return
	}

	sse.mu.Lock()
	defer sse.mu.Unlock()
	fmt.Fprintf(sse.writer, "data: %s\n\n", encoded)
	sse.flusher.Flush()
}
