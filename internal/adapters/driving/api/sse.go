package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// writeEventStream relays stream tokens as "data:" events, each holding one
// JSON encoded string, and ends with a "done" event carrying the answer.
// A failed write means the client went away; the caller closes the stream.
func writeEventStream(w http.ResponseWriter, stream driving.AnswerStream) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	flush()

	for stream.Next() {
		data, err := json.Marshal(stream.Token())
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			logger.Debug("api: client left mid-stream: %v", err)
			return
		}
		flush()
	}

	answer, ok := stream.Answer()
	if !ok {
		return
	}
	data, _ := json.Marshal(answer)
	if _, err := fmt.Fprintf(w, "event: done\ndata: %s\n\n", data); err != nil {
		return
	}
	flush()
}
