package live

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Serve streams the session's events as Server-Sent Events until the client
// goes away or the session is closed. The first event carries the session id
// and the initial state.
func (s *Session) Serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	if err := writeEvent(w, Message{Event: EventSession, Data: map[string]any{
		"id":    s.ID.String(),
		"state": s.State(),
	}}); err != nil {
		s.log.Warn("failed to write live session event", "error", err)
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("live client context done", "err", ctx.Err())
			return
		case <-s.done:
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg := <-s.outbound:
			if err := writeEvent(w, msg); err != nil {
				s.log.Warn("failed to write live event", "event", msg.Event, "error", err)
				continue
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, msg Message) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data)
	return err
}
