// ABOUTME: Translation of transport responses onto the HTTP wire.
// ABOUTME: Handles session header echo, JSON bodies, empty replies, and streams.

package httpserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/2389/git-mcp/internal/transport"
)

// write puts a transport response on the wire. Streams are copied through
// with a flush per chunk so clients see data as it arrives; JSON bodies are
// encoded in one shot; a response with neither is status-only.
func (s *Server) write(w http.ResponseWriter, resp *transport.Response) {
	h := w.Header()
	for key, vals := range resp.Header {
		for _, v := range vals {
			h.Add(key, v)
		}
	}
	if resp.SessionID != "" {
		h.Set(transport.HeaderSessionID, resp.SessionID)
	}

	switch {
	case resp.Stream != nil:
		defer resp.Stream.Close()
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "text/event-stream")
			h.Set("Cache-Control", "no-cache")
		}
		w.WriteHeader(resp.Status)
		flushCopy(w, resp.Stream)

	case resp.Body != nil:
		h.Set("Content-Type", "application/json")
		w.WriteHeader(resp.Status)
		if err := json.NewEncoder(w).Encode(resp.Body); err != nil {
			s.logger.Warn("writing response body", "error", err)
		}

	default:
		w.WriteHeader(resp.Status)
	}
}

// flushCopy copies the stream to the client, flushing after every chunk.
// Write errors mean the client went away; the copy just stops.
func flushCopy(w http.ResponseWriter, r io.Reader) {
	flusher, canFlush := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if rerr != nil {
			return
		}
	}
}

// writeJSON writes a plain JSON body for endpoints outside the transport
// response path, like health and status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusWriter captures the response status for request logging. It forwards
// Flush so streamed responses keep their per-chunk delivery.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
