// Package responsewriter records the status and body size of a response for
// access logs, request metrics and spans.
package responsewriter

import "net/http"

// ResponseWriter is an http.ResponseWriter that remembers the final status.
// Informational 1xx headers are passed through without being recorded.
type ResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
	sent   bool
}

// Wrap returns w as a *ResponseWriter, reusing it when w already is one so
// stacked middleware share a single recorder.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
	}
	return rw
}

func (w *ResponseWriter) WriteHeader(code int) {
	if w.sent {
		return
	}
	w.ResponseWriter.WriteHeader(code)
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		return
	}
	w.status, w.sent = code, true
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	w.sent = true
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// Flush forwards to the underlying writer when it supports flushing.
func (w *ResponseWriter) Flush() {
	w.sent = true
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// StatusCode is the final status; 200 until the handler says otherwise.
func (w *ResponseWriter) StatusCode() int { return w.status }

func (w *ResponseWriter) BytesWritten() int { return w.size }

// Unwrap lets http.ResponseController reach the original writer.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
