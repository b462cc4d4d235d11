package observe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// responseRecorder sits between an inner handler and the client.
//
// The status written by the handler is classified as soon as it is known.
// Success responses stream straight to the client. Failure responses are
// held back until the handler returns so that their body can be decoded;
// commit then writes the same status, headers and bytes.
type responseRecorder struct {
	w         http.ResponseWriter
	isSuccess func(int) bool

	// outer holds the headers set before the handler ran.
	outer http.Header

	status      int
	wroteHeader bool
	holding     bool
	committed   bool
	hijacked    bool
	written     int64
	buf         bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter, isSuccess func(int) bool) *responseRecorder {
	return &responseRecorder{
		w:         w,
		isSuccess: isSuccess,
		outer:     w.Header().Clone(),
		status:    http.StatusOK,
	}
}

func (rw *responseRecorder) Header() http.Header {
	return rw.w.Header()
}

func (rw *responseRecorder) WriteHeader(code int) {
	if rw.wroteHeader || rw.hijacked {
		return
	}
	// Same check as net/http, made here so the panic stays inside the
	// handler call rather than surfacing on commit.
	if code < 100 || code > 999 {
		panic(fmt.Sprintf("invalid WriteHeader code %v", code))
	}
	// Interim responses other than 101 go out immediately and do not
	// settle the final status.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		rw.w.WriteHeader(code)
		return
	}

	rw.wroteHeader = true
	rw.status = code
	if rw.isSuccess(code) {
		rw.committed = true
		rw.w.WriteHeader(code)
		return
	}
	rw.holding = true
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if rw.hijacked {
		return 0, http.ErrHijacked
	}
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.holding {
		return rw.buf.Write(b)
	}
	n, err := rw.w.Write(b)
	rw.written += int64(n)
	return n, err
}

// Flush forwards to the client only once the response is committed; held
// failure bodies stay buffered.
func (rw *responseRecorder) Flush() {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.holding {
		return
	}
	if f, ok := rw.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.w.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("observe: underlying ResponseWriter does not implement http.Hijacker")
	}
	conn, brw, err := h.Hijack()
	if err == nil {
		rw.hijacked = true
	}
	return conn, brw, err
}

// Unwrap exposes the underlying writer to http.ResponseController. Writes
// made through it bypass classification.
func (rw *responseRecorder) Unwrap() http.ResponseWriter {
	return rw.w
}

// Status returns the final status, 200 when the handler wrote nothing.
func (rw *responseRecorder) Status() int {
	return rw.status
}

// Body returns the held failure body.
func (rw *responseRecorder) Body() []byte {
	return rw.buf.Bytes()
}

// Committed reports whether the status line has reached the client.
func (rw *responseRecorder) Committed() bool {
	return rw.committed || rw.hijacked
}

// finalize settles the status of a handler that wrote nothing.
func (rw *responseRecorder) finalize() {
	if !rw.wroteHeader && !rw.hijacked {
		rw.WriteHeader(http.StatusOK)
	}
}

// replace discards anything held and stages a synthesized response. Headers
// set by the handler are dropped; those set before it ran are kept.
// It reports false when the response was already committed.
func (rw *responseRecorder) replace(status int, contentType string, body []byte) bool {
	if rw.Committed() {
		return false
	}
	h := rw.w.Header()
	for k := range h {
		delete(h, k)
	}
	for k, v := range rw.outer {
		h[k] = v
	}
	h.Set("Content-Type", contentType)

	rw.buf.Reset()
	rw.buf.Write(body)
	rw.status = status
	rw.wroteHeader = true
	rw.holding = true
	return true
}

// commit writes a held response to the client.
func (rw *responseRecorder) commit() error {
	if rw.Committed() || !rw.holding {
		return nil
	}
	rw.holding = false
	rw.committed = true
	rw.w.WriteHeader(rw.status)
	if rw.buf.Len() == 0 {
		return nil
	}
	n, err := rw.w.Write(rw.buf.Bytes())
	rw.written += int64(n)
	return err
}
