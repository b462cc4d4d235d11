package observe

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
)

// PanicMapper converts a panic payload into the status and JSON body of the
// response sent in place of the handler's.
//
// The second return value is encoded with encoding/json.
type PanicMapper func(payload string) (status int, body any)

// PanicResponse is the default body written for a recovered panic.
type PanicResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// DefaultPanicMapper answers 500 with a PanicResponse body.
func DefaultPanicMapper(payload string) (int, any) {
	return http.StatusInternalServerError, PanicResponse{
		Status:  http.StatusInternalServerError,
		Message: "A panic occurred: " + payload + ".",
	}
}

// Fault is a panic recovered from an inner handler.
type Fault struct {
	Value   any
	Payload string
	Stack   []byte
}

// Abort reports whether the panic is net/http's connection abort sentinel.
func (f *Fault) Abort() bool {
	err, ok := f.Value.(error)
	return ok && err == http.ErrAbortHandler
}

// panicPayload renders a recovered value as text.
func panicPayload(v any) string {
	switch p := v.(type) {
	case string:
		return p
	case error:
		return p.Error()
	case fmt.Stringer:
		return p.String()
	default:
		return fmt.Sprint(v)
	}
}

// serve runs next and converts a panic into a Fault. The handler is not
// resumed after a panic.
func serve(next http.Handler, w http.ResponseWriter, r *http.Request) (fault *Fault) {
	defer func() {
		if v := recover(); v != nil {
			fault = &Fault{Value: v, Payload: panicPayload(v), Stack: debug.Stack()}
		}
	}()
	next.ServeHTTP(w, r)
	return nil
}

// faultResponse builds the synthesized response for f. A mapper that panics
// or yields an unencodable body falls back to DefaultPanicMapper.
func faultResponse(mapper PanicMapper, f *Fault) (status int, body []byte) {
	status, payload := safeMap(mapper, f.Payload)
	body, err := json.Marshal(payload)
	if err != nil || status < 100 || status > 999 {
		status, payload = DefaultPanicMapper(f.Payload)
		body, _ = json.Marshal(payload)
	}
	return status, body
}

func safeMap(mapper PanicMapper, payload string) (status int, body any) {
	if mapper == nil {
		return DefaultPanicMapper(payload)
	}
	defer func() {
		if recover() != nil {
			status, body = DefaultPanicMapper(payload)
		}
	}()
	return mapper(payload)
}
