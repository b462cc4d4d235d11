package outcome

import (
	"strconv"
)

// KindPanic is the event kind emitted for a recovered handler panic.
const KindPanic = "PANIC"

// SuccessFunc decides whether a status code is a success.
type SuccessFunc func(status int) bool

// DefaultSuccess reports whether status is informational, successful, or a
// redirection.
func DefaultSuccess(status int) bool {
	return status >= 100 && status < 400
}

// IsSuccess applies pred to status, falling back to DefaultSuccess when pred
// is nil.
func IsSuccess(status int, pred SuccessFunc) bool {
	if pred == nil {
		return DefaultSuccess(status)
	}
	return pred(status)
}

// HTTPKind returns the event kind for a failure response status.
func HTTPKind(status int) string {
	return "HTTP " + strconv.Itoa(status)
}

// Outcome is the classified result of one request.
type Outcome struct {
	Success bool
	Status  int

	// Failure details; zero for successes.
	Payload    Error
	Message    string
	Backtrace  string
	Serialized string

	// Fallback is set when a CheckedDecoder could not decode the failure
	// body and Payload holds its default value.
	Fallback bool
}

// Classify classifies a finished response.
//
// The body is only decoded when status is not a success, so callers may pass
// nil for success responses.
func Classify(status int, body []byte, pred SuccessFunc, dec Decoder) Outcome {
	if IsSuccess(status, pred) {
		return Outcome{Success: true, Status: status}
	}
	if dec == nil {
		dec = DefaultDecoder()
	}
	if cd, ok := dec.(CheckedDecoder); ok {
		payload, decoded := cd.DecodeChecked(body)
		o := Failure(status, payload)
		o.Fallback = !decoded
		return o
	}
	return Failure(status, dec.Decode(body))
}

// Failure builds a failure outcome around an already decoded payload.
func Failure(status int, payload Error) Outcome {
	o := Outcome{Status: status, Payload: payload}
	if payload != nil {
		o.Message = payload.ErrorMessage()
		o.Backtrace = payload.ErrorBacktrace()
	}
	o.Serialized = Serialize(payload)
	return o
}

// Event returns the failure event for o. It reports false for successes.
func (o Outcome) Event() (Event, bool) {
	if o.Success {
		return Event{}, false
	}
	return Event{
		Kind:      HTTPKind(o.Status),
		Message:   o.Message,
		Backtrace: o.Backtrace,
	}, true
}

// Event describes a failure to be attached to a span and logged.
type Event struct {
	Kind      string
	Message   string
	Backtrace string
}

// PanicEvent returns the event for a recovered panic.
func PanicEvent(payload, stack string) Event {
	return Event{Kind: KindPanic, Message: payload, Backtrace: stack}
}
