package outcome

import (
	"encoding/json"
)

// Error is the capability set an error payload must provide.
//
// Empty strings mean the value is absent; callers record them as "".
type Error interface {
	ErrorMessage() string
	ErrorBacktrace() string
}

// Decoder turns the buffered body of a failure response into an Error.
//
// Contract:
//   - Decode never fails: undecodable input yields a default payload.
//   - Decode must not retain body.
type Decoder interface {
	Decode(body []byte) Error
}

// CheckedDecoder is a Decoder that can tell a decoded payload from a
// default fallback. Decoders returned by JSON implement it.
type CheckedDecoder interface {
	Decoder
	DecodeChecked(body []byte) (payload Error, decoded bool)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(body []byte) Error

// Decode calls f(body).
func (f DecoderFunc) Decode(body []byte) Error {
	return f(body)
}

// JSON returns a Decoder that unmarshals bodies into a fresh T. The result
// also implements CheckedDecoder.
//
// Malformed, empty or wrongly shaped bodies decode to the zero value of T.
func JSON[T any, P interface {
	*T
	Error
}]() Decoder {
	return jsonDecoder[T, P]{}
}

type jsonDecoder[T any, P interface {
	*T
	Error
}] struct{}

func (d jsonDecoder[T, P]) Decode(body []byte) Error {
	payload, _ := d.DecodeChecked(body)
	return payload
}

func (jsonDecoder[T, P]) DecodeChecked(body []byte) (Error, bool) {
	if len(body) == 0 {
		return P(new(T)), false
	}
	v := P(new(T))
	if err := json.Unmarshal(body, v); err != nil {
		return P(new(T)), false
	}
	return v, true
}

// Problem is the default error payload.
type Problem struct {
	Status    int    `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Backtrace string `json:"backtrace,omitempty"`
}

// ErrorMessage returns the problem message.
func (p *Problem) ErrorMessage() string { return p.Message }

// ErrorBacktrace returns the problem backtrace.
func (p *Problem) ErrorBacktrace() string { return p.Backtrace }

// DefaultDecoder decodes failure bodies into *Problem.
func DefaultDecoder() Decoder {
	return JSON[Problem]()
}

// Serialize renders v as indented JSON. Values that cannot be marshalled
// render as "{}".
func Serialize(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
