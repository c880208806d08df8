// Package envelope decodes the platform's uniform response wrapper
// {code, error_code, msg, data} into a tagged result.
//
// Classification order matters: a non-2xx status is always a transport
// failure regardless of body, the string error_code is consulted before the
// legacy numeric code, and data is only decoded when neither signals an
// error.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	Code      int             `json:"code"`
	ErrorCode string          `json:"error_code,omitempty"`
	Msg       string          `json:"msg,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NoContent is the expected type for calls whose data is ignored.
type NoContent struct{}

// Kind tags which branch a Result took.
type Kind int

const (
	KindOK Kind = iota
	KindTransport
	KindMalformed
	KindBusiness
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed_envelope"
	case KindBusiness:
		return "business"
	case KindNetwork:
		return "network"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrTransport         = errors.New("transport error")
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrBusiness          = errors.New("business error")
	ErrNetwork           = errors.New("network error")
)

// noErrorCodes are error_code values that mean success.
var noErrorCodes = map[string]struct{}{
	"ok":      {},
	"success": {},
}

// TransportError is a non-2xx HTTP response.
type TransportError struct {
	StatusCode int
	Body       []byte
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: http %d", e.StatusCode)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// MalformedEnvelopeError is a 2xx response whose body could not be decoded.
type MalformedEnvelopeError struct {
	Body []byte
	Err  error
}

func (e *MalformedEnvelopeError) Error() string {
	return fmt.Sprintf("malformed envelope: %v", e.Err)
}

func (e *MalformedEnvelopeError) Unwrap() error { return e.Err }

func (e *MalformedEnvelopeError) Is(target error) bool { return target == ErrMalformedEnvelope }

// BusinessError is a domain failure signaled inside a 2xx response. Exactly
// one of ErrorCode or Code identifies it; Code is the deprecated numeric form.
type BusinessError struct {
	ErrorCode string
	Code      int
	Message   string
}

func (e *BusinessError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("business error %s: %s", e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("business error %d: %s", e.Code, e.Message)
}

func (e *BusinessError) Is(target error) bool { return target == ErrBusiness }

// NetworkError means no response was obtained at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Result is the outcome of one call. Err is nil only when Kind is KindOK.
type Result[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Unwrap returns the value and error in the usual Go form.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.Kind == KindOK }

// Fail builds a non-OK result for err, inferring the kind from its type.
func Fail[T any](err error) Result[T] {
	return Result[T]{Kind: KindOf(err), Err: err}
}

// KindOf classifies err by the error types of this package.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrBusiness):
		return KindBusiness
	case errors.Is(err, ErrMalformedEnvelope):
		return KindMalformed
	default:
		return KindNetwork
	}
}

// Decode classifies an HTTP status and body and, on success, decodes data
// into T.
func Decode[T any](status int, body []byte) Result[T] {
	if status < 200 || status > 299 {
		return Fail[T](&TransportError{StatusCode: status, Body: body})
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Fail[T](&MalformedEnvelopeError{Body: body, Err: err})
	}

	if env.ErrorCode != "" {
		if _, neutral := noErrorCodes[env.ErrorCode]; !neutral {
			return Fail[T](&BusinessError{ErrorCode: env.ErrorCode, Message: env.Msg})
		}
	}

	if env.Code != 0 {
		return Fail[T](&BusinessError{Code: env.Code, Message: env.Msg})
	}

	var out T
	if _, ok := any(out).(NoContent); ok {
		return Result[T]{Kind: KindOK}
	}

	if len(env.Data) == 0 {
		return Result[T]{Kind: KindOK, Value: out}
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return Fail[T](&MalformedEnvelopeError{Body: body, Err: fmt.Errorf("decode data: %w", err)})
	}
	return Result[T]{Kind: KindOK, Value: out}
}
