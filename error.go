package connectrt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/anypb"
)

// Detail is one structured error detail: a type URL and an opaque
// protobuf-encoded value, exactly [anypb.Any]'s shape. Representing details
// as Any (rather than a hand-rolled {type_url, value} struct) lets a handler
// attach any registered protobuf message as a detail with proto.Marshal and
// lets a client unmarshal it back with anypb.UnmarshalTo.
type Detail = anypb.Any

// Error is a Connect RPC error: a code, a message, an ordered list of
// details, and side-channel metadata headers. The identity of an Error is
// (code, message, details); metadata never participates in equality.
type Error struct {
	code    Code
	message string
	details []*Detail
	meta    *Headers
}

// NewError creates an Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// NewErrorf creates an Error with a formatted message.
func NewErrorf(code Code, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Code returns the error's code.
func (e *Error) Code() Code { return e.code }

// Message returns the error's message, without the code prefix Error()
// includes.
func (e *Error) Message() string { return e.message }

// Details returns the error's structured details, in the order they were
// added.
func (e *Error) Details() []*Detail {
	return e.details
}

// AddDetail appends a structured detail to the error and returns it for
// chaining.
func (e *Error) AddDetail(d *Detail) *Error {
	e.details = append(e.details, d)
	return e
}

// Meta returns the error's metadata headers, lazily creating an empty store
// if none has been set.
func (e *Error) Meta() *Headers {
	if e.meta == nil {
		e.meta = NewHeaders()
	}
	return e.meta
}

// NewErrorFromGo converts an arbitrary error into an *Error. If err already
// is (or wraps) an *Error, that error is returned unchanged. Otherwise it is
// wrapped as CodeUnknown — this is the "unstructured handler failure"
// translation from spec §7.
func NewErrorFromGo(err error) *Error {
	if err == nil {
		return nil
	}
	var connectErr *Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	return NewError(CodeUnknown, err.Error())
}

// CodeOf returns the Code of err. A nil error has no code and yields the
// empty Code, so callers must check err != nil first. A non-nil error that
// is not (and does not wrap) an *Error yields CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return NewErrorFromGo(err).code
}

// wireError is the JSON representation of an Error, per spec §4.4.
type wireError struct {
	Code    Code             `json:"code"`
	Message string           `json:"message,omitempty"`
	Details []wireErrorDetail `json:"details,omitempty"`
}

type wireErrorDetail struct {
	Type  string          `json:"type"`
	Value string          `json:"value"`
	Debug json.RawMessage `json:"debug,omitempty"`
}

// MarshalJSON encodes the error using the Connect wire JSON shape.
func (e *Error) MarshalJSON() ([]byte, error) {
	w := wireError{Code: e.code, Message: e.message}
	for _, d := range e.details {
		w.Details = append(w.Details, wireErrorDetail{
			Type:  d.TypeUrl,
			Value: base64.StdEncoding.EncodeToString(d.Value),
		})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the Connect wire JSON error shape into e.
func (e *Error) UnmarshalJSON(data []byte) error {
	var w wireError
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.code = w.Code
	e.message = w.Message
	e.details = nil
	for _, d := range w.Details {
		value, err := base64.StdEncoding.DecodeString(d.Value)
		if err != nil {
			return fmt.Errorf("decode error detail %q: %w", d.Type, err)
		}
		e.details = append(e.details, &Detail{TypeUrl: d.Type, Value: value})
	}
	return nil
}
