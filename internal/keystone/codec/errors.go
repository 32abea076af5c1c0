package codec

import (
	"errors"
	"fmt"
)

// Kind classifies protocol failures. All kinds fail the current frame only.
type Kind string

const (
	// KindCodec covers malformed bytes, wrong tags, indefinite-length containers and missing keys.
	KindCodec Kind = "codec"
	// KindEnvelope covers bad UR prefixes, empty type segments and byte-level UR failures.
	KindEnvelope Kind = "envelope"
	// KindValidation covers well-formed values outside their allowed domain.
	KindValidation Kind = "validation"
)

type Error struct {
	Kind    Kind
	Message string
	// Field is set for missing or invalid map entries.
	Field string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err (or anything it wraps) is a protocol error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

func Codecf(format string, args ...interface{}) error {
	return &Error{Kind: KindCodec, Message: fmt.Sprintf(format, args...)}
}

func WrapCodec(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindCodec, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Envelopef(format string, args ...interface{}) error {
	return &Error{Kind: KindEnvelope, Message: fmt.Sprintf(format, args...)}
}

func WrapEnvelope(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindEnvelope, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// MissingField reports a required map key that never appeared while decoding msgType.
func MissingField(msgType, field string) error {
	return &Error{
		Kind:    KindCodec,
		Field:   field,
		Message: fmt.Sprintf("missing required field %s in %s", field, msgType),
	}
}

// InvalidField reports a map entry whose value could not be decoded.
func InvalidField(msgType, field string, cause error) error {
	return &Error{
		Kind:    KindCodec,
		Field:   field,
		Message: fmt.Sprintf("invalid field %s in %s", field, msgType),
		Cause:   cause,
	}
}
