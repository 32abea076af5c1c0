// Package messages holds the per-chain account, sign-request and signature
// messages exchanged with a Keystone device. Every type is an immutable value:
// the With* helpers return modified copies.
package messages

import (
	"github.com/google/uuid"
)

// NewRequestID returns a fresh random (v4) request id.
func NewRequestID() *uuid.UUID {
	id := uuid.New()
	return &id
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

// optBytes keeps a present but empty byte string on the wire; only nil is omitted.
func optBytes(b []byte) *[]byte {
	if b == nil {
		return nil
	}
	return &b
}
