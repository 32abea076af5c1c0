// Package envelope wraps payloads in single-part UR strings and splits
// oversized ones into fountain-coded fragments.
package envelope

import (
	"errors"
	"strings"

	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/goatnetwork/qlink/internal/ur"
)

// ErrMultiPart is returned by Decode for a fragment of a multi-part message.
var ErrMultiPart = errors.New("fragment belongs to a multi-part message")

const prefix = "ur:"

// ExtractType returns the lowercased type segment of a UR string without
// decoding its body.
func ExtractType(text string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(lower, prefix) {
		return "", codec.WrapEnvelope(ur.ErrNotUR, "extract type")
	}
	typeName, _, _ := strings.Cut(lower[len(prefix):], "/")
	if typeName == "" {
		return "", codec.WrapEnvelope(ur.ErrInvalidFormat, "extract type")
	}
	return typeName, nil
}

// Decode reads a self-contained UR string into a single-part payload.
func Decode(text string) (keystone.Payload, error) {
	typeName, err := ExtractType(text)
	if err != nil {
		return keystone.Payload{}, err
	}
	kind, _, data, err := ur.Decode(text)
	if err != nil {
		return keystone.Payload{}, codec.WrapEnvelope(err, "decode %s", typeName)
	}
	if kind != ur.SinglePart {
		return keystone.Payload{}, codec.WrapEnvelope(ErrMultiPart, "decode %s", typeName)
	}
	return keystone.Payload{
		Type:     typeName,
		Data:     data,
		Encoding: keystone.EncodingFor(typeName),
	}, nil
}

// Encode renders data as a single-part UR of the given type.
func Encode(typeName string, data []byte) (string, error) {
	s, err := ur.Encode(data, typeName)
	if err != nil {
		return "", codec.WrapEnvelope(err, "encode %s", typeName)
	}
	return s, nil
}

// EncodePayload is Encode for an already built payload.
func EncodePayload(p keystone.Payload) (string, error) {
	return Encode(p.Type, p.Data)
}

// EncodeFragments returns the single-part UR when it fits in maxLen
// characters, otherwise one fountain part per fragment of the message. The
// boolean reports whether the result is multi-part.
func EncodeFragments(typeName string, data []byte, maxLen int) ([]string, bool, error) {
	single, err := Encode(typeName, data)
	if err != nil {
		return nil, false, err
	}
	if len(single) <= maxLen {
		return []string{single}, false, nil
	}

	enc, err := ur.NewEncoder(data, typeName, maxLen)
	if err != nil {
		return nil, false, codec.WrapEnvelope(err, "encode %s", typeName)
	}
	parts := make([]string, enc.FragmentCount())
	for i := range parts {
		if parts[i], err = enc.NextPart(); err != nil {
			return nil, false, codec.WrapEnvelope(err, "encode %s", typeName)
		}
	}
	return parts, true, nil
}
