package codec

import (
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

const (
	majorTypeMap byte = 5
	majorTypeTag byte = 6
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsEmpty,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes v with definite-length containers only.
func Marshal(v interface{}) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, WrapCodec(err, "cbor encode failed")
	}
	return data, nil
}

// Unmarshal decodes data into v, rejecting indefinite-length maps and arrays.
func Unmarshal(data []byte, v interface{}) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return WrapCodec(err, "cbor decode failed")
	}
	return nil
}

// Tagged wraps content in CBOR tag number.
func Tagged(number uint64, content interface{}) cbor.Tag {
	return cbor.Tag{Number: number, Content: content}
}

// UUIDTag returns the tag 37 form of id, or nil so that omitempty drops the entry.
func UUIDTag(id *uuid.UUID) *cbor.Tag {
	if id == nil {
		return nil
	}
	b := make([]byte, len(id))
	copy(b, id[:])
	return &cbor.Tag{Number: TagUUID, Content: b}
}

// IntValue converts a signed big integer into the CBOR integer the peer expects:
// unsigned when non-negative, negative otherwise.
func IntValue(v *big.Int) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if v.Sign() >= 0 {
		if !v.IsUint64() {
			return nil, Validationf("integer %s exceeds the CBOR unsigned range", v.String())
		}
		return v.Uint64(), nil
	}
	if !v.IsInt64() {
		return nil, Validationf("integer %s exceeds the CBOR negative range", v.String())
	}
	return v.Int64(), nil
}

// Untag strips tag number from data. It fails when data is not tagged with that number.
func Untag(data []byte, number uint64, msgType string) (cbor.RawMessage, error) {
	if mt, ok := majorType(data); !ok || mt != majorTypeTag {
		return nil, Codecf("%s: expected tag %d", msgType, number)
	}
	var raw cbor.RawTag
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, WrapCodec(err, "%s: cbor decode failed", msgType)
	}
	if raw.Number != number {
		return nil, Codecf("%s: expected tag %d, got %d", msgType, number, raw.Number)
	}
	return raw.Content, nil
}

// IsTagged reports whether data starts with CBOR tag number.
func IsTagged(data []byte, number uint64) bool {
	if mt, ok := majorType(data); !ok || mt != majorTypeTag {
		return false
	}
	var raw cbor.RawTag
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return false
	}
	return raw.Number == number
}

func majorType(data []byte) (byte, bool) {
	if len(data) == 0 {
		return 0, false
	}
	return data[0] >> 5, true
}
