package codec

import (
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Fields is a decoded definite-length CBOR map with unsigned integer keys.
// Entries whose key is never requested are ignored, which is how newer peers
// can add keys without breaking older decoders.
type Fields struct {
	msgType string
	entries map[uint64]cbor.RawMessage
}

// DecodeMap decodes data as a map. A non-zero tag requires the map to be wrapped in
// that tag; a zero tag requires a bare map.
func DecodeMap(data []byte, tag uint64, msgType string) (*Fields, error) {
	content := cbor.RawMessage(data)
	if tag != 0 {
		var err error
		if content, err = Untag(data, tag, msgType); err != nil {
			return nil, err
		}
	}
	return decodeFields(content, msgType)
}

func decodeFields(content []byte, msgType string) (*Fields, error) {
	if mt, ok := majorType(content); !ok || mt != majorTypeMap {
		return nil, Codecf("%s: expected map", msgType)
	}
	var raw map[interface{}]cbor.RawMessage
	if err := decMode.Unmarshal(content, &raw); err != nil {
		return nil, WrapCodec(err, "%s: cbor decode failed", msgType)
	}
	f := &Fields{msgType: msgType, entries: make(map[uint64]cbor.RawMessage, len(raw))}
	for k, v := range raw {
		if key, ok := k.(uint64); ok {
			f.entries[key] = v
		}
	}
	return f, nil
}

func (f *Fields) Has(key uint64) bool {
	_, ok := f.entries[key]
	return ok
}

// Raw returns the undecoded value stored under key.
func (f *Fields) Raw(key uint64, name string) (cbor.RawMessage, error) {
	v, ok := f.entries[key]
	if !ok {
		return nil, MissingField(f.msgType, name)
	}
	return v, nil
}

func (f *Fields) decode(key uint64, name string, v interface{}) error {
	if err := decMode.Unmarshal(f.entries[key], v); err != nil {
		return InvalidField(f.msgType, name, err)
	}
	return nil
}

func (f *Fields) Bytes(key uint64, name string) ([]byte, error) {
	if !f.Has(key) {
		return nil, MissingField(f.msgType, name)
	}
	var b []byte
	if err := f.decode(key, name, &b); err != nil {
		return nil, err
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

// OptBytes returns nil when key is absent.
func (f *Fields) OptBytes(key uint64, name string) ([]byte, error) {
	if !f.Has(key) {
		return nil, nil
	}
	return f.Bytes(key, name)
}

func (f *Fields) Text(key uint64, name string) (string, error) {
	if !f.Has(key) {
		return "", MissingField(f.msgType, name)
	}
	var s string
	err := f.decode(key, name, &s)
	return s, err
}

// OptText returns nil when key is absent. A present empty string is kept.
func (f *Fields) OptText(key uint64, name string) (*string, error) {
	if !f.Has(key) {
		return nil, nil
	}
	s, err := f.Text(key, name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (f *Fields) Uint(key uint64, name string) (uint64, error) {
	if !f.Has(key) {
		return 0, MissingField(f.msgType, name)
	}
	var n uint64
	err := f.decode(key, name, &n)
	return n, err
}

// OptUint reports whether key was present alongside its value.
func (f *Fields) OptUint(key uint64, name string) (uint64, bool, error) {
	if !f.Has(key) {
		return 0, false, nil
	}
	n, err := f.Uint(key, name)
	return n, err == nil, err
}

// OptInt reads a signed integer first and falls back to unsigned, so both
// encodings of a non-negative value decode to the same number.
func (f *Fields) OptInt(key uint64, name string) (*big.Int, error) {
	if !f.Has(key) {
		return nil, nil
	}
	var signed int64
	if err := decMode.Unmarshal(f.entries[key], &signed); err == nil {
		return big.NewInt(signed), nil
	}
	var unsigned uint64
	if err := f.decode(key, name, &unsigned); err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(unsigned), nil
}

// OptUUID reads a tag 37 request id. A present value with the wrong tag or
// length is an error rather than an absent id.
func (f *Fields) OptUUID(key uint64, name string) (*uuid.UUID, error) {
	if !f.Has(key) {
		return nil, nil
	}
	content, err := Untag(f.entries[key], TagUUID, f.msgType+"."+name)
	if err != nil {
		return nil, err
	}
	var b []byte
	if err := decMode.Unmarshal(content, &b); err != nil {
		return nil, InvalidField(f.msgType, name, err)
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, InvalidField(f.msgType, name, err)
	}
	return &id, nil
}
