package codec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("frame 3: %w", MissingField("eth-signature", "signature"))
	assert.True(t, IsKind(err, KindCodec))
	assert.False(t, IsKind(err, KindValidation))

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "signature", perr.Field)

	cause := errors.New("boom")
	wrapped := WrapEnvelope(cause, "bytewords")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "envelope error: bytewords: boom", wrapped.Error())
	assert.False(t, IsKind(cause, KindEnvelope))
}

func TestMarshalDefiniteLength(t *testing.T) {
	data, err := Marshal(map[uint64][]uint32{1: nil})
	require.NoError(t, err)
	// nil slices are written as empty arrays, never null
	assert.Equal(t, "a10180", hex.EncodeToString(data))
}

func TestUnmarshalRejectsIndefinite(t *testing.T) {
	var v []int
	err := Unmarshal([]byte{0x9f, 0x01, 0xff}, &v)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCodec))
}

func TestDecodeMap(t *testing.T) {
	data, err := cbor.Marshal(Tagged(TagEthSignature, map[interface{}]interface{}{
		uint64(2): []byte{1, 2},
		"text":    "ignored",
		uint64(3): "origin",
	}))
	require.NoError(t, err)

	f, err := DecodeMap(data, TagEthSignature, "eth-signature")
	require.NoError(t, err)
	assert.True(t, f.Has(2))
	assert.False(t, f.Has(1))

	b, err := f.Bytes(2, "signature")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)

	s, err := f.OptText(3, "origin")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "origin", *s)
	s, err = f.OptText(4, "address")
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = f.Uint(3, "origin")
	assert.True(t, IsKind(err, KindCodec))
	_, err = f.Uint(1, "request_id")
	assert.Contains(t, err.Error(), "missing required field request_id in eth-signature")

	_, err = DecodeMap(data, 0, "eth-signature")
	assert.Error(t, err)
	_, err = DecodeMap(data, TagEthSignRequest, "eth-sign-request")
	assert.Error(t, err)
	_, err = DecodeMap([]byte{0x81, 0x01}, 0, "x")
	assert.Error(t, err)
	_, err = DecodeMap([]byte{0xbf, 0x01, 0x01, 0xff}, 0, "x")
	assert.Error(t, err)
}

func TestOptUUID(t *testing.T) {
	id := uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	data, err := Marshal(map[uint64]interface{}{1: UUIDTag(&id), 2: Tagged(TagUUID, []byte{1, 2, 3})})
	require.NoError(t, err)
	f, err := DecodeMap(data, 0, "test")
	require.NoError(t, err)

	got, err := f.OptUUID(1, "request_id")
	require.NoError(t, err)
	assert.Equal(t, id, *got)

	_, err = f.OptUUID(2, "short")
	assert.Error(t, err)

	none, err := f.OptUUID(5, "absent")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Nil(t, UUIDTag(nil))
}

func TestIntValue(t *testing.T) {
	v, err := IntValue(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	v, err = IntValue(big.NewInt(-3))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), v)

	v, err = IntValue(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = IntValue(new(big.Int).Lsh(big.NewInt(-1), 64))
	assert.True(t, IsKind(err, KindValidation))
}
