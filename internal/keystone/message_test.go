package keystone

import (
	"math/big"
	"testing"

	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/goatnetwork/qlink/internal/keystone/keypath"
	"github.com/goatnetwork/qlink/internal/keystone/messages"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessages() []Message {
	rid := uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	eth := keypath.MustParse("m/44'/60'/0'/0/0")
	sol := keypath.MustParse("m/44'/501'/0'/0'")
	return []Message{
		CryptoAccount{messages.NewCryptoAccount([4]byte{1, 2, 3, 4}, []byte{0x03, 0x01}, eth)},
		EthSignRequest{messages.NewEthTransaction([]byte{0xf8}, eth, big.NewInt(1)).WithOrigin("dapp")},
		EthSignature{messages.NewEthSignature(&rid, make([]byte, 65))},
		HederaSignRequest{messages.NewHederaSignRequest([]byte{1}, eth, &rid).WithAccountID("0.0.99")},
		HederaSignature{messages.NewHederaSignature(&rid, []byte{2})},
		SolanaSignRequest{messages.NewSolanaSignRequest([]byte{3}, sol, &rid)},
		SolanaSignature{messages.NewSolanaSignature([]byte{4}, &rid).WithPublicKey([]byte{5})},
		StellarSignRequest{messages.NewStellarMessage([]byte("m"), keypath.MustParse("m/44'/148'/0'"), nil)},
		StellarSignature{messages.NewStellarSignature(&rid, []byte{6})},
		XrpSignRequest{messages.NewXrpSignRequest(`{"Account":"r"}`, "m/44'/144'/0'/0/0", &rid)},
		XrpSignature{messages.NewXrpSignature(&rid, "0a0b")},
	}
}

func TestDispatchRoundTrip(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range sampleMessages() {
		payload, err := EncodeMessage(m)
		require.NoError(t, err, m.TypeName())
		assert.Equal(t, m.TypeName(), payload.Type)
		assert.False(t, payload.Metadata.Multipart)

		decoded, err := payload.Message()
		require.NoError(t, err, m.TypeName())
		assert.Equal(t, m, decoded)
		assert.Equal(t, m.Variant(), decoded.Variant())
		seen[m.TypeName()] = true
	}
	assert.Len(t, seen, 11)
}

func TestEncodingClassification(t *testing.T) {
	for _, m := range sampleMessages() {
		payload, err := EncodeMessage(m)
		require.NoError(t, err)
		assert.Equal(t, EncodingFor(m.TypeName()), payload.Encoding, m.TypeName())
	}

	payload, err := EncodeMessage(Unknown{Type: "xrp-future", Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, EncodingBinary, payload.Encoding)
	assert.Equal(t, EncodingJson, EncodingFor("xrp-sign-request"))
	assert.Equal(t, EncodingCbor, EncodingFor("eth-signature"))
	assert.Equal(t, "json", EncodingJson.String())
}

func TestUnknownType(t *testing.T) {
	data := []byte{0xa1, 0x01, 0x02}
	m, err := DecodeMessage("bogus-type", data)
	require.NoError(t, err)
	assert.Equal(t, Unknown{Type: "bogus-type", Data: data}, m)
	assert.Equal(t, "unknown", m.Variant())

	wire, err := m.ToWire()
	require.NoError(t, err)
	assert.Equal(t, data, wire)
}

func TestDecodeMessageErrors(t *testing.T) {
	_, err := DecodeMessage(TypeEthSignRequest, []byte{0x01})
	require.Error(t, err)
	assert.True(t, codec.IsKind(err, codec.KindCodec))

	_, err = DecodeMessage(TypeXrpSignature, []byte("{"))
	assert.Error(t, err)
}
