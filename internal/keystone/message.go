package keystone

import (
	"github.com/goatnetwork/qlink/internal/keystone/messages"
)

// Message is a closed union: exactly one of the variants below, or Unknown for
// UR types this bridge does not understand yet.
type Message interface {
	// TypeName is the UR type string the message travels under.
	TypeName() string
	// Variant is a stable snake_case label for output.
	Variant() string
	ToWire() ([]byte, error)

	isMessage()
}

type (
	CryptoAccount      struct{ messages.CryptoAccount }
	EthSignRequest     struct{ messages.EthSignRequest }
	EthSignature       struct{ messages.EthSignature }
	HederaSignRequest  struct{ messages.HederaSignRequest }
	HederaSignature    struct{ messages.HederaSignature }
	SolanaSignRequest  struct{ messages.SolanaSignRequest }
	SolanaSignature    struct{ messages.SolanaSignature }
	StellarSignRequest struct{ messages.StellarSignRequest }
	StellarSignature   struct{ messages.StellarSignature }
	XrpSignRequest     struct{ messages.XrpSignRequest }
	XrpSignature       struct{ messages.XrpSignature }
)

// Unknown keeps the raw body of an unrecognised UR type.
type Unknown struct {
	Type string
	Data []byte
}

func (CryptoAccount) TypeName() string      { return TypeCryptoAccount }
func (EthSignRequest) TypeName() string     { return TypeEthSignRequest }
func (EthSignature) TypeName() string       { return TypeEthSignature }
func (HederaSignRequest) TypeName() string  { return TypeHederaSignRequest }
func (HederaSignature) TypeName() string    { return TypeHederaSignature }
func (SolanaSignRequest) TypeName() string  { return TypeSolanaSignRequest }
func (SolanaSignature) TypeName() string    { return TypeSolanaSignature }
func (StellarSignRequest) TypeName() string { return TypeStellarSignRequest }
func (StellarSignature) TypeName() string   { return TypeStellarSignature }
func (XrpSignRequest) TypeName() string     { return TypeXrpSignRequest }
func (XrpSignature) TypeName() string       { return TypeXrpSignature }
func (u Unknown) TypeName() string          { return u.Type }

func (CryptoAccount) Variant() string      { return "crypto_account" }
func (EthSignRequest) Variant() string     { return "eth_sign_request" }
func (EthSignature) Variant() string       { return "eth_signature" }
func (HederaSignRequest) Variant() string  { return "hedera_sign_request" }
func (HederaSignature) Variant() string    { return "hedera_signature" }
func (SolanaSignRequest) Variant() string  { return "solana_sign_request" }
func (SolanaSignature) Variant() string    { return "solana_signature" }
func (StellarSignRequest) Variant() string { return "stellar_sign_request" }
func (StellarSignature) Variant() string   { return "stellar_signature" }
func (XrpSignRequest) Variant() string     { return "xrp_sign_request" }
func (XrpSignature) Variant() string       { return "xrp_signature" }
func (Unknown) Variant() string            { return "unknown" }

func (u Unknown) ToWire() ([]byte, error) { return u.Data, nil }

func (CryptoAccount) isMessage()      {}
func (EthSignRequest) isMessage()     {}
func (EthSignature) isMessage()       {}
func (HederaSignRequest) isMessage()  {}
func (HederaSignature) isMessage()    {}
func (SolanaSignRequest) isMessage()  {}
func (SolanaSignature) isMessage()    {}
func (StellarSignRequest) isMessage() {}
func (StellarSignature) isMessage()   {}
func (XrpSignRequest) isMessage()     {}
func (XrpSignature) isMessage()       {}
func (Unknown) isMessage()            {}

// DecodeMessage decodes data as the message registered for typeName. An
// unregistered type yields Unknown, never an error.
func DecodeMessage(typeName string, data []byte) (Message, error) {
	switch typeName {
	case TypeCryptoAccount:
		m, err := messages.CryptoAccountFromWire(data)
		return wrap(CryptoAccount{m}, err)
	case TypeEthSignRequest:
		m, err := messages.EthSignRequestFromWire(data)
		return wrap(EthSignRequest{m}, err)
	case TypeEthSignature:
		m, err := messages.EthSignatureFromWire(data)
		return wrap(EthSignature{m}, err)
	case TypeHederaSignRequest:
		m, err := messages.HederaSignRequestFromWire(data)
		return wrap(HederaSignRequest{m}, err)
	case TypeHederaSignature:
		m, err := messages.HederaSignatureFromWire(data)
		return wrap(HederaSignature{m}, err)
	case TypeSolanaSignRequest:
		m, err := messages.SolanaSignRequestFromWire(data)
		return wrap(SolanaSignRequest{m}, err)
	case TypeSolanaSignature:
		m, err := messages.SolanaSignatureFromWire(data)
		return wrap(SolanaSignature{m}, err)
	case TypeStellarSignRequest:
		m, err := messages.StellarSignRequestFromWire(data)
		return wrap(StellarSignRequest{m}, err)
	case TypeStellarSignature:
		m, err := messages.StellarSignatureFromWire(data)
		return wrap(StellarSignature{m}, err)
	case TypeXrpSignRequest:
		m, err := messages.XrpSignRequestFromWire(data)
		return wrap(XrpSignRequest{m}, err)
	case TypeXrpSignature:
		m, err := messages.XrpSignatureFromWire(data)
		return wrap(XrpSignature{m}, err)
	default:
		return Unknown{Type: typeName, Data: append([]byte(nil), data...)}, nil
	}
}

func wrap(m Message, err error) (Message, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeMessage serializes m into a single-part payload.
func EncodeMessage(m Message) (Payload, error) {
	data, err := m.ToWire()
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		Type:     m.TypeName(),
		Data:     data,
		Encoding: encodingOf(m),
	}, nil
}

func encodingOf(m Message) Encoding {
	switch m.(type) {
	case Unknown:
		return EncodingBinary
	case XrpSignRequest, XrpSignature:
		return EncodingJson
	default:
		return EncodingCbor
	}
}
