// Package keystone maps UR type strings onto the closed set of Keystone
// messages and back.
package keystone

import (
	"strings"
)

// UR types understood by this bridge.
const (
	TypeCryptoAccount      = "crypto-account"
	TypeEthSignRequest     = "eth-sign-request"
	TypeEthSignature       = "eth-signature"
	TypeHederaSignRequest  = "hbar-sign-request"
	TypeHederaSignature    = "hbar-signature"
	TypeSolanaSignRequest  = "sol-sign-request"
	TypeSolanaSignature    = "sol-signature"
	TypeStellarSignRequest = "stellar-sign-request"
	TypeStellarSignature   = "stellar-signature"
	TypeXrpSignRequest     = "xrp-sign-request"
	TypeXrpSignature       = "xrp-signature"
)

type Encoding int

const (
	EncodingBinary Encoding = iota
	EncodingCbor
	EncodingJson
)

func (e Encoding) String() string {
	switch e {
	case EncodingCbor:
		return "cbor"
	case EncodingJson:
		return "json"
	default:
		return "binary"
	}
}

func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// EncodingFor classifies a received UR type: xrp-* bodies are JSON, everything else CBOR.
func EncodingFor(typeName string) Encoding {
	if strings.HasPrefix(typeName, "xrp-") {
		return EncodingJson
	}
	return EncodingCbor
}

// Metadata describes how a payload arrived. Sequence and TotalParts are
// best-effort values taken from a fragment's index segment.
type Metadata struct {
	Sequence   *uint32 `json:"sequence"`
	TotalParts *uint32 `json:"total_parts"`
	Multipart  bool    `json:"multipart"`
}

type Payload struct {
	Type     string
	Data     []byte
	Metadata Metadata
	Encoding Encoding
}

// Message decodes the payload body according to its type.
func (p Payload) Message() (Message, error) {
	return DecodeMessage(p.Type, p.Data)
}
