package messages

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/goatnetwork/qlink/internal/keystone/keypath"
	"github.com/google/uuid"
)

const (
	stellarSignRequestType = "stellar-sign-request"
	stellarSignatureType   = "stellar-signature"
)

type StellarSignType uint32

const (
	StellarTransaction     StellarSignType = 1
	StellarTransactionHash StellarSignType = 2
	StellarMessage         StellarSignType = 3
)

// DefaultStellarSignType is used when a request is built without an explicit type.
const DefaultStellarSignType = StellarTransaction

func ParseStellarSignType(v uint64) (StellarSignType, error) {
	if v < uint64(StellarTransaction) || v > uint64(StellarMessage) {
		return 0, codec.Validationf("invalid stellar sign type: %d, expected 1, 2, or 3", v)
	}
	return StellarSignType(v), nil
}

func (t StellarSignType) String() string {
	switch t {
	case StellarTransaction:
		return "transaction"
	case StellarTransactionHash:
		return "transaction_hash"
	case StellarMessage:
		return "message"
	default:
		return "unknown"
	}
}

type StellarSignRequest struct {
	RequestID      *uuid.UUID
	SignData       []byte
	DerivationPath keypath.Path
	Address        []byte
	Origin         *string
	SignType       StellarSignType
}

func newStellarSignRequest(data []byte, signType StellarSignType, path keypath.Path, requestID *uuid.UUID) StellarSignRequest {
	return StellarSignRequest{
		RequestID:      requestID,
		SignData:       cloneBytes(data),
		DerivationPath: path,
		SignType:       signType,
	}
}

func NewStellarTransaction(data []byte, path keypath.Path, requestID *uuid.UUID) StellarSignRequest {
	return newStellarSignRequest(data, StellarTransaction, path, requestID)
}

func NewStellarTransactionHash(hash []byte, path keypath.Path, requestID *uuid.UUID) StellarSignRequest {
	return newStellarSignRequest(hash, StellarTransactionHash, path, requestID)
}

func NewStellarMessage(message []byte, path keypath.Path, requestID *uuid.UUID) StellarSignRequest {
	return newStellarSignRequest(message, StellarMessage, path, requestID)
}

func (r StellarSignRequest) WithAddress(address []byte) StellarSignRequest {
	r.Address = cloneBytes(address)
	return r
}

func (r StellarSignRequest) WithOrigin(origin string) StellarSignRequest {
	r.Origin = &origin
	return r
}

type stellarSignRequestWire struct {
	RequestID      *cbor.Tag    `cbor:"1,keyasint,omitempty"`
	SignData       []byte       `cbor:"2,keyasint"`
	DerivationPath keypath.Path `cbor:"3,keyasint"`
	Address        *[]byte      `cbor:"4,keyasint,omitempty"`
	Origin         *string      `cbor:"5,keyasint,omitempty"`
	SignType       uint32       `cbor:"6,keyasint"`
}

func (r StellarSignRequest) ToWire() ([]byte, error) {
	signType := r.SignType
	if signType == 0 {
		signType = DefaultStellarSignType
	}
	if _, err := ParseStellarSignType(uint64(signType)); err != nil {
		return nil, err
	}
	return codec.Marshal(stellarSignRequestWire{
		RequestID:      codec.UUIDTag(r.RequestID),
		SignData:       r.SignData,
		DerivationPath: r.DerivationPath,
		Address:        optBytes(r.Address),
		Origin:         r.Origin,
		SignType:       uint32(signType),
	})
}

func StellarSignRequestFromWire(data []byte) (StellarSignRequest, error) {
	fields, err := codec.DecodeMap(data, 0, stellarSignRequestType)
	if err != nil {
		return StellarSignRequest{}, err
	}

	var r StellarSignRequest
	if r.RequestID, err = fields.OptUUID(1, "request_id"); err != nil {
		return StellarSignRequest{}, err
	}
	if r.SignData, err = fields.Bytes(2, "sign_data"); err != nil {
		return StellarSignRequest{}, err
	}
	if r.DerivationPath, err = decodePath(fields, 3, stellarSignRequestType, "derivation_path"); err != nil {
		return StellarSignRequest{}, err
	}
	if r.Address, err = fields.OptBytes(4, "address"); err != nil {
		return StellarSignRequest{}, err
	}
	if r.Origin, err = fields.OptText(5, "origin"); err != nil {
		return StellarSignRequest{}, err
	}
	signType, err := fields.Uint(6, "sign_type")
	if err != nil {
		return StellarSignRequest{}, err
	}
	if r.SignType, err = ParseStellarSignType(signType); err != nil {
		return StellarSignRequest{}, err
	}
	return r, nil
}

type StellarSignature struct {
	RequestID *uuid.UUID
	Signature []byte
}

func NewStellarSignature(requestID *uuid.UUID, signature []byte) StellarSignature {
	return StellarSignature{RequestID: requestID, Signature: cloneBytes(signature)}
}

type stellarSignatureWire struct {
	RequestID *cbor.Tag `cbor:"1,keyasint,omitempty"`
	Signature []byte    `cbor:"2,keyasint"`
}

func (s StellarSignature) ToWire() ([]byte, error) {
	return codec.Marshal(stellarSignatureWire{
		RequestID: codec.UUIDTag(s.RequestID),
		Signature: s.Signature,
	})
}

func StellarSignatureFromWire(data []byte) (StellarSignature, error) {
	fields, err := codec.DecodeMap(data, 0, stellarSignatureType)
	if err != nil {
		return StellarSignature{}, err
	}

	var s StellarSignature
	if s.RequestID, err = fields.OptUUID(1, "request_id"); err != nil {
		return StellarSignature{}, err
	}
	if s.Signature, err = fields.Bytes(2, "signature"); err != nil {
		return StellarSignature{}, err
	}
	return s, nil
}
