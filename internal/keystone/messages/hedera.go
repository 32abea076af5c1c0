package messages

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/goatnetwork/qlink/internal/keystone/keypath"
	"github.com/google/uuid"
)

const (
	hederaSignRequestType = "hbar-sign-request"
	hederaSignatureType   = "hbar-signature"
)

// HederaSignRequest carries a serialized Hedera transaction body. Hedera
// messages use vendor tags in the registry but travel as bare maps.
type HederaSignRequest struct {
	RequestID        *uuid.UUID
	TransactionBytes []byte
	DerivationPath   keypath.Path
	AccountID        *string // e.g. "0.0.1234"
	Origin           *string
}

func NewHederaSignRequest(tx []byte, path keypath.Path, requestID *uuid.UUID) HederaSignRequest {
	return HederaSignRequest{
		RequestID:        requestID,
		TransactionBytes: cloneBytes(tx),
		DerivationPath:   path,
	}
}

func (r HederaSignRequest) WithAccountID(accountID string) HederaSignRequest {
	r.AccountID = &accountID
	return r
}

func (r HederaSignRequest) WithOrigin(origin string) HederaSignRequest {
	r.Origin = &origin
	return r
}

type hederaSignRequestWire struct {
	RequestID        *cbor.Tag    `cbor:"1,keyasint,omitempty"`
	TransactionBytes []byte       `cbor:"2,keyasint"`
	DerivationPath   keypath.Path `cbor:"3,keyasint"`
	AccountID        *string      `cbor:"4,keyasint,omitempty"`
	Origin           *string      `cbor:"5,keyasint,omitempty"`
}

func (r HederaSignRequest) ToWire() ([]byte, error) {
	return codec.Marshal(hederaSignRequestWire{
		RequestID:        codec.UUIDTag(r.RequestID),
		TransactionBytes: r.TransactionBytes,
		DerivationPath:   r.DerivationPath,
		AccountID:        r.AccountID,
		Origin:           r.Origin,
	})
}

func HederaSignRequestFromWire(data []byte) (HederaSignRequest, error) {
	fields, err := codec.DecodeMap(data, 0, hederaSignRequestType)
	if err != nil {
		return HederaSignRequest{}, err
	}

	var r HederaSignRequest
	if r.RequestID, err = fields.OptUUID(1, "request_id"); err != nil {
		return HederaSignRequest{}, err
	}
	if r.TransactionBytes, err = fields.Bytes(2, "transaction_bytes"); err != nil {
		return HederaSignRequest{}, err
	}
	if r.DerivationPath, err = decodePath(fields, 3, hederaSignRequestType, "derivation_path"); err != nil {
		return HederaSignRequest{}, err
	}
	if r.AccountID, err = fields.OptText(4, "account_id"); err != nil {
		return HederaSignRequest{}, err
	}
	if r.Origin, err = fields.OptText(5, "origin"); err != nil {
		return HederaSignRequest{}, err
	}
	return r, nil
}

type HederaSignature struct {
	RequestID *uuid.UUID
	Signature []byte
	PublicKey []byte
}

func NewHederaSignature(requestID *uuid.UUID, signature []byte) HederaSignature {
	return HederaSignature{RequestID: requestID, Signature: cloneBytes(signature)}
}

func (s HederaSignature) WithPublicKey(publicKey []byte) HederaSignature {
	s.PublicKey = cloneBytes(publicKey)
	return s
}

type hederaSignatureWire struct {
	RequestID *cbor.Tag `cbor:"1,keyasint,omitempty"`
	Signature []byte    `cbor:"2,keyasint"`
	PublicKey *[]byte   `cbor:"3,keyasint,omitempty"`
}

func (s HederaSignature) ToWire() ([]byte, error) {
	return codec.Marshal(hederaSignatureWire{
		RequestID: codec.UUIDTag(s.RequestID),
		Signature: s.Signature,
		PublicKey: optBytes(s.PublicKey),
	})
}

func HederaSignatureFromWire(data []byte) (HederaSignature, error) {
	fields, err := codec.DecodeMap(data, 0, hederaSignatureType)
	if err != nil {
		return HederaSignature{}, err
	}

	var s HederaSignature
	if s.RequestID, err = fields.OptUUID(1, "request_id"); err != nil {
		return HederaSignature{}, err
	}
	if s.Signature, err = fields.Bytes(2, "signature"); err != nil {
		return HederaSignature{}, err
	}
	if s.PublicKey, err = fields.OptBytes(3, "public_key"); err != nil {
		return HederaSignature{}, err
	}
	return s, nil
}
