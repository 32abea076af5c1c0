package messages

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/goatnetwork/qlink/internal/keystone/keypath"
	"github.com/google/uuid"
)

const (
	solanaSignRequestType = "sol-sign-request"
	solanaSignatureType   = "sol-signature"
)

type SolanaSignRequest struct {
	RequestID      *uuid.UUID
	Transaction    []byte
	DerivationPath keypath.Path
	Origin         *string
}

func NewSolanaSignRequest(tx []byte, path keypath.Path, requestID *uuid.UUID) SolanaSignRequest {
	return SolanaSignRequest{
		RequestID:      requestID,
		Transaction:    cloneBytes(tx),
		DerivationPath: path,
	}
}

func (r SolanaSignRequest) WithOrigin(origin string) SolanaSignRequest {
	r.Origin = &origin
	return r
}

type solanaSignRequestWire struct {
	RequestID      *cbor.Tag    `cbor:"1,keyasint,omitempty"`
	Transaction    []byte       `cbor:"2,keyasint"`
	DerivationPath keypath.Path `cbor:"3,keyasint"`
	Origin         *string      `cbor:"4,keyasint,omitempty"`
}

func (r SolanaSignRequest) ToWire() ([]byte, error) {
	return codec.Marshal(codec.Tagged(codec.TagSolSignRequest, solanaSignRequestWire{
		RequestID:      codec.UUIDTag(r.RequestID),
		Transaction:    r.Transaction,
		DerivationPath: r.DerivationPath,
		Origin:         r.Origin,
	}))
}

func SolanaSignRequestFromWire(data []byte) (SolanaSignRequest, error) {
	fields, err := codec.DecodeMap(data, codec.TagSolSignRequest, solanaSignRequestType)
	if err != nil {
		return SolanaSignRequest{}, err
	}

	var r SolanaSignRequest
	if r.RequestID, err = fields.OptUUID(1, "request_id"); err != nil {
		return SolanaSignRequest{}, err
	}
	if r.Transaction, err = fields.Bytes(2, "transaction"); err != nil {
		return SolanaSignRequest{}, err
	}
	if r.DerivationPath, err = decodePath(fields, 3, solanaSignRequestType, "derivation_path"); err != nil {
		return SolanaSignRequest{}, err
	}
	if r.Origin, err = fields.OptText(4, "origin"); err != nil {
		return SolanaSignRequest{}, err
	}
	return r, nil
}

type SolanaSignature struct {
	RequestID *uuid.UUID
	Signature []byte
	PublicKey []byte
}

func NewSolanaSignature(signature []byte, requestID *uuid.UUID) SolanaSignature {
	return SolanaSignature{RequestID: requestID, Signature: cloneBytes(signature)}
}

func (s SolanaSignature) WithPublicKey(publicKey []byte) SolanaSignature {
	s.PublicKey = cloneBytes(publicKey)
	return s
}

type solanaSignatureWire struct {
	RequestID *cbor.Tag `cbor:"1,keyasint,omitempty"`
	Signature []byte    `cbor:"2,keyasint"`
	PublicKey *[]byte   `cbor:"3,keyasint,omitempty"`
}

func (s SolanaSignature) ToWire() ([]byte, error) {
	return codec.Marshal(codec.Tagged(codec.TagSolSignature, solanaSignatureWire{
		RequestID: codec.UUIDTag(s.RequestID),
		Signature: s.Signature,
		PublicKey: optBytes(s.PublicKey),
	}))
}

func SolanaSignatureFromWire(data []byte) (SolanaSignature, error) {
	fields, err := codec.DecodeMap(data, codec.TagSolSignature, solanaSignatureType)
	if err != nil {
		return SolanaSignature{}, err
	}

	var s SolanaSignature
	if s.RequestID, err = fields.OptUUID(1, "request_id"); err != nil {
		return SolanaSignature{}, err
	}
	if s.Signature, err = fields.Bytes(2, "signature"); err != nil {
		return SolanaSignature{}, err
	}
	if s.PublicKey, err = fields.OptBytes(3, "public_key"); err != nil {
		return SolanaSignature{}, err
	}
	return s, nil
}
