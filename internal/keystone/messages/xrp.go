package messages

import (
	"encoding/hex"
	"encoding/json"

	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/google/uuid"
)

const (
	xrpSignRequestType = "xrp-sign-request"
	xrpSignatureType   = "xrp-signature"
)

// XrpSignRequest is the only request carried as JSON rather than CBOR.
// DerivationPath stays textual, e.g. "m/44'/144'/0'/0/0".
type XrpSignRequest struct {
	RequestID       *uuid.UUID `json:"request_id,omitempty"`
	TransactionJSON string     `json:"transaction_json"`
	DerivationPath  string     `json:"derivation_path"`
	Origin          *string    `json:"origin,omitempty"`
}

func NewXrpSignRequest(transactionJSON, derivationPath string, requestID *uuid.UUID) XrpSignRequest {
	return XrpSignRequest{
		RequestID:       requestID,
		TransactionJSON: transactionJSON,
		DerivationPath:  derivationPath,
	}
}

func (r XrpSignRequest) WithOrigin(origin string) XrpSignRequest {
	r.Origin = &origin
	return r
}

func (r XrpSignRequest) ToWire() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, codec.WrapCodec(err, "%s: json encode failed", xrpSignRequestType)
	}
	return data, nil
}

func XrpSignRequestFromWire(data []byte) (XrpSignRequest, error) {
	var wire struct {
		RequestID       *uuid.UUID `json:"request_id"`
		TransactionJSON *string    `json:"transaction_json"`
		DerivationPath  *string    `json:"derivation_path"`
		Origin          *string    `json:"origin"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return XrpSignRequest{}, codec.WrapCodec(err, "%s: json decode failed", xrpSignRequestType)
	}
	if wire.TransactionJSON == nil {
		return XrpSignRequest{}, codec.MissingField(xrpSignRequestType, "transaction_json")
	}
	if wire.DerivationPath == nil {
		return XrpSignRequest{}, codec.MissingField(xrpSignRequestType, "derivation_path")
	}
	return XrpSignRequest{
		RequestID:       wire.RequestID,
		TransactionJSON: *wire.TransactionJSON,
		DerivationPath:  *wire.DerivationPath,
		Origin:          wire.Origin,
	}, nil
}

// XrpSignature carries the signature as a hex string.
type XrpSignature struct {
	RequestID *uuid.UUID `json:"request_id,omitempty"`
	Signature string     `json:"signature"`
}

func NewXrpSignature(requestID *uuid.UUID, signature string) XrpSignature {
	return XrpSignature{RequestID: requestID, Signature: signature}
}

// SignatureBytes decodes the hex signature.
func (s XrpSignature) SignatureBytes() ([]byte, error) {
	b, err := hex.DecodeString(s.Signature)
	if err != nil {
		return nil, codec.Validationf("%s: invalid signature hex: %v", xrpSignatureType, err)
	}
	return b, nil
}

func (s XrpSignature) ToWire() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, codec.WrapCodec(err, "%s: json encode failed", xrpSignatureType)
	}
	return data, nil
}

func XrpSignatureFromWire(data []byte) (XrpSignature, error) {
	var wire struct {
		RequestID *uuid.UUID `json:"request_id"`
		Signature *string    `json:"signature"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return XrpSignature{}, codec.WrapCodec(err, "%s: json decode failed", xrpSignatureType)
	}
	if wire.Signature == nil {
		return XrpSignature{}, codec.MissingField(xrpSignatureType, "signature")
	}
	return XrpSignature{RequestID: wire.RequestID, Signature: *wire.Signature}, nil
}
