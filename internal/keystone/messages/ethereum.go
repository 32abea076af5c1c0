package messages

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fxamacker/cbor/v2"
	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/goatnetwork/qlink/internal/keystone/keypath"
	"github.com/google/uuid"
)

const (
	ethSignRequestType = "eth-sign-request"
	ethSignatureType   = "eth-signature"

	// EthSignatureLength is r(32) || s(32) || v(1).
	EthSignatureLength = 65
)

type EthDataType uint8

const (
	EthTransaction      EthDataType = 1 // legacy RLP transaction
	EthTypedData        EthDataType = 2 // EIP-712
	EthPersonalMessage  EthDataType = 3
	EthTypedTransaction EthDataType = 4 // EIP-2718
)

func ParseEthDataType(v uint64) (EthDataType, error) {
	if v < uint64(EthTransaction) || v > uint64(EthTypedTransaction) {
		return 0, codec.Validationf("invalid eth data type: %d", v)
	}
	return EthDataType(v), nil
}

func (t EthDataType) String() string {
	switch t {
	case EthTransaction:
		return "transaction"
	case EthTypedData:
		return "typed_data"
	case EthPersonalMessage:
		return "personal_message"
	case EthTypedTransaction:
		return "typed_transaction"
	default:
		return "unknown"
	}
}

type EthSignRequest struct {
	RequestID      *uuid.UUID
	SignData       []byte
	DataType       EthDataType
	ChainID        *big.Int
	DerivationPath keypath.Path
	Address        []byte
	Origin         *string
}

func newEthSignRequest(data []byte, dataType EthDataType, path keypath.Path, chainID *big.Int) EthSignRequest {
	r := EthSignRequest{
		RequestID:      NewRequestID(),
		SignData:       cloneBytes(data),
		DataType:       dataType,
		DerivationPath: path,
	}
	if chainID != nil {
		r.ChainID = new(big.Int).Set(chainID)
	}
	return r
}

// NewEthTransaction requests a signature over a legacy RLP encoded transaction.
func NewEthTransaction(data []byte, path keypath.Path, chainID *big.Int) EthSignRequest {
	return newEthSignRequest(data, EthTransaction, path, chainID)
}

// NewEthTypedTransaction requests a signature over an EIP-2718 typed transaction.
func NewEthTypedTransaction(data []byte, path keypath.Path, chainID *big.Int) EthSignRequest {
	return newEthSignRequest(data, EthTypedTransaction, path, chainID)
}

// NewEthTypedData requests a signature over EIP-712 typed data.
func NewEthTypedData(data []byte, path keypath.Path, chainID *big.Int) EthSignRequest {
	return newEthSignRequest(data, EthTypedData, path, chainID)
}

// NewEthPersonalMessage requests a personal_sign signature. No chain id is attached.
func NewEthPersonalMessage(data []byte, path keypath.Path) EthSignRequest {
	return newEthSignRequest(data, EthPersonalMessage, path, nil)
}

func (r EthSignRequest) WithRequestID(id uuid.UUID) EthSignRequest {
	r.RequestID = &id
	return r
}

func (r EthSignRequest) WithOrigin(origin string) EthSignRequest {
	r.Origin = &origin
	return r
}

func (r EthSignRequest) WithAddress(address []byte) EthSignRequest {
	r.Address = cloneBytes(address)
	return r
}

// AddressHex renders the address with an EIP-55 checksum when it is 20 bytes long.
func (r EthSignRequest) AddressHex() string {
	if len(r.Address) == common.AddressLength {
		return common.BytesToAddress(r.Address).Hex()
	}
	return hexutil.Encode(r.Address)
}

type ethSignRequestWire struct {
	RequestID      *cbor.Tag    `cbor:"1,keyasint,omitempty"`
	SignData       []byte       `cbor:"2,keyasint"`
	DataType       uint8        `cbor:"3,keyasint"`
	ChainID        interface{}  `cbor:"4,keyasint,omitempty"`
	DerivationPath keypath.Path `cbor:"5,keyasint"`
	Address        *[]byte      `cbor:"6,keyasint,omitempty"`
	Origin         *string      `cbor:"7,keyasint,omitempty"`
}

func (r EthSignRequest) ToWire() ([]byte, error) {
	if _, err := ParseEthDataType(uint64(r.DataType)); err != nil {
		return nil, err
	}
	chainID, err := codec.IntValue(r.ChainID)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(codec.Tagged(codec.TagEthSignRequest, ethSignRequestWire{
		RequestID:      codec.UUIDTag(r.RequestID),
		SignData:       r.SignData,
		DataType:       uint8(r.DataType),
		ChainID:        chainID,
		DerivationPath: r.DerivationPath,
		Address:        optBytes(r.Address),
		Origin:         r.Origin,
	}))
}

func EthSignRequestFromWire(data []byte) (EthSignRequest, error) {
	fields, err := codec.DecodeMap(data, codec.TagEthSignRequest, ethSignRequestType)
	if err != nil {
		return EthSignRequest{}, err
	}

	var r EthSignRequest
	if r.RequestID, err = fields.OptUUID(1, "request_id"); err != nil {
		return EthSignRequest{}, err
	}
	if r.SignData, err = fields.Bytes(2, "sign_data"); err != nil {
		return EthSignRequest{}, err
	}
	dataType, err := fields.Uint(3, "data_type")
	if err != nil {
		return EthSignRequest{}, err
	}
	if r.DataType, err = ParseEthDataType(dataType); err != nil {
		return EthSignRequest{}, err
	}
	if r.ChainID, err = fields.OptInt(4, "chain_id"); err != nil {
		return EthSignRequest{}, err
	}
	if r.DerivationPath, err = decodePath(fields, 5, ethSignRequestType, "derivation_path"); err != nil {
		return EthSignRequest{}, err
	}
	if r.Address, err = fields.OptBytes(6, "address"); err != nil {
		return EthSignRequest{}, err
	}
	if r.Origin, err = fields.OptText(7, "origin"); err != nil {
		return EthSignRequest{}, err
	}
	return r, nil
}

type EthSignature struct {
	RequestID *uuid.UUID
	Signature []byte
	Origin    *string
}

func NewEthSignature(requestID *uuid.UUID, signature []byte) EthSignature {
	return EthSignature{RequestID: requestID, Signature: cloneBytes(signature)}
}

func (sig EthSignature) WithOrigin(origin string) EthSignature {
	sig.Origin = &origin
	return sig
}

// RSV splits the 65 byte signature into its r, s and v parts.
func (sig EthSignature) RSV() (r, s [32]byte, v byte, err error) {
	if len(sig.Signature) != EthSignatureLength {
		return r, s, 0, codec.Validationf("invalid signature length: %d (expected %d)", len(sig.Signature), EthSignatureLength)
	}
	copy(r[:], sig.Signature[:32])
	copy(s[:], sig.Signature[32:64])
	return r, s, sig.Signature[64], nil
}

type ethSignatureWire struct {
	RequestID *cbor.Tag `cbor:"1,keyasint,omitempty"`
	Signature []byte    `cbor:"2,keyasint"`
	Origin    *string   `cbor:"3,keyasint,omitempty"`
}

func (sig EthSignature) ToWire() ([]byte, error) {
	return codec.Marshal(codec.Tagged(codec.TagEthSignature, ethSignatureWire{
		RequestID: codec.UUIDTag(sig.RequestID),
		Signature: sig.Signature,
		Origin:    sig.Origin,
	}))
}

func EthSignatureFromWire(data []byte) (EthSignature, error) {
	fields, err := codec.DecodeMap(data, codec.TagEthSignature, ethSignatureType)
	if err != nil {
		return EthSignature{}, err
	}

	var s EthSignature
	if s.RequestID, err = fields.OptUUID(1, "request_id"); err != nil {
		return EthSignature{}, err
	}
	if s.Signature, err = fields.Bytes(2, "signature"); err != nil {
		return EthSignature{}, err
	}
	if s.Origin, err = fields.OptText(3, "origin"); err != nil {
		return EthSignature{}, err
	}
	return s, nil
}
