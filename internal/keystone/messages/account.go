package messages

import (
	"encoding/binary"

	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/goatnetwork/qlink/internal/keystone/keypath"
)

const cryptoAccountType = "crypto-account"

// CryptoAccount exports a public key together with its master fingerprint and key path.
type CryptoAccount struct {
	MasterFingerprint [4]byte
	PublicKey         []byte
	KeyPath           keypath.Path
	ChainCode         []byte
}

func NewCryptoAccount(fingerprint [4]byte, publicKey []byte, path keypath.Path) CryptoAccount {
	return CryptoAccount{
		MasterFingerprint: fingerprint,
		PublicKey:         cloneBytes(publicKey),
		KeyPath:           path,
	}
}

func (a CryptoAccount) WithChainCode(chainCode []byte) CryptoAccount {
	a.ChainCode = cloneBytes(chainCode)
	return a
}

// FingerprintUint32 is the big-endian integer form used on the wire.
func (a CryptoAccount) FingerprintUint32() uint32 {
	return binary.BigEndian.Uint32(a.MasterFingerprint[:])
}

type cryptoAccountWire struct {
	MasterFingerprint uint32       `cbor:"1,keyasint"`
	PublicKey         []byte       `cbor:"2,keyasint"`
	KeyPath           keypath.Path `cbor:"3,keyasint"`
	ChainCode         *[]byte      `cbor:"4,keyasint,omitempty"`
}

func (a CryptoAccount) ToWire() ([]byte, error) {
	return codec.Marshal(cryptoAccountWire{
		MasterFingerprint: a.FingerprintUint32(),
		PublicKey:         a.PublicKey,
		KeyPath:           a.KeyPath,
		ChainCode:         optBytes(a.ChainCode),
	})
}

func CryptoAccountFromWire(data []byte) (CryptoAccount, error) {
	fields, err := codec.DecodeMap(data, 0, cryptoAccountType)
	if err != nil {
		return CryptoAccount{}, err
	}

	var a CryptoAccount
	fp, ok, err := fields.OptUint(1, "master_fingerprint")
	if err != nil {
		return CryptoAccount{}, err
	}
	if !ok {
		return CryptoAccount{}, codec.MissingField(cryptoAccountType, "master_fingerprint")
	}
	if fp > 0xffffffff {
		return CryptoAccount{}, codec.Validationf("%s: master_fingerprint %d exceeds 32 bits", cryptoAccountType, fp)
	}
	binary.BigEndian.PutUint32(a.MasterFingerprint[:], uint32(fp))

	if a.PublicKey, err = fields.Bytes(2, "public_key"); err != nil {
		return CryptoAccount{}, err
	}
	if a.KeyPath, err = decodePath(fields, 3, cryptoAccountType, "key_path"); err != nil {
		return CryptoAccount{}, err
	}
	if a.ChainCode, err = fields.OptBytes(4, "chain_code"); err != nil {
		return CryptoAccount{}, err
	}
	return a, nil
}

func decodePath(fields *codec.Fields, key uint64, msgType, name string) (keypath.Path, error) {
	raw, err := fields.Raw(key, name)
	if err != nil {
		return keypath.Path{}, err
	}
	p, err := keypath.FromWire(raw)
	if err != nil {
		return keypath.Path{}, codec.InvalidField(msgType, name, err)
	}
	return p, nil
}
