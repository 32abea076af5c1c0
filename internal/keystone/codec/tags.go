package codec

// CBOR tags used by the Keystone UR registry.
const (
	TagUUID           uint64 = 37
	TagDerivationPath uint64 = 304
	TagCoinInfo       uint64 = 305
	TagECKey          uint64 = 306
	TagOutput         uint64 = 308
	TagCryptoAccount  uint64 = 311

	TagEthSignRequest uint64 = 401
	TagEthSignature   uint64 = 402

	TagSolSignRequest uint64 = 1101
	TagSolSignature   uint64 = 1102

	TagStellarSignRequest uint64 = 8201
	TagStellarSignature   uint64 = 8202

	// vendor range, Hedera messages travel untagged on the wire
	TagHederaSignRequest uint64 = 9001
	TagHederaSignature   uint64 = 9002
)
