package render

import (
	"encoding/hex"
	"fmt"

	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/google/uuid"
)

func humanLines(p keystone.Payload) []string {
	lines := []string{
		"Keystone payload detected",
		"  UR type: " + p.Type,
		"  Encoding: " + p.Encoding.String(),
	}
	if p.Metadata.Multipart {
		lines = append(lines, fmt.Sprintf("  Multipart: true (part %d of %d)",
			derefUint32(p.Metadata.Sequence), derefUint32(p.Metadata.TotalParts)))
	}
	lines = append(lines, fmt.Sprintf("  Raw bytes: %d", len(p.Data)))

	m, err := p.Message()
	if err != nil {
		return append(lines, "  Failed to decode message: "+err.Error())
	}
	return append(lines, messageLines(m)...)
}

func derefUint32(v *uint32) uint32 {
	if v == nil {
		return 0
	}
	return *v
}

type lineBuilder []string

func (b *lineBuilder) add(label, value string) {
	*b = append(*b, fmt.Sprintf("    %s: %s", label, value))
}

func (b *lineBuilder) opt(label string, value *string) {
	if value != nil {
		b.add(label, *value)
	}
}

func (b *lineBuilder) id(id *uuid.UUID) {
	if id != nil {
		b.add("Request ID", id.String())
	}
}

func (b *lineBuilder) optHex(label string, v []byte) {
	if v != nil {
		b.add(label, HexSnippet(v))
	}
}

func messageLines(m keystone.Message) []string {
	b := lineBuilder{"  Variant: " + m.Variant()}
	switch v := m.(type) {
	case keystone.CryptoAccount:
		b.add("Fingerprint", fmt.Sprintf("%08x", v.FingerprintUint32()))
		b.add("Derivation path", v.KeyPath.String())
		b.add("Public key", HexSnippet(v.PublicKey))
		b.optHex("Chain code", v.ChainCode)
	case keystone.EthSignRequest:
		b.id(v.RequestID)
		b.add("Data type", v.DataType.String())
		if v.ChainID != nil {
			b.add("Chain ID", v.ChainID.String())
		}
		b.add("Derivation path", v.DerivationPath.String())
		if v.Address != nil {
			b.add("Address", v.AddressHex())
		}
		b.opt("Origin", v.Origin)
		b.add("Sign data", HexSnippet(v.SignData))
	case keystone.EthSignature:
		b.id(v.RequestID)
		b.opt("Origin", v.Origin)
		b.add("Signature", HexSnippet(v.Signature))
		if r, s, rv, err := v.RSV(); err == nil {
			b.add("r", hex.EncodeToString(r[:]))
			b.add("s", hex.EncodeToString(s[:]))
			b.add("v", fmt.Sprintf("%02x", rv))
		}
	case keystone.HederaSignRequest:
		b.id(v.RequestID)
		b.add("Derivation path", v.DerivationPath.String())
		b.opt("Account ID", v.AccountID)
		b.opt("Origin", v.Origin)
		b.add("Transaction bytes", HexSnippet(v.TransactionBytes))
	case keystone.HederaSignature:
		b.id(v.RequestID)
		b.add("Signature", HexSnippet(v.Signature))
		b.optHex("Public key", v.PublicKey)
	case keystone.SolanaSignRequest:
		b.id(v.RequestID)
		b.add("Derivation path", v.DerivationPath.String())
		b.opt("Origin", v.Origin)
		b.add("Transaction bytes", HexSnippet(v.Transaction))
	case keystone.SolanaSignature:
		b.id(v.RequestID)
		b.add("Signature", HexSnippet(v.Signature))
		b.optHex("Public key", v.PublicKey)
	case keystone.StellarSignRequest:
		b.id(v.RequestID)
		b.add("Derivation path", v.DerivationPath.String())
		b.add("Sign type", v.SignType.String())
		b.opt("Origin", v.Origin)
		b.optHex("Address", v.Address)
		b.add("Sign data", HexSnippet(v.SignData))
	case keystone.StellarSignature:
		b.id(v.RequestID)
		b.add("Signature", HexSnippet(v.Signature))
	case keystone.XrpSignRequest:
		b.id(v.RequestID)
		b.add("Derivation path", v.DerivationPath)
		b.opt("Origin", v.Origin)
		b.add("Transaction JSON", TextSnippet(v.TransactionJSON))
	case keystone.XrpSignature:
		b.id(v.RequestID)
		b.add("Signature", v.Signature)
	case keystone.Unknown:
		b[0] = fmt.Sprintf("  Variant: unknown (%s)", v.Type)
		b.add("Raw bytes", HexSnippet(v.Data))
	}
	return b
}
