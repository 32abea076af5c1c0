// Package render turns decoded payloads into JSON documents for socket and
// API consumers and into indented lines for the terminal.
package render

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/google/uuid"
)

const (
	maxHexChars  = 64
	maxTextChars = 120
)

type Rendered struct {
	JSON  map[string]interface{}
	Human []string
}

func Render(p keystone.Payload) Rendered {
	return Rendered{JSON: PayloadJSON(p), Human: humanLines(p)}
}

// PayloadJSON is the structured form of a payload. A body that fails to
// decode is reported under message_error instead of message.
func PayloadJSON(p keystone.Payload) map[string]interface{} {
	root := map[string]interface{}{
		"ur_type":     p.Type,
		"encoding":    p.Encoding.String(),
		"byte_length": len(p.Data),
		"bytes_hex":   hex.EncodeToString(p.Data),
		"metadata": map[string]interface{}{
			"multipart":   p.Metadata.Multipart,
			"sequence":    p.Metadata.Sequence,
			"total_parts": p.Metadata.TotalParts,
		},
	}
	m, err := p.Message()
	if err != nil {
		root["message_error"] = err.Error()
		return root
	}
	root["message_variant"] = m.Variant()
	root["message"] = messageJSON(m)
	return root
}

func requestID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func optString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func optHex(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return hex.EncodeToString(b)
}

func messageJSON(m keystone.Message) map[string]interface{} {
	switch v := m.(type) {
	case keystone.CryptoAccount:
		return map[string]interface{}{
			"master_fingerprint": fmt.Sprintf("%08x", v.FingerprintUint32()),
			"derivation_path":    v.KeyPath.String(),
			"public_key_hex":     hex.EncodeToString(v.PublicKey),
			"public_key_bytes":   len(v.PublicKey),
			"chain_code_hex":     optHex(v.ChainCode),
		}
	case keystone.EthSignRequest:
		var chainID interface{}
		if v.ChainID != nil {
			chainID = json.Number(v.ChainID.String())
		}
		var address interface{}
		if v.Address != nil {
			address = v.AddressHex()
		}
		return map[string]interface{}{
			"request_id":      requestID(v.RequestID),
			"derivation_path": v.DerivationPath.String(),
			"chain_id":        chainID,
			"data_type":       v.DataType.String(),
			"origin":          optString(v.Origin),
			"address_hex":     address,
			"sign_data_hex":   hex.EncodeToString(v.SignData),
			"sign_data_bytes": len(v.SignData),
		}
	case keystone.EthSignature:
		out := map[string]interface{}{
			"request_id":      requestID(v.RequestID),
			"origin":          optString(v.Origin),
			"signature_hex":   hex.EncodeToString(v.Signature),
			"signature_bytes": len(v.Signature),
			"r":               nil,
			"s":               nil,
			"v":               nil,
		}
		if r, s, rv, err := v.RSV(); err == nil {
			out["r"] = hex.EncodeToString(r[:])
			out["s"] = hex.EncodeToString(s[:])
			out["v"] = fmt.Sprintf("%02x", rv)
		}
		return out
	case keystone.HederaSignRequest:
		return map[string]interface{}{
			"request_id":        requestID(v.RequestID),
			"derivation_path":   v.DerivationPath.String(),
			"account_id":        optString(v.AccountID),
			"origin":            optString(v.Origin),
			"transaction_hex":   hex.EncodeToString(v.TransactionBytes),
			"transaction_bytes": len(v.TransactionBytes),
		}
	case keystone.HederaSignature:
		return map[string]interface{}{
			"request_id":      requestID(v.RequestID),
			"signature_hex":   hex.EncodeToString(v.Signature),
			"signature_bytes": len(v.Signature),
			"public_key_hex":  optHex(v.PublicKey),
		}
	case keystone.SolanaSignRequest:
		return map[string]interface{}{
			"request_id":        requestID(v.RequestID),
			"derivation_path":   v.DerivationPath.String(),
			"origin":            optString(v.Origin),
			"transaction_hex":   hex.EncodeToString(v.Transaction),
			"transaction_bytes": len(v.Transaction),
		}
	case keystone.SolanaSignature:
		return map[string]interface{}{
			"request_id":      requestID(v.RequestID),
			"signature_hex":   hex.EncodeToString(v.Signature),
			"signature_bytes": len(v.Signature),
			"public_key_hex":  optHex(v.PublicKey),
		}
	case keystone.StellarSignRequest:
		return map[string]interface{}{
			"request_id":      requestID(v.RequestID),
			"derivation_path": v.DerivationPath.String(),
			"sign_type":       v.SignType.String(),
			"origin":          optString(v.Origin),
			"address_hex":     optHex(v.Address),
			"sign_data_hex":   hex.EncodeToString(v.SignData),
			"sign_data_bytes": len(v.SignData),
		}
	case keystone.StellarSignature:
		return map[string]interface{}{
			"request_id":      requestID(v.RequestID),
			"signature_hex":   hex.EncodeToString(v.Signature),
			"signature_bytes": len(v.Signature),
		}
	case keystone.XrpSignRequest:
		var tx interface{} = v.TransactionJSON
		var parsed interface{}
		if err := json.Unmarshal([]byte(v.TransactionJSON), &parsed); err == nil {
			tx = parsed
		}
		return map[string]interface{}{
			"request_id":      requestID(v.RequestID),
			"derivation_path": v.DerivationPath,
			"origin":          optString(v.Origin),
			"transaction":     tx,
		}
	case keystone.XrpSignature:
		return map[string]interface{}{
			"request_id": requestID(v.RequestID),
			"signature":  v.Signature,
		}
	case keystone.Unknown:
		return map[string]interface{}{
			"ur_type":    v.Type,
			"data_hex":   hex.EncodeToString(v.Data),
			"data_bytes": len(v.Data),
		}
	}
	return nil
}

// HexSnippet shows at most 64 hex characters followed by the byte count.
func HexSnippet(b []byte) string {
	if len(b) == 0 {
		return "empty"
	}
	s := hex.EncodeToString(b)
	if len(s) > maxHexChars {
		return fmt.Sprintf("%s... (%d bytes)", s[:maxHexChars], len(b))
	}
	return fmt.Sprintf("%s (%d bytes)", s, len(b))
}

// TextSnippet caps text at 120 characters.
func TextSnippet(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= maxTextChars {
		return s
	}
	return fmt.Sprintf("%s... (%d chars)", string([]rune(s)[:maxTextChars]), n)
}
