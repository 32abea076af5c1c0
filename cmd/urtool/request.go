package main

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/goatnetwork/qlink/internal/keystone/keypath"
	"github.com/goatnetwork/qlink/internal/keystone/messages"
)

var defaultPaths = map[string]string{
	"eth":     "m/44'/60'/0'/0/0",
	"sol":     "m/44'/501'/0'/0'",
	"hbar":    "m/44'/3030'/0'/0'/0'",
	"stellar": "m/44'/148'/0'",
	"xrp":     "m/44'/144'/0'/0/0",
}

type requestParams struct {
	Chain   string
	Data    string
	Path    string
	ChainID int64
	Origin  string
}

// buildRequest turns command line input into a sign request. Data is hex
// except for xrp, where it is the transaction JSON.
func buildRequest(p requestParams) (keystone.Message, error) {
	pathText := p.Path
	if pathText == "" {
		var ok bool
		if pathText, ok = defaultPaths[p.Chain]; !ok {
			return nil, fmt.Errorf("unsupported chain %q, expected eth, sol, hbar, stellar or xrp", p.Chain)
		}
	}

	if p.Chain == "xrp" {
		if strings.TrimSpace(p.Data) == "" {
			return nil, fmt.Errorf("xrp transaction JSON is required")
		}
		req := messages.NewXrpSignRequest(p.Data, pathText, messages.NewRequestID())
		if p.Origin != "" {
			req = req.WithOrigin(p.Origin)
		}
		return keystone.XrpSignRequest{XrpSignRequest: req}, nil
	}

	data, err := hex.DecodeString(strings.TrimPrefix(p.Data, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid data hex: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("sign data is required")
	}
	path, err := keypath.Parse(pathText)
	if err != nil {
		return nil, fmt.Errorf("invalid derivation path: %w", err)
	}

	switch p.Chain {
	case "eth":
		// EIP-2718 envelopes start with the type byte, legacy RLP with a list prefix.
		req := messages.NewEthTransaction(data, path, big.NewInt(p.ChainID))
		if data[0] <= 0x7f {
			req = messages.NewEthTypedTransaction(data, path, big.NewInt(p.ChainID))
		}
		if p.Origin != "" {
			req = req.WithOrigin(p.Origin)
		}
		return keystone.EthSignRequest{EthSignRequest: req}, nil
	case "sol":
		req := messages.NewSolanaSignRequest(data, path, messages.NewRequestID())
		if p.Origin != "" {
			req = req.WithOrigin(p.Origin)
		}
		return keystone.SolanaSignRequest{SolanaSignRequest: req}, nil
	case "hbar":
		req := messages.NewHederaSignRequest(data, path, messages.NewRequestID())
		if p.Origin != "" {
			req = req.WithOrigin(p.Origin)
		}
		return keystone.HederaSignRequest{HederaSignRequest: req}, nil
	case "stellar":
		req := messages.NewStellarTransaction(data, path, messages.NewRequestID())
		if p.Origin != "" {
			req = req.WithOrigin(p.Origin)
		}
		return keystone.StellarSignRequest{StellarSignRequest: req}, nil
	default:
		return nil, fmt.Errorf("unsupported chain %q, expected eth, sol, hbar, stellar or xrp", p.Chain)
	}
}
