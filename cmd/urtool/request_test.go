package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/goatnetwork/qlink/internal/keystone/multipart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name    string
		params  requestParams
		variant string
	}{
		{"eth legacy", requestParams{Chain: "eth", Data: "f86c0a85", ChainID: 1}, "eth_sign_request"},
		{"eth typed", requestParams{Chain: "eth", Data: "0x02f8", ChainID: 5, Origin: "urtool"}, "eth_sign_request"},
		{"sol", requestParams{Chain: "sol", Data: "0102"}, "solana_sign_request"},
		{"hbar", requestParams{Chain: "hbar", Data: "0a0b", Path: "m/44'/3030'/0'/0'/1'"}, "hedera_sign_request"},
		{"stellar", requestParams{Chain: "stellar", Data: "00"}, "stellar_sign_request"},
		{"xrp", requestParams{Chain: "xrp", Data: `{"TransactionType":"Payment"}`}, "xrp_sign_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := buildRequest(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.variant, msg.Variant())

			payload, err := keystone.EncodeMessage(msg)
			require.NoError(t, err)
			decoded, err := payload.Message()
			require.NoError(t, err)
			assert.Equal(t, tt.variant, decoded.Variant())
		})
	}
}

func TestBuildRequestErrors(t *testing.T) {
	for _, p := range []requestParams{
		{Chain: "doge", Data: "00"},
		{Chain: "eth", Data: "zz"},
		{Chain: "eth", Data: ""},
		{Chain: "sol", Data: "00", Path: "x/1"},
		{Chain: "xrp", Data: " "},
	} {
		_, err := buildRequest(p)
		assert.Error(t, err, "%+v", p)
	}
}

func TestDecodeFragments(t *testing.T) {
	msg, err := buildRequest(requestParams{Chain: "sol", Data: strings.Repeat("ab", 400)})
	require.NoError(t, err)
	payload, err := keystone.EncodeMessage(msg)
	require.NoError(t, err)
	enc, err := multipart.NewPayloadEncoder(payload, 200)
	require.NoError(t, err)
	require.True(t, enc.IsMultipart())

	path := filepath.Join(t.TempDir(), "frames.txt")
	lines := append([]string{"# frames", "garbage"}, enc.AllParts()...)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	assert.NoError(t, decodeFragments(path, true))

	incomplete := filepath.Join(t.TempDir(), "partial.txt")
	require.NoError(t, os.WriteFile(incomplete, []byte(enc.AllParts()[0]), 0o600))
	assert.ErrorIs(t, decodeFragments(incomplete, false), multipart.ErrNotComplete)
}
