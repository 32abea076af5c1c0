package http

import (
	"github.com/goatnetwork/qlink/internal/keystone/multipart"
)

// FragmentRequest carries one fragment, or a batch in scan order.
type FragmentRequest struct {
	Fragment  string   `json:"fragment"`
	Fragments []string `json:"fragments"`
}

type RejectedFragment struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type FragmentResponse struct {
	Progress multipart.Progress       `json:"progress"`
	Message  string                   `json:"message"`
	Accepted int                      `json:"accepted"`
	Rejected []RejectedFragment       `json:"rejected,omitempty"`
	Payloads []map[string]interface{} `json:"payloads,omitempty"`
}

type SessionResponse struct {
	Progress  multipart.Progress     `json:"progress"`
	Message   string                 `json:"message"`
	Last      map[string]interface{} `json:"last"`
	DecodedAt *int64                 `json:"decoded_at"`
}

// EncodeRequest asks for the fragments of a message. MaxFragmentLen falls
// back to the configured length when zero.
type EncodeRequest struct {
	URType         string `json:"ur_type" binding:"required"`
	DataHex        string `json:"data_hex" binding:"required"`
	MaxFragmentLen int    `json:"max_fragment_len"`
}

type EncodeResponse struct {
	URType       string   `json:"ur_type"`
	IsMultipart  bool     `json:"is_multipart"`
	TotalParts   int      `json:"total_parts"`
	FrameDelayMs int64    `json:"frame_delay_ms"`
	Parts        []string `json:"parts"`
}
