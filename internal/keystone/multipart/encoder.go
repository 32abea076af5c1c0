package multipart

import (
	"time"

	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/goatnetwork/qlink/internal/keystone/envelope"
)

const (
	// DefaultMaxFragmentLen keeps each frame within a QR code that phone and
	// hardware cameras read reliably.
	DefaultMaxFragmentLen = 400
	// RecommendedFrameDelay is the display time per animated QR frame.
	RecommendedFrameDelay = 150 * time.Millisecond
)

// EncodeResult is one frame of an outbound transmission.
type EncodeResult struct {
	URString string `json:"ur"`
	// PartNumber is 1-based.
	PartNumber  int  `json:"part_number"`
	TotalParts  int  `json:"total_parts"`
	IsMultipart bool `json:"is_multipart"`
}

// Encoder holds every fragment of one payload, generated up front, and hands
// them out cyclically for animated display.
type Encoder struct {
	parts  []string
	cursor int
}

func NewEncoder(typeName string, data []byte, maxFragmentLen int) (*Encoder, error) {
	parts, _, err := envelope.EncodeFragments(typeName, data, maxFragmentLen)
	if err != nil {
		return nil, err
	}
	return &Encoder{parts: parts}, nil
}

// NewPayloadEncoder encodes an already serialized payload.
func NewPayloadEncoder(p keystone.Payload, maxFragmentLen int) (*Encoder, error) {
	return NewEncoder(p.Type, p.Data, maxFragmentLen)
}

func (e *Encoder) IsMultipart() bool {
	return len(e.parts) > 1
}

func (e *Encoder) PartCount() int {
	return len(e.parts)
}

// NextPart returns the fragment under the cursor and advances it, wrapping
// after the last one.
func (e *Encoder) NextPart() EncodeResult {
	r := e.result(e.cursor)
	e.cursor = (e.cursor + 1) % len(e.parts)
	return r
}

// PartAt returns fragment i (0-based) without moving the cursor.
func (e *Encoder) PartAt(i int) (EncodeResult, bool) {
	if i < 0 || i >= len(e.parts) {
		return EncodeResult{}, false
	}
	return e.result(i), true
}

func (e *Encoder) AllParts() []string {
	return append([]string(nil), e.parts...)
}

// Reset rewinds the cursor; fragments are not regenerated.
func (e *Encoder) Reset() {
	e.cursor = 0
}

func (e *Encoder) result(i int) EncodeResult {
	return EncodeResult{
		URString:    e.parts[i],
		PartNumber:  i + 1,
		TotalParts:  len(e.parts),
		IsMultipart: e.IsMultipart(),
	}
}
