// Package multipart reassembles payloads from streams of UR fragments and
// splits outbound payloads into cyclic animated-QR frames.
package multipart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/goatnetwork/qlink/internal/keystone/envelope"
	"github.com/goatnetwork/qlink/internal/ur"
)

var ErrNotComplete = errors.New("decoding not complete")

// Progress is a snapshot of a decoding session. TotalParts is nil for
// fountain-coded streams: redundant parts make the count open-ended.
type Progress struct {
	PartsReceived int   `json:"parts_received"`
	TotalParts    *int  `json:"total_parts"`
	Percentage    uint8 `json:"percentage"`
	Complete      bool  `json:"complete"`
}

func (p Progress) Message() string {
	switch {
	case p.Complete:
		return "Complete!"
	case p.TotalParts != nil:
		return fmt.Sprintf("Received %d/%d parts (%d%%)", p.PartsReceived, *p.TotalParts, p.Percentage)
	default:
		return fmt.Sprintf("Received %d parts...", p.PartsReceived)
	}
}

// Decoder accumulates fragments for one scan session. It is not safe for
// concurrent use.
type Decoder struct {
	received map[string]struct{}
	// first is kept for the sequence metadata of the result.
	first  string
	single *keystone.Payload
	ur     *ur.Decoder
}

func NewDecoder() *Decoder {
	return &Decoder{
		received: make(map[string]struct{}),
		ur:       ur.NewDecoder(),
	}
}

// Receive feeds one fragment. Fragments are deduplicated by exact text; a
// repeat returns the current progress unchanged.
func (d *Decoder) Receive(fragment string) (Progress, error) {
	if _, seen := d.received[fragment]; seen {
		return d.Progress(), nil
	}
	if d.IsComplete() {
		return d.Progress(), nil
	}

	if len(d.received) == 0 {
		if p, err := envelope.Decode(fragment); err == nil {
			d.received[fragment] = struct{}{}
			d.first = fragment
			d.single = &p
			return d.Progress(), nil
		}
	}

	if err := d.ur.Receive(fragment); err != nil {
		return d.Progress(), codec.WrapEnvelope(err, "receive fragment")
	}
	if len(d.received) == 0 {
		d.first = fragment
	}
	d.received[fragment] = struct{}{}
	return d.Progress(), nil
}

func (d *Decoder) Progress() Progress {
	if d.single != nil {
		total := 1
		return Progress{PartsReceived: 1, TotalParts: &total, Percentage: 100, Complete: true}
	}
	return Progress{
		PartsReceived: len(d.received),
		Percentage:    d.ur.Progress(),
		Complete:      d.ur.Complete(),
	}
}

func (d *Decoder) IsComplete() bool {
	return d.single != nil || d.ur.Complete()
}

// Result returns the assembled payload once the session is complete.
func (d *Decoder) Result() (keystone.Payload, error) {
	if d.single != nil {
		return *d.single, nil
	}
	if !d.ur.Complete() {
		return keystone.Payload{}, ErrNotComplete
	}
	data, err := d.ur.Message()
	if err != nil {
		return keystone.Payload{}, codec.WrapEnvelope(err, "assemble message")
	}

	typeName := d.ur.Type()
	meta := keystone.Metadata{Multipart: true}
	meta.Sequence, meta.TotalParts = parseFragmentMetadata(d.first)
	return keystone.Payload{
		Type:     typeName,
		Data:     data,
		Metadata: meta,
		Encoding: keystone.EncodingFor(typeName),
	}, nil
}

// Reset discards all state for a new session.
func (d *Decoder) Reset() {
	d.received = make(map[string]struct{})
	d.first = ""
	d.single = nil
	d.ur = ur.NewDecoder()
}

// parseFragmentMetadata reads the index segment of a fragment such as
// "ur:type/3-10/..." or "ur:type/3OF10/...". Anything else yields nil values.
func parseFragmentMetadata(fragment string) (seq, total *uint32) {
	segments := strings.Split(strings.ToLower(fragment), "/")
	if len(segments) < 3 {
		return nil, nil
	}
	index := segments[1]
	a, b, ok := strings.Cut(index, "of")
	if !ok {
		a, b, ok = strings.Cut(index, "-")
	}
	if !ok {
		return nil, nil
	}
	return parseIndex(a), parseIndex(b)
}

func parseIndex(s string) *uint32 {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return nil
	}
	v := uint32(n)
	return &v
}
