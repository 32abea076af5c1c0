// Package ur implements the Uniform Resource text envelope used by airgapped
// wallets: minimal bytewords with a CRC32 trailer, and the fountain-coded
// multi-part form used for animated QR codes.
package ur

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotUR              = errors.New("not a UR string")
	ErrInvalidFormat      = errors.New("invalid UR format")
	ErrInvalidType        = errors.New("invalid UR type")
	ErrInvalidBytewords   = errors.New("invalid bytewords")
	ErrInvalidChecksum    = errors.New("invalid checksum")
	ErrInvalidSequence    = errors.New("invalid sequence component")
	ErrInvalidPart        = errors.New("invalid multi-part fragment")
	ErrInconsistentPart   = errors.New("fragment does not match the current message")
	ErrTypeMismatch       = errors.New("fragment UR type does not match the current message")
	ErrNotComplete        = errors.New("message not complete")
	ErrEmptyMessage       = errors.New("empty message")
	ErrInvalidFragmentLen = errors.New("max fragment length must be positive")
	ErrMessageTooLarge    = errors.New("message exceeds the multi-part size limit")
)

const scheme = "ur:"

// Kind tells a self-contained UR from one fragment of a multi-part message.
type Kind int

const (
	SinglePart Kind = iota
	MultiPart
)

func (k Kind) String() string {
	if k == MultiPart {
		return "multi-part"
	}
	return "single-part"
}

// ValidType reports whether s is a legal UR type: lowercase letters, digits
// and hyphens.
func ValidType(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// Parsed is the textual structure of a UR string before bytewords decoding.
type Parsed struct {
	Type string
	// Seq is the "n-m" segment of a multi-part fragment, empty otherwise.
	Seq  string
	Body string
}

// Parse splits text into type, optional sequence and body. UR strings are
// case-insensitive; the result is lowercased.
func Parse(text string) (Parsed, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(lower, scheme) {
		return Parsed{}, ErrNotUR
	}
	segments := strings.Split(lower[len(scheme):], "/")
	if segments[0] == "" {
		return Parsed{}, ErrInvalidFormat
	}
	if !ValidType(segments[0]) {
		return Parsed{}, ErrInvalidType
	}
	switch len(segments) {
	case 2:
		return Parsed{Type: segments[0], Body: segments[1]}, nil
	case 3:
		return Parsed{Type: segments[0], Seq: segments[1], Body: segments[2]}, nil
	default:
		return Parsed{}, ErrInvalidFormat
	}
}

// ParseSequence reads an "n-m" sequence segment.
func ParseSequence(seq string) (n, m uint32, err error) {
	a, b, ok := strings.Cut(seq, "-")
	if !ok {
		return 0, 0, ErrInvalidSequence
	}
	na, err := strconv.ParseUint(a, 10, 32)
	if err != nil {
		return 0, 0, ErrInvalidSequence
	}
	nb, err := strconv.ParseUint(b, 10, 32)
	if err != nil || na == 0 || nb == 0 {
		return 0, 0, ErrInvalidSequence
	}
	return uint32(na), uint32(nb), nil
}

// Encode renders data as a single-part UR of the given type.
func Encode(data []byte, typeName string) (string, error) {
	if !ValidType(typeName) {
		return "", ErrInvalidType
	}
	return scheme + typeName + "/" + EncodeBytewords(data), nil
}

// Decode decodes one UR string. For a single-part UR the returned bytes are
// the message; for a multi-part fragment they are the fountain part's CBOR.
func Decode(text string) (Kind, string, []byte, error) {
	p, err := Parse(text)
	if err != nil {
		return 0, "", nil, err
	}
	kind := SinglePart
	if p.Seq != "" {
		if _, _, err := ParseSequence(p.Seq); err != nil {
			return 0, "", nil, err
		}
		kind = MultiPart
	}
	data, err := DecodeBytewords(p.Body)
	if err != nil {
		return 0, "", nil, err
	}
	return kind, p.Type, data, nil
}

// Encoder emits an unbounded stream of multi-part fragments for one message.
// The first FragmentCount parts carry the plain fragments in order; later
// parts are XOR mixes that let a receiver recover from missed frames.
type Encoder struct {
	typeName string
	fountain *fountainEncoder
}

func NewEncoder(data []byte, typeName string, maxFragmentLen int) (*Encoder, error) {
	if !ValidType(typeName) {
		return nil, ErrInvalidType
	}
	f, err := newFountainEncoder(data, maxFragmentLen)
	if err != nil {
		return nil, err
	}
	return &Encoder{typeName: typeName, fountain: f}, nil
}

func (e *Encoder) FragmentCount() int {
	return e.fountain.seqLen()
}

// SeqNum is the sequence number of the last emitted part, 0 before the first.
func (e *Encoder) SeqNum() uint32 {
	return e.fountain.seqNum
}

func (e *Encoder) NextPart() (string, error) {
	p := e.fountain.nextPart()
	body, err := p.marshal()
	if err != nil {
		return "", fmt.Errorf("encode part %d: %w", p.SeqNum, err)
	}
	return fmt.Sprintf("%s%s/%d-%d/%s", scheme, e.typeName, p.SeqNum, p.SeqLen, EncodeBytewords(body)), nil
}

// Decoder reassembles a message from UR fragments received in any order.
// A single-part UR completes it at once.
type Decoder struct {
	typeName string
	fountain *fountainDecoder
	single   []byte
}

func NewDecoder() *Decoder {
	return &Decoder{fountain: newFountainDecoder()}
}

// Receive feeds one UR string. Fragments after completion are ignored.
func (d *Decoder) Receive(text string) error {
	if d.Complete() {
		return nil
	}
	kind, typeName, data, err := Decode(text)
	if err != nil {
		return err
	}
	if d.typeName != "" && d.typeName != typeName {
		return ErrTypeMismatch
	}
	if kind == SinglePart {
		d.typeName = typeName
		d.single = data
		return nil
	}
	p, err := unmarshalPart(data)
	if err != nil {
		return err
	}
	if err := d.fountain.receive(p); err != nil {
		return err
	}
	d.typeName = typeName
	return nil
}

func (d *Decoder) Complete() bool {
	return d.single != nil || d.fountain.complete()
}

// Progress estimates completion from 0 to 100.
func (d *Decoder) Progress() uint8 {
	if d.single != nil {
		return 100
	}
	return d.fountain.progress()
}

// Type is the UR type of the fragments seen so far.
func (d *Decoder) Type() string {
	return d.typeName
}

// Message returns the reassembled message once Complete reports true.
func (d *Decoder) Message() ([]byte, error) {
	switch {
	case d.single != nil:
		return d.single, nil
	case d.fountain.err != nil:
		return nil, d.fountain.err
	case d.fountain.result != nil:
		return d.fountain.result, nil
	default:
		return nil, ErrNotComplete
	}
}
