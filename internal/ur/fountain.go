package ur

import (
	"encoding/binary"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/kelindar/bitmap"
)

const (
	// MaxMessageLen bounds the reassembled message of a multi-part UR.
	MaxMessageLen = 1 << 20
	// MaxSeqLen bounds the number of fragments a message is split into.
	MaxSeqLen = 1 << 16
)

// part is one fountain-coded fragment as carried in a multi-part UR.
type part struct {
	_          struct{} `cbor:",toarray"`
	SeqNum     uint32
	SeqLen     uint32
	MessageLen uint32
	Checksum   uint32
	Data       []byte
}

func (p *part) marshal() ([]byte, error) {
	return cborEnc.Marshal(p)
}

func unmarshalPart(data []byte) (*part, error) {
	var p part
	if err := cborDec.Unmarshal(data, &p); err != nil {
		return nil, ErrInvalidPart
	}
	if p.SeqNum == 0 || p.SeqLen == 0 || p.MessageLen == 0 || len(p.Data) == 0 {
		return nil, ErrInvalidPart
	}
	if p.MessageLen > MaxMessageLen || p.SeqLen > MaxSeqLen {
		return nil, ErrMessageTooLarge
	}
	// The header must describe the split the encoder makes: seqLen fragments
	// of len(Data) bytes covering messageLen.
	fragmentLen := uint64(len(p.Data))
	if fragmentLen > uint64(p.MessageLen) ||
		uint64(p.SeqLen) != (uint64(p.MessageLen)+fragmentLen-1)/fragmentLen {
		return nil, ErrInvalidPart
	}
	return &p, nil
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	if cborEnc, err = (cbor.EncOptions{IndefLength: cbor.IndefLengthForbidden}).EncMode(); err != nil {
		panic(err)
	}
	if cborDec, err = (cbor.DecOptions{IndefLength: cbor.IndefLengthForbidden}).DecMode(); err != nil {
		panic(err)
	}
}

// fragmentLength picks the smallest even split of messageLen into fragments of
// at most maxFragmentLen bytes.
func fragmentLength(messageLen, maxFragmentLen int) int {
	count := (messageLen + maxFragmentLen - 1) / maxFragmentLen
	return (messageLen + count - 1) / count
}

func partition(message []byte, fragmentLen int) [][]byte {
	var fragments [][]byte
	for off := 0; off < len(message); off += fragmentLen {
		f := make([]byte, fragmentLen)
		copy(f, message[off:])
		fragments = append(fragments, f)
	}
	return fragments
}

// fragmentChooser picks the fragment indexes mixed into each part of a
// message split into seqLen fragments. The degree sampler is built on the
// first mixed part and reused.
type fragmentChooser struct {
	seqLen  uint32
	degrees *sampler
}

// choose returns the fragment indexes of part seqNum. The first seqLen parts
// are the plain fragments in order; later parts XOR a pseudo-random subset
// whose size follows the 1/i soliton-like distribution.
func (c *fragmentChooser) choose(seqNum, sum uint32) []int {
	if seqNum <= c.seqLen {
		return []int{int(seqNum - 1)}
	}

	var seed [8]byte
	binary.BigEndian.PutUint32(seed[:4], seqNum)
	binary.BigEndian.PutUint32(seed[4:], sum)
	rng := newXoshiro256(seed[:])

	if c.degrees == nil {
		weights := make([]float64, c.seqLen)
		for i := range weights {
			weights[i] = 1 / float64(i+1)
		}
		c.degrees = newSampler(weights)
	}
	degree := c.degrees.next(rng) + 1

	chosen := shuffledPrefix(int(c.seqLen), degree, rng)
	sort.Ints(chosen)
	return chosen
}

func chooseFragments(seqNum, seqLen, sum uint32) []int {
	c := fragmentChooser{seqLen: seqLen}
	return c.choose(seqNum, sum)
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// indexSet is a set of fragment indexes backed by a bitmap.
type indexSet struct {
	bits bitmap.Bitmap
}

func newIndexSet(indexes []int) indexSet {
	var s indexSet
	for _, i := range indexes {
		s.bits.Set(uint32(i))
	}
	return s
}

func (s indexSet) count() int {
	return s.bits.Count()
}

func (s indexSet) simple() (int, bool) {
	if s.bits.Count() != 1 {
		return 0, false
	}
	i, _ := s.bits.Min()
	return int(i), true
}

// strictSubsetOf reports whether every index of s is in o and o has more.
func (s indexSet) strictSubsetOf(o indexSet) bool {
	if s.count() >= o.count() {
		return false
	}
	rest := s.bits.Clone(nil)
	rest.AndNot(o.bits)
	return rest.Count() == 0
}

func (s indexSet) minus(o indexSet) indexSet {
	out := s.bits.Clone(nil)
	out.AndNot(o.bits)
	return indexSet{bits: out}
}

// key is a canonical map key for the set, independent of bitmap capacity.
func (s indexSet) key() string {
	buf := make([]byte, 0, s.count()*4)
	s.bits.Range(func(i uint32) {
		buf = binary.BigEndian.AppendUint32(buf, i)
	})
	return string(buf)
}

type mixedPart struct {
	indexes indexSet
	data    []byte
}

// reduceBy removes b from a when b's indexes are a strict subset of a's.
func (a mixedPart) reduceBy(b mixedPart) mixedPart {
	if !b.indexes.strictSubsetOf(a.indexes) {
		return a
	}
	data := append([]byte(nil), a.data...)
	xorInto(data, b.data)
	return mixedPart{indexes: a.indexes.minus(b.indexes), data: data}
}

// fountainEncoder emits an endless sequence of parts for one message.
type fountainEncoder struct {
	messageLen  int
	sum         uint32
	fragmentLen int
	fragments   [][]byte
	chooser     fragmentChooser
	seqNum      uint32
}

func newFountainEncoder(message []byte, maxFragmentLen int) (*fountainEncoder, error) {
	if len(message) == 0 {
		return nil, ErrEmptyMessage
	}
	if maxFragmentLen <= 0 {
		return nil, ErrInvalidFragmentLen
	}
	if len(message) > MaxMessageLen {
		return nil, ErrMessageTooLarge
	}
	fragmentLen := fragmentLength(len(message), maxFragmentLen)
	if (len(message)+fragmentLen-1)/fragmentLen > MaxSeqLen {
		return nil, ErrMessageTooLarge
	}
	fragments := partition(message, fragmentLen)
	return &fountainEncoder{
		messageLen:  len(message),
		sum:         checksum(message),
		fragmentLen: fragmentLen,
		fragments:   fragments,
		chooser:     fragmentChooser{seqLen: uint32(len(fragments))},
	}, nil
}

func (e *fountainEncoder) seqLen() int {
	return len(e.fragments)
}

func (e *fountainEncoder) nextPart() *part {
	e.seqNum++
	mixed := make([]byte, e.fragmentLen)
	for _, i := range e.chooser.choose(e.seqNum, e.sum) {
		xorInto(mixed, e.fragments[i])
	}
	return &part{
		SeqNum:     e.seqNum,
		SeqLen:     uint32(e.seqLen()),
		MessageLen: uint32(e.messageLen),
		Checksum:   e.sum,
		Data:       mixed,
	}
}

// fountainDecoder accumulates parts until every fragment is recovered.
type fountainDecoder struct {
	seqLen      int
	messageLen  int
	sum         uint32
	fragmentLen int
	chooser     fragmentChooser

	received indexSet
	simple   map[int][]byte
	mixed    map[string]mixedPart
	queue    []mixedPart

	result []byte
	err    error
}

func newFountainDecoder() *fountainDecoder {
	return &fountainDecoder{
		simple: make(map[int][]byte),
		mixed:  make(map[string]mixedPart),
	}
}

func (d *fountainDecoder) complete() bool {
	return d.result != nil || d.err != nil
}

func (d *fountainDecoder) validate(p *part) error {
	if d.seqLen == 0 {
		d.seqLen = int(p.SeqLen)
		d.messageLen = int(p.MessageLen)
		d.sum = p.Checksum
		d.fragmentLen = len(p.Data)
		d.chooser = fragmentChooser{seqLen: p.SeqLen}
		return nil
	}
	if int(p.SeqLen) != d.seqLen || int(p.MessageLen) != d.messageLen ||
		p.Checksum != d.sum || len(p.Data) != d.fragmentLen {
		return ErrInconsistentPart
	}
	return nil
}

func (d *fountainDecoder) receive(p *part) error {
	if d.complete() {
		return nil
	}
	if err := d.validate(p); err != nil {
		return err
	}
	d.queue = append(d.queue, mixedPart{
		indexes: newIndexSet(d.chooser.choose(p.SeqNum, p.Checksum)),
		data:    append([]byte(nil), p.Data...),
	})
	for !d.complete() && len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		if _, ok := next.indexes.simple(); ok {
			d.processSimple(next)
		} else {
			d.processMixed(next)
		}
	}
	return d.err
}

func (d *fountainDecoder) processSimple(p mixedPart) {
	index, _ := p.indexes.simple()
	if d.received.bits.Contains(uint32(index)) {
		return
	}
	d.simple[index] = p.data
	d.received.bits.Set(uint32(index))

	if d.received.count() == d.seqLen {
		message := make([]byte, 0, d.seqLen*d.fragmentLen)
		for i := 0; i < d.seqLen; i++ {
			message = append(message, d.simple[i]...)
		}
		message = message[:d.messageLen]
		if checksum(message) != d.sum {
			d.err = ErrInvalidChecksum
			return
		}
		d.result = message
		return
	}
	d.reduceMixedBy(p)
}

func (d *fountainDecoder) processMixed(p mixedPart) {
	if _, ok := d.mixed[p.indexes.key()]; ok {
		return
	}
	p = d.reduceByRecovered(p)
	if p.indexes.count() == 0 {
		return
	}
	for _, m := range d.mixed {
		p = p.reduceBy(m)
	}
	if _, ok := p.indexes.simple(); ok {
		d.queue = append(d.queue, p)
		return
	}
	d.reduceMixedBy(p)
	d.mixed[p.indexes.key()] = p
}

// reduceByRecovered XORs every already recovered fragment out of p. A part
// made only of recovered fragments comes back with no indexes.
func (d *fountainDecoder) reduceByRecovered(p mixedPart) mixedPart {
	known := p.indexes.bits.Clone(nil)
	known.And(d.received.bits)
	if known.Count() == 0 {
		return p
	}
	data := append([]byte(nil), p.data...)
	known.Range(func(i uint32) {
		xorInto(data, d.simple[int(i)])
	})
	return mixedPart{indexes: p.indexes.minus(d.received), data: data}
}

func (d *fountainDecoder) reduceMixedBy(p mixedPart) {
	next := make(map[string]mixedPart, len(d.mixed))
	for _, m := range d.mixed {
		reduced := m.reduceBy(p)
		if _, ok := reduced.indexes.simple(); ok {
			d.queue = append(d.queue, reduced)
		} else {
			next[reduced.indexes.key()] = reduced
		}
	}
	d.mixed = next
}

// progress is the share of fragments recovered so far, capped below 100
// until the message checks out.
func (d *fountainDecoder) progress() uint8 {
	if d.result != nil {
		return 100
	}
	if d.seqLen == 0 {
		return 0
	}
	pct := d.received.count() * 100 / d.seqLen
	if pct > 99 {
		pct = 99
	}
	return uint8(pct)
}
