// Package keypath implements the BIP32 derivation path carried by every
// Keystone request (crypto-keypath, CBOR tag 304).
package keypath

import (
	"math"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/goatnetwork/qlink/internal/keystone/codec"
)

const msgType = "crypto-keypath"

// Component is one derivation step. Index is always below hdkeychain.HardenedKeyStart;
// the hardened flag is carried separately.
type Component struct {
	Index    uint32
	Hardened bool
}

func Hardened(index uint32) Component {
	return Component{Index: index, Hardened: true}
}

func Normal(index uint32) Component {
	return Component{Index: index}
}

// ComponentFromBIP32 splits a combined index into its index and hardened bit.
func ComponentFromBIP32(v uint32) Component {
	if v >= hdkeychain.HardenedKeyStart {
		return Hardened(v - hdkeychain.HardenedKeyStart)
	}
	return Normal(v)
}

// BIP32Index returns the combined index: Index OR 0x80000000 when hardened.
func (c Component) BIP32Index() uint32 {
	if c.Hardened {
		return c.Index | hdkeychain.HardenedKeyStart
	}
	return c.Index
}

func (c Component) String() string {
	s := strconv.FormatUint(uint64(c.Index), 10)
	if c.Hardened {
		return s + "'"
	}
	return s
}

// Path is an immutable derivation path with optional source fingerprint and depth.
type Path struct {
	Components        []Component
	SourceFingerprint *[4]byte
	Depth             *uint8
}

func New(components ...Component) Path {
	if len(components) == 0 {
		return Path{}
	}
	return Path{Components: append([]Component(nil), components...)}
}

// WithSourceFingerprint returns a copy of p carrying fp.
func (p Path) WithSourceFingerprint(fp [4]byte) Path {
	p.SourceFingerprint = &fp
	return p
}

// WithDepth returns a copy of p carrying depth.
func (p Path) WithDepth(depth uint8) Path {
	p.Depth = &depth
	return p
}

// Parse reads the textual form, e.g. "m/44'/60'/0'/0/0". The "m/" prefix is
// optional and both ' and h mark a hardened component.
func Parse(s string) (Path, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "m" || s == "M":
		return Path{}, nil
	case strings.HasPrefix(s, "m/") || strings.HasPrefix(s, "M/"):
		s = s[2:]
	}

	var components []Component
	for _, part := range strings.Split(s, "/") {
		digits, hardened := part, false
		if strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h") || strings.HasSuffix(part, "H") {
			digits, hardened = part[:len(part)-1], true
		}
		index, err := strconv.ParseUint(digits, 10, 32)
		if err != nil {
			return Path{}, codec.Validationf("invalid path component '%s': %v", part, err)
		}
		if index >= hdkeychain.HardenedKeyStart {
			return Path{}, codec.Validationf("invalid path component '%s': index exceeds %d", part, hdkeychain.HardenedKeyStart-1)
		}
		components = append(components, Component{Index: uint32(index), Hardened: hardened})
	}
	return Path{Components: components}, nil
}

// MustParse is Parse for constant paths in tests and tooling.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string {
	if len(p.Components) == 0 {
		return "m"
	}
	var b strings.Builder
	b.WriteString("m")
	for _, c := range p.Components {
		b.WriteByte('/')
		b.WriteString(c.String())
	}
	return b.String()
}

// Accounts converts p into go-ethereum's derivation path representation.
func (p Path) Accounts() accounts.DerivationPath {
	out := make(accounts.DerivationPath, len(p.Components))
	for i, c := range p.Components {
		out[i] = c.BIP32Index()
	}
	return out
}

// FromAccounts builds a Path from go-ethereum's representation.
func FromAccounts(dp accounts.DerivationPath) Path {
	var components []Component
	for _, v := range dp {
		components = append(components, ComponentFromBIP32(v))
	}
	return Path{Components: components}
}

type pathWire struct {
	Components        []uint32 `cbor:"1,keyasint"`
	SourceFingerprint []byte   `cbor:"2,keyasint,omitempty"`
	Depth             *uint8   `cbor:"3,keyasint,omitempty"`
}

// ToWire encodes p as tag 304 followed by its map.
func (p Path) ToWire() ([]byte, error) {
	w := pathWire{
		Components: make([]uint32, 0, len(p.Components)),
		Depth:      p.Depth,
	}
	for _, c := range p.Components {
		w.Components = append(w.Components, c.BIP32Index())
	}
	if p.SourceFingerprint != nil {
		w.SourceFingerprint = p.SourceFingerprint[:]
	}
	return codec.Marshal(codec.Tagged(codec.TagDerivationPath, w))
}

// FromWire decodes a tag 304 path. A second, redundant 304 tag around the map
// is accepted: some encoders write one for the path of crypto-account and of
// the Hedera, Solana and Stellar requests. ToWire never emits it.
func FromWire(data []byte) (Path, error) {
	content, err := codec.Untag(data, codec.TagDerivationPath, msgType)
	if err != nil {
		return Path{}, err
	}
	if codec.IsTagged(content, codec.TagDerivationPath) {
		if content, err = codec.Untag(content, codec.TagDerivationPath, msgType); err != nil {
			return Path{}, err
		}
	}
	fields, err := codec.DecodeMap(content, 0, msgType)
	if err != nil {
		return Path{}, err
	}

	raw, err := fields.Raw(1, "components")
	if err != nil {
		return Path{}, err
	}
	var indexes []uint32
	if err := codec.Unmarshal(raw, &indexes); err != nil {
		return Path{}, codec.InvalidField(msgType, "components", err)
	}

	var p Path
	for _, v := range indexes {
		p.Components = append(p.Components, ComponentFromBIP32(v))
	}

	fp, err := fields.OptBytes(2, "source_fingerprint")
	if err != nil {
		return Path{}, err
	}
	if len(fp) == 4 {
		var f [4]byte
		copy(f[:], fp)
		p.SourceFingerprint = &f
	}

	depth, ok, err := fields.OptUint(3, "depth")
	if err != nil {
		return Path{}, err
	}
	if ok {
		if depth > math.MaxUint8 {
			return Path{}, codec.Validationf("%s: depth %d exceeds %d", msgType, depth, math.MaxUint8)
		}
		d := uint8(depth)
		p.Depth = &d
	}
	return p, nil
}

func (p Path) MarshalCBOR() ([]byte, error) {
	return p.ToWire()
}

func (p *Path) UnmarshalCBOR(data []byte) error {
	decoded, err := FromWire(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}
