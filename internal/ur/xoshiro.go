package ur

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/bits"
)

// xoshiro256 is the xoshiro256** generator seeded from the SHA-256 of a byte
// string, as the fountain code requires both ends to draw identical sequences.
type xoshiro256 struct {
	s [4]uint64
}

func newXoshiro256(seed []byte) *xoshiro256 {
	digest := sha256.Sum256(seed)
	x := &xoshiro256{}
	for i := range x.s {
		x.s[i] = binary.BigEndian.Uint64(digest[i*8 : i*8+8])
	}
	return x
}

func (x *xoshiro256) next() uint64 {
	s := &x.s
	result := bits.RotateLeft64(s[1]*5, 7) * 9
	t := s[1] << 17

	s[2] ^= s[0]
	s[3] ^= s[1]
	s[1] ^= s[2]
	s[0] ^= s[3]

	s[2] ^= t
	s[3] = bits.RotateLeft64(s[3], 45)
	return result
}

func (x *xoshiro256) nextDouble() float64 {
	return float64(x.next()) / (float64(math.MaxUint64) + 1)
}

// nextInt returns a value in [low, high].
func (x *xoshiro256) nextInt(low, high uint64) uint64 {
	return uint64(x.nextDouble()*float64(high-low+1)) + low
}

func (x *xoshiro256) nextByte() byte {
	return byte(x.nextInt(0, 255))
}

func (x *xoshiro256) nextData(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = x.nextByte()
	}
	return out
}

// shuffled returns a permutation of items drawn from x.
func shuffled(items []int, x *xoshiro256) []int {
	result := shuffledPrefix(len(items), len(items), x)
	for i, idx := range result {
		result[i] = items[idx]
	}
	return result
}

// shuffledPrefix returns the first k positions of the permutation of 0..n-1
// that repeatedly removes a random element from the remaining list. A Fenwick
// tree over the remaining positions keeps each draw logarithmic in n.
func shuffledPrefix(n, k int, x *xoshiro256) []int {
	if k > n {
		k = n
	}
	tree := make([]int, n+1)
	for i := 1; i <= n; i++ {
		tree[i]++
		if j := i + i&-i; j <= n {
			tree[j] += tree[i]
		}
	}
	top := 1
	for top*2 <= n {
		top *= 2
	}

	result := make([]int, 0, k)
	for remaining := n; len(result) < k; remaining-- {
		rank := int(x.nextInt(0, uint64(remaining-1))) + 1
		pos := 0
		for step := top; step > 0; step >>= 1 {
			if next := pos + step; next <= n && tree[next] < rank {
				pos = next
				rank -= tree[next]
			}
		}
		result = append(result, pos)
		for i := pos + 1; i <= n; i += i & -i {
			tree[i]--
		}
	}
	return result
}

// sampler draws indexes with the given relative weights (Vose's alias method).
type sampler struct {
	probs   []float64
	aliases []int
}

func newSampler(weights []float64) *sampler {
	n := len(weights)
	var sum float64
	for _, w := range weights {
		sum += w
	}
	p := make([]float64, n)
	for i, w := range weights {
		p[i] = w * float64(n) / sum
	}

	var small, large []int
	for i := n - 1; i >= 0; i-- {
		if p[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	s := &sampler{probs: make([]float64, n), aliases: make([]int, n)}
	for len(small) > 0 && len(large) > 0 {
		a := small[len(small)-1]
		small = small[:len(small)-1]
		g := large[len(large)-1]
		large = large[:len(large)-1]

		s.probs[a] = p[a]
		s.aliases[a] = g
		p[g] += p[a] - 1
		if p[g] < 1 {
			small = append(small, g)
		} else {
			large = append(large, g)
		}
	}
	for _, i := range large {
		s.probs[i] = 1
	}
	for _, i := range small {
		s.probs[i] = 1
	}
	return s
}

func (s *sampler) next(x *xoshiro256) int {
	r1 := x.nextDouble()
	r2 := x.nextDouble()
	i := int(float64(len(s.probs)) * r1)
	if i >= len(s.probs) {
		i = len(s.probs) - 1
	}
	if r2 < s.probs[i] {
		return i
	}
	return s.aliases[i]
}
