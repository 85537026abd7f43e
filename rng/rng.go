// Package rng provides the deterministic RNG adapter used by the simulation
// engine (spec §4.5): a seedable source of uniform floats on (0,1], with an
// OS-entropy default when the caller supplies no seed.
//
// The discipline follows the pattern used elsewhere in the ecosystem for
// reproducible simulation streams (e.g. a SplitMix64-style avalanche mix to
// decorrelate derived sub-streams): a single deterministic source per
// instance, no time-based seeding hidden behind the scenes, and
// math/rand.Rand — which is not goroutine-safe — never shared across
// goroutines.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
)

// RNG is a uniform-random source on the half-open interval (0,1], excluding
// 0 so that -ln(u) is always finite (spec §4.3, §4.5).
type RNG struct {
	r *mrand.Rand
}

// New returns a deterministically-seeded RNG. If seed is nil, the source is
// seeded from OS entropy (spec §4.5).
func New(seed *uint64) *RNG {
	var s int64
	if seed != nil {
		s = int64(*seed)
	} else {
		s = osEntropySeed()
	}
	return &RNG{r: mrand.New(mrand.NewSource(s))}
}

// osEntropySeed reads a seed from the OS entropy source. It panics only if
// the platform's crypto/rand reader itself is broken, which is already
// unrecoverable for the caller.
func osEntropySeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("rebop/rng: failed to read OS entropy: " + err.Error())
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// Uniform01 draws the next uniform float on (0,1].
func (g *RNG) Uniform01() float64 {
	for {
		// Float64 returns a value on [0,1); reject the zero boundary so
		// log(u) below is always defined, per spec §4.5.
		u := g.r.Float64()
		if u > 0 {
			return u
		}
	}
}

// Derive produces an independent deterministic sub-stream from this RNG and
// a stream identifier, using a SplitMix64-style finalizer to decorrelate
// the derived seed from the parent. Consumes one draw from the parent.
func (g *RNG) Derive(stream uint64) *RNG {
	parent := g.r.Uint64()
	mixed := splitMix64(parent ^ (stream + 0x9e3779b97f4a7c15))
	return &RNG{r: mrand.New(mrand.NewSource(int64(mixed)))}
}

func splitMix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// ExpWaitingTime draws a Direct-Method tau given total propensity a0, i.e.
// -ln(u)/a0 for a freshly drawn u (spec §4.3 step 2-3). a0 must be > 0.
func (g *RNG) ExpWaitingTime(a0 float64) float64 {
	u := g.Uniform01()
	return -math.Log(u) / a0
}
