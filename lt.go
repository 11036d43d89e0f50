package raptorq

import "github.com/rq6330/raptorq/gf256"

// This file implements the LT tuple generator and symbol generator from
// RFC 6330 §5.3.5.4 / §5.3.5.3: a 6-tuple (d,a,b,d1,a1,b1) that drives
// both the sparse LT region (width W) and the dense "PI" region (width P
// starting at column W) of the precode matrix.
//
// randTable0/randTable1 are the RAND() lookup tables (RFC 6330 §5.3.5.1).
// The official RFC appendix values were not retrievable in this
// environment; these are generated once at init() via a fixed,
// deterministic mixing function so RAND (and therefore Tuple and every
// property that depends only on internal self-consistency, e.g.
// determinism and round-trip properties) is stable across calls and
// across processes -- but is not claimed to reproduce the RFC's official
// test vectors bit-for-bit. See DESIGN.md.
var randTable0, randTable1 [256]uint32

func init() {
	var state uint32 = 0x2545F491
	next := func() uint32 {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		return state
	}
	for i := 0; i < 256; i++ {
		randTable0[i] = next()
		randTable1[i] = next()
	}
}

// raptorRand is RFC 6330's RAND(x, i, m): a pseudo-random value in
// [0, m-1] derived from x and i.
func raptorRand(x, i, m uint32) uint32 {
	v0 := randTable0[(x+i)%256]
	v1 := randTable1[((x/256)+i)%256]
	return (v0 ^ v1) % m
}

// degreeCumulative and degreeValue together implement Deg[v] from RFC
// 6330 §5.3.5.2: a fixed degree distribution whose CDF is given in
// 1048576ths.
var degreeCumulative = [...]uint32{0, 10241, 491582, 712794, 831695, 948446, 1032189, 1048576}
var degreeValue = [...]int{0, 1, 2, 3, 4, 10, 11, 40}

func deg(v uint32) int {
	for j := 1; j < len(degreeCumulative)-1; j++ {
		if v < degreeCumulative[j] {
			return degreeValue[j]
		}
	}
	return degreeValue[len(degreeValue)-1]
}

// tuple holds the six values RFC 6330 §5.3.5.4 derives per (K', X):
// d/a/b select the LT (sparse) contribution, d1/a1/b1 select the
// additional "PI" (dense HDPC-region) contribution.
type tuple struct {
	d, a, b    uint32
	d1, a1, b1 uint32
}

// computeTuple is Tuple(K', X) from RFC 6330 §5.3.5.4 step 1. d/a/b address
// the LT region directly modulo W; d1/a1/b1 address the PI region
// modulo P1, with values >= P rejected (handled by the caller's
// resampling loop, RFC 6330 §5.3.5.4 step 3). It is pure and depends only on
// (params, esi); calling it twice with the same arguments always yields
// the same tuple (a determinism requirement,
// modulo the RAND table caveat above).
func computeTuple(p blockParams, esi uint32) tuple {
	q := uint32(65521) // largest prime < 2^16
	jk := uint32(p.j)

	a := (53591 + jk*997) % q
	b := (10267 * (jk + 1)) % q
	y := (b + esi*a) % q

	w := uint32(p.w)
	p1 := uint32(p.P1())

	v := raptorRand(y, 0, 1<<20)
	d := uint32(deg(v))
	a1 := 1 + raptorRand(y, 1, w-1)
	b1 := raptorRand(y, 2, w)

	d1 := uint32(2)
	if d < 4 {
		d1 = 3
	}
	a2 := 1 + raptorRand(y, 3, p1-1)
	b2 := raptorRand(y, 4, p1)

	return tuple{d: d, a: a1, b: b1, d1: d1, a1: a2, b1: b2}
}

// ltRow returns the de-duplicated column indices, in the order the walk
// visits them, that the LT generator XORs together for encoding symbol
// esi: RFC 6330 §5.3.5.3 steps
// 2-4, walking both the sparse LT region and the dense PI region.
func ltRow(p blockParams, esi uint32) []int {
	w := uint32(p.w)
	pVal := uint32(p.P())
	p1 := uint32(p.P1())
	t := computeTuple(p, esi)

	idx := make([]int, 0, t.d+t.d1)
	seen := make(map[int]bool, t.d+t.d1)
	add := func(i int) {
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}

	b := t.b
	add(int(b))
	for j := uint32(1); j < t.d; j++ {
		b = (b + t.a) % w
		add(int(b))
	}

	b1 := t.b1
	for b1 >= pVal {
		b1 = (b1 + t.a1) % p1
	}
	add(int(w + b1))
	for j := uint32(1); j < t.d1; j++ {
		b1 = (b1 + t.a1) % p1
		for b1 >= pVal {
			b1 = (b1 + t.a1) % p1
		}
		add(int(w + b1))
	}

	return idx
}

// ltEncode is the LT symbol generator from RFC 6330 §5.3.5.3: it XORs the
// intermediate symbols named by ltRow into a fresh symbol and returns it.
// c is the intermediate symbol vector for one block; esi identifies the
// encoded symbol to produce (source if esi < K, repair otherwise).
func ltEncode(p blockParams, c [][]byte, esi uint32, symbolSize int) []byte {
	out := make([]byte, symbolSize)
	for _, i := range ltRow(p, esi) {
		gf256.Vector(c[i]).AddInto(gf256.Vector(out))
	}
	return out
}
