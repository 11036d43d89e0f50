package raptorq

import "github.com/rq6330/raptorq/gf256"

// precodeMatrix is the built L-row system representing the S LDPC
// constraints, H HDPC constraints, and K' LT pre-coding constraints
// RFC 6330 §5.4.2.1 describes. Row order follows RFC 6330's own layout: LDPC
// rows first, then HDPC, then one LT row per pre-coding symbol index
// (ESI 0..K'-1). Columns 0..K'-1 are the source/LT-addressable
// intermediate symbols, K'..K'+S-1 are the LDPC symbols, and
// K'+S..L-1 are the HDPC symbols.
type precodeMatrix struct {
	p          blockParams
	symbolSize int
	rows       [][]uint8 // L rows, L columns each
	d          [][]byte  // L rows, symbolSize bytes each
}

// buildPrecode constructs the square L×L precode system for one source
// block: source[i] is symbol i of the block, already zero-padded by the
// caller out to K' entries (RFC 6330's K <= K' padding rule).
func buildPrecode(p blockParams, source [][]byte, symbolSize int) *precodeMatrix {
	l := p.L()
	m := &precodeMatrix{p: p, symbolSize: symbolSize}
	m.rows = make([][]uint8, l)
	m.d = make([][]byte, l)
	for i := range m.rows {
		m.rows[i] = make([]uint8, l)
		m.d[i] = make([]byte, symbolSize)
	}

	ldpcRows(p, m.rows[:p.s])
	hdpcRows(p, m.rows[p.s:p.s+p.h])

	for esi := 0; esi < p.kPrime; esi++ {
		row := m.rows[p.s+p.h+esi]
		for _, col := range ltRow(p, uint32(esi)) {
			row[col] ^= 1
		}
		copy(m.d[p.s+p.h+esi], source[esi])
	}

	return m
}

// ldpcRows fills the S LDPC constraint rows (RFC 6330 §5.4.2.3): each of
// the K' pre-coding columns participates in exactly three LDPC rows,
// chosen by a fixed column-index formula. Each LDPC row additionally
// carries an identity coefficient into its own dedicated LDPC column so
// the S rows stay independent of one another regardless of how the K'
// columns happen to compose.
func ldpcRows(p blockParams, rows [][]uint8) {
	for i := 0; i < p.kPrime; i++ {
		b1 := i % p.s
		a := 1 + i/p.s
		b2 := (b1 + a) % p.s
		b3 := (b2 + a) % p.s
		rows[b1][i] ^= 1
		rows[b2][i] ^= 1
		rows[b3][i] ^= 1
	}
	for j := 0; j < p.s; j++ {
		rows[j][p.kPrime+j] ^= 1
	}
}

// hdpcRows fills the H dense HDPC constraint rows (RFC 6330 §5.4.2.4, step
// (c)) over GF(256) as a Vandermonde-style matrix: row j uses the
// distinct nonzero field element base_j = j+1, and column c holds
// base_j^c, so any H-by-H minor drawn from H consecutive columns is a
// row-scaled Vandermonde matrix and therefore invertible (a minor over
// non-consecutive columns can be singular) -- the algebraic property
// RFC 6330's HDPC rows are meant to guarantee, here obtained directly
// rather than by transcribing the RFC's own MDS generator matrix
// (not retrievable in this environment; see DESIGN.md). Because GF(256)
// has only 255 nonzero elements, base_j's multiplicative order can be
// less than the row width for very large blocks, which weakens this
// guarantee past column 255; that caveat is recorded in DESIGN.md rather
// than hidden. Each HDPC row also carries an identity coefficient into
// its own dedicated HDPC column.
func hdpcRows(p blockParams, rows [][]uint8) {
	width := p.kPrime + p.s
	for j := 0; j < p.h; j++ {
		base := uint8(j + 1)
		cur := uint8(1)
		for c := 0; c < width; c++ {
			rows[j][c] = cur
			cur = gf256.Mul(cur, base)
		}
		rows[j][width+j] = 1
	}
}
