package raptorq

import (
	"sort"
	"sync"
)

// decBlock accumulates one source block's received rows as they arrive
// and caches the resulting intermediate symbol vector once a decode
// attempt against those rows succeeds. Unlike the encoder's blockHandle,
// rows arrive incrementally and duplicates must be rejected rather than
// recomputed away, and appending a row never itself triggers a solve.
type decBlock struct {
	sbn  uint8
	k    int
	p    blockParams
	seen map[uint32]bool
	rows [][]uint8
	rhs  [][]byte
	c    [][]byte // resolved intermediate symbols, nil until solved
}

// Decoder is the RaptorQ decoder facade: symbols for any block may
// arrive in any order, with gaps or duplicates, and are accumulated by
// AddSymbol without attempting a solve. DecodeBlock/Decode/DecodedBlocks
// are what attempt the precode solve against whatever rows have been
// accumulated so far, after which the interleaver scatters the
// recovered source symbols back to their original byte positions.
type Decoder struct {
	f  uint64
	t  uint16
	z  uint8
	n  uint16
	al uint8

	it  *interleaver
	reg *registry2
	log *Logger

	// mu guards reg and every decBlock reachable from it. A single coarse
	// lock (rather than the encoder's registry+per-block pair) is enough
	// here: every decode-side operation either mutates a block's
	// accumulated rows or reads its solved state, both cheap compared to
	// the encoder's precode solve, so there is no long-held section worth
	// splitting out.
	mu sync.Mutex
}

// NewDecoder reconstructs an object's partition from its two OTI words.
func NewDecoder(common OTICommon, scheme OTISchemeSpecific, logger *Logger) (*Decoder, error) {
	f := common.F()
	t := common.T()
	z := scheme.Z()
	n := scheme.N()
	al := scheme.Al()
	if f == 0 || f > MaxF || t == 0 {
		return nil, ErrInvalidObjectSize
	}
	return &Decoder{
		f: f, t: t, z: z, n: n, al: al,
		it:  newInterleaver(int(f), int(t), int(z), int(n), int(al)),
		reg: newRegistry2(),
		log: logger,
	}, nil
}

// NewDecoderExplicit builds a Decoder directly from F, T, Z, N, and Al
// without going through an OTI round-trip, for callers that parsed
// those fields themselves.
func NewDecoderExplicit(f uint64, t uint16, z uint8, n uint16, al uint8, logger *Logger) (*Decoder, error) {
	return NewDecoder(EncodeOTICommon(f, t), EncodeOTISchemeSpecific(z, n, al), logger)
}

// registry2 is the Decoder's SBN -> *decBlock map. Unlike the Encoder's
// registry/blockHandle split it carries no lock of its own, and neither
// does decBlock: the map and every block in it are guarded by the
// Decoder's single mu, since decode state accumulates incrementally
// rather than being computed once from a build function.
type registry2 struct {
	blocks map[uint8]*decBlock
}

func newRegistry2() *registry2 {
	return &registry2{blocks: make(map[uint8]*decBlock)}
}

func (d *Decoder) block(sbn uint8) (*decBlock, error) {
	if sbn >= d.z {
		return nil, ErrUnknownBlock
	}
	b, ok := d.reg.blocks[sbn]
	if !ok {
		k := d.it.blockSymbols(int(sbn))
		p, err := lookupParams(k)
		if err != nil {
			return nil, err
		}
		b = &decBlock{sbn: sbn, k: k, p: p, seen: make(map[uint32]bool)}
		d.reg.blocks[sbn] = b
	}
	return b, nil
}

// AddSymbol appends one received encoding symbol to block sbn's received
// list if the (sbn, esi) pair is not already present; a repeated pair is
// dropped and reported as ErrDuplicateSymbol. It returns true when the
// symbol was newly recorded. AddSymbol never attempts a solve itself --
// that is DecodeBlock/Decode/DecodedBlocks's job -- so a burst of
// arriving symbols can be appended without paying for a solve attempt
// after each one.
func (d *Decoder) AddSymbol(sbn uint8, esi uint32, payload []byte) (bool, error) {
	if esi > MaxESI {
		return false, ErrEsiOutOfRange
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.block(sbn)
	if err != nil {
		return false, err
	}

	if b.c != nil {
		return false, nil
	}
	if b.seen[esi] {
		return false, ErrDuplicateSymbol
	}
	b.seen[esi] = true

	row := make([]uint8, b.p.L())
	for _, col := range ltRow(b.p, esi) {
		row[col] ^= 1
	}
	rhs := make([]byte, len(payload))
	copy(rhs, payload)
	b.rows = append(b.rows, row)
	b.rhs = append(b.rhs, rhs)

	return true, nil
}

// decodeEpsilon is the small received-row overhead RFC 6330 allows
// before a stalled solve is reported as DecodeFailure rather than
// silently asking for more symbols forever.
const decodeEpsilon = 2

// trySolve attempts the precode solve once enough rows have been
// received (fewer than K received rows cannot possibly reach full
// rank, so the attempt is skipped until then). The K'-K padding
// symbols are known to be zero and are added as rows of their own. A
// solver failure while still within K+decodeEpsilon received rows is
// treated as "not yet decodable"; past that threshold it is reported as
// ErrDecodeFailure per RFC 6330 §5.4.2.2's decoding failure condition.
func (d *Decoder) trySolve(b *decBlock) (bool, error) {
	if len(b.rows) < b.k {
		return false, nil
	}

	symbolSize := int(d.t)
	solver := newSolver(b.p.L(), symbolSize)

	ldpc := make([][]uint8, b.p.s)
	for i := range ldpc {
		ldpc[i] = make([]uint8, b.p.L())
	}
	ldpcRows(b.p, ldpc)
	zero := make([]byte, symbolSize)
	for _, row := range ldpc {
		solver.AddRow(row, zero)
	}

	hdpc := make([][]uint8, b.p.h)
	for i := range hdpc {
		hdpc[i] = make([]uint8, b.p.L())
	}
	hdpcRows(b.p, hdpc)
	for _, row := range hdpc {
		solver.AddRow(row, zero)
	}

	for esi := b.k; esi < b.p.kPrime; esi++ {
		row := make([]uint8, b.p.L())
		for _, col := range ltRow(b.p, uint32(esi)) {
			row[col] ^= 1
		}
		solver.AddRow(row, zero)
	}

	for i, row := range b.rows {
		solver.AddRow(row, b.rhs[i])
	}

	c, err := solver.Solve()
	if err != nil {
		if err == ErrNeedMoreSymbols {
			return false, nil
		}
		if len(b.rows) < b.k+decodeEpsilon {
			return false, nil
		}
		d.log.errorf("raptorq: block %d decode attempt failed: %v", b.sbn, err)
		return false, ErrDecodeFailure
	}
	b.c = c
	return true, nil
}

// DecodeBlock attempts the precode solve for block sbn if it has not
// already succeeded, then writes its recovered source bytes into out and
// returns the number of bytes written, or ErrNeedMoreSymbols if that
// block is not yet decodable.
func (d *Decoder) DecodeBlock(sbn uint8, out []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.block(sbn)
	if err != nil {
		return 0, err
	}
	if b.c == nil {
		if _, err := d.trySolve(b); err != nil {
			return 0, err
		}
	}
	if b.c == nil {
		return 0, ErrNeedMoreSymbols
	}
	symbols := make([][]byte, b.k)
	for esi := 0; esi < b.k; esi++ {
		symbols[esi] = ltEncode(b.p, b.c, uint32(esi), int(d.t))
	}
	return d.it.Scatter(symbols, int(sbn), out), nil
}

// Decode writes every block's recovered source bytes into out, which
// must be at least F bytes, returning the total bytes written. It
// returns ErrNeedMoreSymbols if any block has not yet been decoded;
// DecodedBlocks and DecodeBlock let a caller make use of a partially
// decoded object instead of waiting for every block.
func (d *Decoder) Decode(out []byte) (int, error) {
	total := 0
	for sbn := 0; sbn < int(d.z); sbn++ {
		n, err := d.DecodeBlock(uint8(sbn), out)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodedBlocks attempts the precode solve for every block that has not
// already succeeded, then returns the SBNs that are fully decoded, in
// ascending order (a partial-decoding capability). A block whose solve
// fails outright (ErrDecodeFailure) is simply left out rather than
// propagating that error, since this call reports a set, not a single
// block's outcome.
func (d *Decoder) DecodedBlocks() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []uint8
	for sbn, b := range d.reg.blocks {
		if b.c == nil {
			d.trySolve(b)
		}
		if b.c != nil {
			out = append(out, sbn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Blocks returns a restartable iterator over every source block.
func (d *Decoder) Blocks() *BlockIter {
	out := make([]BlockDescriptor, d.z)
	for sbn := 0; sbn < int(d.z); sbn++ {
		k := d.it.blockSymbols(sbn)
		out[sbn] = BlockDescriptor{SBN: uint8(sbn), K: k, Size: k * int(d.t)}
	}
	return newBlockIter(out)
}

// BlockSize returns block sbn's size in bytes.
func (d *Decoder) BlockSize(sbn uint8) (int, error) {
	if sbn >= d.z {
		return 0, ErrUnknownBlock
	}
	return d.it.blockSymbols(int(sbn)) * int(d.t), nil
}

// SymbolSize returns T, the fixed size in bytes of every encoding
// symbol.
func (d *Decoder) SymbolSize() int { return int(d.t) }

// Free discards block sbn's accumulated rows and any cached solution,
// reclaiming its working memory.
func (d *Decoder) Free(sbn uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.reg.blocks, sbn)
}
