package raptorq

import "context"

// Encoder is the RaptorQ encoder facade: constructed once
// per source object, it partitions the object the way the Partitioner
// and Interleaver describe, then lazily builds each source block's
// intermediate symbol vector on first use (or eagerly via Precompute)
// and derives any requested encoding symbol from it via the LT
// generator.
type Encoder struct {
	source []byte
	f      uint64
	t      uint16
	z      uint8
	n      uint16
	al     uint8

	it  *interleaver
	reg *registry
	log *Logger
}

// NewEncoder partitions source into Z source blocks sized so each
// block's solver working set fits within maxMemory bytes (memory.go's
// EstimateMemory), and chooses a sub-symbol alignment no larger than
// minSubSymbolSize. A maxMemory of zero means unbounded.
func NewEncoder(source []byte, symbolSize uint16, minSubSymbolSize int, maxMemory uint64, logger *Logger) (*Encoder, error) {
	f := uint64(len(source))
	if f == 0 || f > MaxF || symbolSize == 0 {
		return nil, ErrInvalidObjectSize
	}

	totalSymbols := ceilDiv(len(source), int(symbolSize))
	z, err := chooseZ(totalSymbols, int(symbolSize), maxMemory)
	if err != nil {
		return nil, err
	}
	al := chooseAl(symbolSize, minSubSymbolSize)
	n := chooseN(int(symbolSize), al, minSubSymbolSize)

	logger.debugf("encoder: F=%d T=%d Z=%d N=%d Al=%d", f, symbolSize, z, n, al)

	return &Encoder{
		source: source,
		f:      f,
		t:      symbolSize,
		z:      uint8(z),
		n:      uint16(n),
		al:     uint8(al),
		it:     newInterleaver(len(source), int(symbolSize), z, n, al),
		reg:    newRegistry(),
		log:    logger,
	}, nil
}

// chooseZ picks the smallest source block count whose per-block working
// memory (the largest block's EstimateMemory) fits within maxMemory,
// generalizing RFC 6330 §4.4.1.2's Z derivation (which targets WS, a
// sub-symbol based memory bound) to the byte-denominated maxMemory
// the facade exposes directly.
func chooseZ(totalSymbols, symbolSize int, maxMemory uint64) (int, error) {
	if maxMemory == 0 {
		maxMemory = 1 << 62
	}
	for z := 1; z <= MaxZ; z++ {
		k := ceilDiv(totalSymbols, z)
		mem, err := EstimateMemory(k, symbolSize)
		if err != nil {
			continue
		}
		if mem <= maxMemory {
			return z, nil
		}
	}
	return 0, ErrInvalidParameters
}

// chooseAl picks the largest power-of-two alignment that still evenly
// divides the symbol size and stays at or below minSubSymbolSize,
// following RFC 6330 §4.4.1.2's symbol alignment parameter. The result
// is at most 128 so that it fits the 8-bit Al field of the OTI.
func chooseAl(symbolSize uint16, minSubSymbolSize int) int {
	al := 1
	for al*2 <= int(symbolSize) && al*2 <= minSubSymbolSize && al*2 <= 0xFF && int(symbolSize)%(al*2) == 0 {
		al *= 2
	}
	return al
}

// chooseN picks the largest sub-block count whose sub-symbol size
// (after alignment) does not fall below minSubSymbolSize.
func chooseN(symbolSize, al, minSubSymbolSize int) int {
	subSymbols := symbolSize / al
	if subSymbols <= 1 {
		return 1
	}
	n := 1
	for n < subSymbols && (subSymbols/(n+1))*al >= minSubSymbolSize {
		n++
	}
	return n
}

func (e *Encoder) blockParams(sbn uint8) (blockParams, int, error) {
	if int(sbn) >= int(e.z) {
		return blockParams{}, 0, ErrUnknownBlock
	}
	k := e.it.blockSymbols(int(sbn))
	p, err := lookupParams(k)
	if err != nil {
		return blockParams{}, 0, err
	}
	return p, k, nil
}

// Blocks returns a restartable iterator over every source block.
func (e *Encoder) Blocks() *BlockIter {
	out := make([]BlockDescriptor, e.z)
	for sbn := 0; sbn < int(e.z); sbn++ {
		k := e.it.blockSymbols(sbn)
		out[sbn] = BlockDescriptor{SBN: uint8(sbn), K: k, Size: k * int(e.t)}
	}
	return newBlockIter(out)
}

// Symbols returns a restartable iterator over block sbn's source
// symbols followed by up to maxRepair repair symbols (clamped to
// 2^20-K).
func (e *Encoder) Symbols(sbn uint8, maxRepair int) (*SymbolIter, error) {
	_, k, err := e.blockParams(sbn)
	if err != nil {
		return nil, err
	}
	return newSymbolIter(k, maxRepair), nil
}

// BlockSize returns block sbn's size in bytes.
func (e *Encoder) BlockSize(sbn uint8) (int, error) {
	if int(sbn) >= int(e.z) {
		return 0, ErrUnknownBlock
	}
	return e.it.blockSymbols(int(sbn)) * int(e.t), nil
}

// SymbolSize returns T, the fixed size in bytes of every encoding
// symbol.
func (e *Encoder) SymbolSize() int { return int(e.t) }

// MaxRepair returns the largest number of repair symbols block sbn can
// produce before its ESI space (2^20 values) is exhausted.
func (e *Encoder) MaxRepair(sbn uint8) (int, error) {
	_, k, err := e.blockParams(sbn)
	if err != nil {
		return 0, err
	}
	return MaxESI + 1 - k, nil
}

// OTICommon returns this object's common Object Transmission Information.
func (e *Encoder) OTICommon() OTICommon { return EncodeOTICommon(e.f, e.t) }

// OTISchemeSpecific returns this object's scheme-specific Object
// Transmission Information.
func (e *Encoder) OTISchemeSpecific() OTISchemeSpecific {
	return EncodeOTISchemeSpecific(e.z, e.n, e.al)
}

func (e *Encoder) buildIntermediate(sbn uint8) ([][]byte, error) {
	p, k, err := e.blockParams(sbn)
	if err != nil {
		return nil, err
	}
	source := make([][]byte, p.kPrime)
	for i := 0; i < p.kPrime; i++ {
		sym := make([]byte, e.t)
		if i < k {
			e.it.ReadSymbol(e.source, int(sbn), i, sym)
		}
		source[i] = sym
	}

	m := buildPrecode(p, source, int(e.t))
	solver := newSolver(p.L(), int(e.t))
	for i, row := range m.rows {
		solver.AddRow(row, m.d[i])
	}
	c, err := solver.Solve()
	if err != nil {
		e.log.errorf("raptorq: block %d precode solve failed: %v", sbn, err)
		return nil, err
	}
	return c, nil
}

func (e *Encoder) intermediate(sbn uint8) ([][]byte, error) {
	p, k, err := e.blockParams(sbn)
	if err != nil {
		return nil, err
	}
	h := e.reg.handle(sbn, k, p)
	return h.ensure(func() ([][]byte, error) { return e.buildIntermediate(sbn) })
}

// Precompute eagerly resolves every source block's intermediate vector
// using up to threads concurrent workers (golang.org/x/sync/errgroup
// and semaphore). If background is true it returns
// immediately and lets the workers finish asynchronously; any failure
// is recorded on the affected block and surfaces the next time Encode
// touches it.
func (e *Encoder) Precompute(ctx context.Context, threads int, background bool) error {
	for sbn := 0; sbn < int(e.z); sbn++ {
		p, k, err := e.blockParams(uint8(sbn))
		if err != nil {
			return err
		}
		e.reg.handle(uint8(sbn), k, p)
	}
	return e.reg.precompute(ctx, threads, background, e.buildIntermediate)
}

// PrecomputeMaxMemory returns the largest per-block working-memory
// footprint Precompute will need across every source block.
func (e *Encoder) PrecomputeMaxMemory() (uint64, error) {
	var peak uint64
	for sbn := 0; sbn < int(e.z); sbn++ {
		k := e.it.blockSymbols(sbn)
		mem, err := EstimateMemory(k, int(e.t))
		if err != nil {
			return 0, err
		}
		if mem > peak {
			peak = mem
		}
	}
	return peak, nil
}

// Encode writes encoding symbol esi of block sbn into out, which must be
// at least SymbolSize() bytes, and returns the number of bytes written.
func (e *Encoder) Encode(sbn uint8, esi uint32, out []byte) (int, error) {
	p, _, err := e.blockParams(sbn)
	if err != nil {
		return 0, err
	}
	if esi > MaxESI {
		return 0, ErrEsiOutOfRange
	}
	if len(out) < int(e.t) {
		return 0, ErrBufferTooSmall
	}
	c, err := e.intermediate(sbn)
	if err != nil {
		return 0, err
	}
	sym := ltEncode(p, c, esi, int(e.t))
	copy(out, sym)
	return int(e.t), nil
}

// Free releases block sbn's cached intermediate vector so it will be
// recomputed on next use, reclaiming its working memory.
func (e *Encoder) Free(sbn uint8) { e.reg.free(sbn) }
