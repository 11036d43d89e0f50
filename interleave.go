package raptorq

// interleaver maps between byte offsets in the source object and the
// (SBN, symbol-index-within-block, byte-offset-within-symbol) coordinate
// system RFC 6330 §4.4.1.2 describes, without copying data: every
// accessor is pure address arithmetic, matching RFC 6330 §4.2's
// "implementation freedom" note.
//
// Source blocks partition the object's symbol sequence contiguously (the
// Partitioner, partition.go). Within a block, each T-byte symbol is
// itself split into N sub-symbols of Al bytes (the last sub-block
// possibly smaller by one alignment unit, per the same partition rule),
// and the wire/byte layout groups by sub-block before symbol index so a
// decoder that only needs one sub-block's worth of a received symbol
// never has to touch the rest of it.
type interleaver struct {
	f, t, z, n, al int

	blockPart    Partition // partitions total symbols (ceil(F/T)) into Z blocks
	subBlockPart Partition // partitions T/Al sub-symbols into N sub-blocks
}

func newInterleaver(f, t, z, n, al int) *interleaver {
	totalSymbols := ceilDiv(f, t)
	return &interleaver{
		f: f, t: t, z: z, n: n, al: al,
		blockPart:    NewPartition(totalSymbols, z),
		subBlockPart: NewPartition(t/al, n),
	}
}

// blockSymbols returns the number of symbols (K) in block sbn.
func (it *interleaver) blockSymbols(sbn int) int {
	class, size := it.blockPart.ClassOf(sbn)
	_ = class
	return size
}

// blockByteStart returns the byte offset in the source object where
// block sbn begins.
func (it *interleaver) blockByteStart(sbn int) int {
	start := 0
	large := it.blockPart.Num(0)
	largeSize := it.blockPart.Size(0)
	smallSize := it.blockPart.Size(1)
	if sbn <= large {
		start = sbn * largeSize * it.t
	} else {
		start = large*largeSize*it.t + (sbn-large)*smallSize*it.t
	}
	return start
}

// subSymbolSize returns the byte length of sub-block n's slice of every
// symbol.
func (it *interleaver) subSymbolSize(n int) int {
	class, size := it.subBlockPart.ClassOf(n)
	_ = class
	return size * it.al
}

// subBlockOffsetWithinSymbol returns the byte offset, relative to the start of a
// symbol's T bytes, where sub-block n's data begins -- equivalently
// K * sum_{m<n} subSymbolSize(m) is the offset of sub-block n relative to
// the start of the *block* (since sub-blocks are grouped across all K
// symbols before the next sub-block begins).
func (it *interleaver) subBlockOffsetWithinSymbol(n int) int {
	off := 0
	for m := 0; m < n; m++ {
		off += it.subSymbolSize(m)
	}
	return off
}

// ByteAt returns the byte offset in the source object of the byte at
// `offset` (0 <= offset < T) within symbol esi of block sbn. Returns -1
// if the requested byte is beyond F (pure padding, contributes zero).
func (it *interleaver) ByteAt(sbn, esi, offset int) int {
	k := it.blockSymbols(sbn)
	blockStart := it.blockByteStart(sbn)

	// Find which sub-block `offset` falls in.
	subBlock := 0
	subOffset := offset
	for n := 0; n < it.n; n++ {
		size := it.subSymbolSize(n)
		if subOffset < size {
			subBlock = n
			break
		}
		subOffset -= size
	}

	subBlockStartInBlock := it.subBlockOffsetWithinSymbol(subBlock) * k
	addr := blockStart + subBlockStartInBlock + esi*it.subSymbolSize(subBlock) + subOffset
	if addr >= it.f {
		return -1
	}
	return addr
}

// ReadSymbol copies the T bytes of symbol esi of block sbn from the
// source object into dst (which must be at least T bytes), zero-filling
// any byte beyond F.
func (it *interleaver) ReadSymbol(source []byte, sbn, esi int, dst []byte) {
	for o := 0; o < it.t; o++ {
		addr := it.ByteAt(sbn, esi, o)
		if addr < 0 {
			dst[o] = 0
			continue
		}
		dst[o] = source[addr]
	}
}

// Scatter writes decoded symbols (one per source-symbol index, block
// sbn) back into out at the positions the interleaver says they came
// from -- the inverse of ReadSymbol -- and returns the number of
// in-range bytes written.
func (it *interleaver) Scatter(symbols [][]byte, sbn int, out []byte) int {
	written := 0
	for esi, sym := range symbols {
		for o := 0; o < it.t; o++ {
			addr := it.ByteAt(sbn, esi, o)
			if addr < 0 || addr >= len(out) {
				continue
			}
			out[addr] = sym[o]
			written++
		}
	}
	return written
}
