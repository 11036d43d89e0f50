package raptorq

// BlockDescriptor names one source block: its SBN, source symbol count
// K, and byte length within the source object.
type BlockDescriptor struct {
	SBN  uint8
	K    int
	Size int
}

// SourceSymbols returns a restartable iterator over this block's K
// source symbols, ESI 0..K-1.
func (b BlockDescriptor) SourceSymbols() *SymbolIter {
	return newSourceSymbolIter(b.K)
}

// RepairSymbols returns a restartable iterator over up to maxRepair
// repair symbols for this block, ESI K.. , clamped to 2^20-K the same
// way Next's combined walk is.
func (b BlockDescriptor) RepairSymbols(maxRepair int) *SymbolIter {
	return newRepairSymbolIter(b.K, maxRepair)
}

// BlockIter walks every source block of an Encoder or Decoder in SBN
// order. It is restartable and carries no hidden cursor state on the
// encoder/decoder itself: calling Blocks() again always starts a fresh
// iterator back at SBN 0.
type BlockIter struct {
	blocks []BlockDescriptor
	pos    int
}

func newBlockIter(blocks []BlockDescriptor) *BlockIter {
	return &BlockIter{blocks: blocks}
}

// Next returns the next block descriptor and true, or a zero value and
// false once every block has been visited.
func (it *BlockIter) Next() (BlockDescriptor, bool) {
	if it.pos >= len(it.blocks) {
		return BlockDescriptor{}, false
	}
	b := it.blocks[it.pos]
	it.pos++
	return b, true
}

// Len returns the total number of blocks this iterator walks.
func (it *BlockIter) Len() int { return len(it.blocks) }

// SymbolDescriptor names one encoding symbol: its ESI and whether it is
// a source symbol (ESI < K) or a repair symbol (ESI >= K).
type SymbolDescriptor struct {
	ESI      uint32
	IsRepair bool
}

// SymbolIter walks a contiguous range of a block's encoding symbols
// (source only, repair only, or both in sequence). The repair count is
// always clamped to 2^20-K so the ESI space is never exceeded even if
// the caller asks for more than that, and it is a restartable cursor
// rather than a silent wraparound.
type SymbolIter struct {
	start, k, total int
	pos             int
}

// clampRepair bounds a requested repair-symbol count to what the ESI
// space (2^20 values) actually has left after K source symbols.
func clampRepair(k, requestedRepair int) int {
	maxRepair := MaxESI + 1 - k
	if requestedRepair < maxRepair {
		maxRepair = requestedRepair
	}
	if maxRepair < 0 {
		maxRepair = 0
	}
	return maxRepair
}

// newSymbolIter walks a block's K source symbols followed by up to
// requestedRepair repair symbols, in one combined sequence.
func newSymbolIter(k, requestedRepair int) *SymbolIter {
	return &SymbolIter{k: k, total: k + clampRepair(k, requestedRepair)}
}

// newSourceSymbolIter walks only a block's K source symbols.
func newSourceSymbolIter(k int) *SymbolIter {
	return &SymbolIter{k: k, total: k}
}

// newRepairSymbolIter walks only a block's repair symbols, starting at
// ESI K and continuing for up to requestedRepair symbols.
func newRepairSymbolIter(k, requestedRepair int) *SymbolIter {
	return &SymbolIter{start: k, k: k, total: k + clampRepair(k, requestedRepair), pos: k}
}

// Next returns the next symbol descriptor and true, or a zero value and
// false once every symbol in this iterator's range has been visited.
func (it *SymbolIter) Next() (SymbolDescriptor, bool) {
	if it.pos >= it.total {
		return SymbolDescriptor{}, false
	}
	d := SymbolDescriptor{ESI: uint32(it.pos), IsRepair: it.pos >= it.k}
	it.pos++
	return d, true
}

// Len returns the total number of symbols this iterator walks.
func (it *SymbolIter) Len() int { return it.total - it.start }
