package raptorq

// EstimateMemory returns the approximate peak bytes the precode solver
// needs to hold one block's working state: the dense
// L×L GF(256) coefficient matrix plus a same-size scratch copy the
// inactivation solver's elimination phase keeps alongside it, plus L
// rows of symbolSize-byte right-hand sides.
func EstimateMemory(k int, symbolSize int) (uint64, error) {
	p, err := lookupParams(k)
	if err != nil {
		return 0, err
	}
	l := uint64(p.L())
	return l*l*2 + uint64(symbolSize)*l, nil
}
