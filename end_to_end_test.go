package raptorq

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"
)

// roundTrip encodes every block of source with symbolSize T, drops the
// given ESIs per block (by index, applied uniformly across blocks for
// simplicity), feeds the rest to a fresh decoder built from the
// encoder's own OTI, and returns the recovered bytes.
func roundTrip(t *testing.T, source []byte, symbolSize uint16, dropPerBlock map[int]bool, extraRepair int) []byte {
	return roundTripMem(t, source, symbolSize, 0, dropPerBlock, extraRepair)
}

func roundTripMem(t *testing.T, source []byte, symbolSize uint16, maxMemory uint64, dropPerBlock map[int]bool, extraRepair int) []byte {
	t.Helper()
	enc, err := NewEncoder(source, symbolSize, int(symbolSize), maxMemory, nil)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dec, err := NewDecoder(enc.OTICommon(), enc.OTISchemeSpecific(), nil)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	blocks := enc.Blocks()
	for {
		bd, ok := blocks.Next()
		if !ok {
			break
		}
		limit := bd.K + extraRepair
		for esi := 0; esi < limit; esi++ {
			if dropPerBlock[esi] {
				continue
			}
			buf := make([]byte, symbolSize)
			if _, err := enc.Encode(bd.SBN, uint32(esi), buf); err != nil {
				t.Fatalf("Encode(sbn=%d,esi=%d): %v", bd.SBN, esi, err)
			}
			if _, err := dec.AddSymbol(bd.SBN, uint32(esi), buf); err != nil {
				t.Fatalf("AddSymbol(sbn=%d,esi=%d): %v", bd.SBN, esi, err)
			}
		}
	}

	out := make([]byte, len(source))
	if _, err := dec.Decode(out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

// E1: F=10, T=10, single symbol block.
func TestE1SingleSymbol(t *testing.T) {
	source := []byte("0123456789")
	got := roundTrip(t, source, 10, nil, 0)
	if !bytes.Equal(got, source) {
		t.Fatalf("E1: got %q, want %q", got, source)
	}
}

// E2: F=41, T=8, one block of 6 source symbols, drop ESIs 2 and 4.
func TestE2DropTwoSourceSymbols(t *testing.T) {
	source := make([]byte, 41)
	for i := range source {
		source[i] = byte('A' + i%26)
	}
	drop := map[int]bool{2: true, 4: true}
	got := roundTrip(t, source, 8, drop, 5)
	if !bytes.Equal(got, source) {
		t.Fatalf("E2: mismatch\n got %v\nwant %v", got, source)
	}
}

// E3: F=256, T=16, Z=2 blocks of 8 symbols each, drop 4 per block. Z=2
// is forced by bounding maxMemory to the single 8-symbol block's
// working-set size (NewEncoder's maxMemory=0 auto-partition would
// otherwise settle on the single Z=1, K=16 block that already fits
// unbounded memory).
func TestE3TwoBlocksWithLoss(t *testing.T) {
	source := make([]byte, 256)
	for i := range source {
		source[i] = byte(i)
	}
	maxMemory, err := EstimateMemory(8, 16)
	if err != nil {
		t.Fatalf("EstimateMemory: %v", err)
	}
	enc, err := NewEncoder(source, 16, 16, maxMemory, nil)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if enc.Blocks().Len() != 2 {
		t.Fatalf("Blocks().Len() = %d, want 2", enc.Blocks().Len())
	}

	drop := map[int]bool{1: true, 3: true, 6: true, 9: true}
	got := roundTripMem(t, source, 16, maxMemory, drop, 8)
	if !bytes.Equal(got, source) {
		t.Fatalf("E3: mismatch at first diff")
	}
}

// E4 (scaled down from the spec's 1MB/1000-trial scenario to keep this
// test fast): F=16384, T=1024, auto-partition, drop roughly 5% of the
// available symbols per block, and require a successful decode.
func TestE4AutoPartitionWithRandomLoss(t *testing.T) {
	source := make([]byte, 16384)
	rng := rand.New(rand.NewSource(1))
	rng.Read(source)

	enc, err := NewEncoder(source, 1024, 1024, 0, nil)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dec, err := NewDecoder(enc.OTICommon(), enc.OTISchemeSpecific(), nil)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	blocks := enc.Blocks()
	for {
		bd, ok := blocks.Next()
		if !ok {
			break
		}
		total := bd.K + 10
		for esi := 0; esi < total; esi++ {
			if rng.Float64() < 0.05 {
				continue
			}
			buf := make([]byte, 1024)
			if _, err := enc.Encode(bd.SBN, uint32(esi), buf); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if _, err := dec.AddSymbol(bd.SBN, uint32(esi), buf); err != nil {
				t.Fatalf("AddSymbol: %v", err)
			}
		}
	}

	out := make([]byte, len(source))
	if _, err := dec.Decode(out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(out, source) {
		t.Fatalf("E4: reconstructed object does not match source")
	}
}

// E5: concurrent encode from multiple goroutines produces the same
// payload per (sbn, esi) as a single-threaded oracle.
func TestE5ConcurrentEncodeConsistency(t *testing.T) {
	source := make([]byte, 64*1024)
	rng := rand.New(rand.NewSource(2))
	rng.Read(source)

	enc, err := NewEncoder(source, 256, 256, 0, nil)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	type key struct {
		sbn uint8
		esi uint32
	}
	requests := make([]key, 0, 400)
	z := enc.Blocks().Len()
	for i := 0; i < 400; i++ {
		sbn := uint8(rng.Intn(z))
		esi := uint32(rng.Intn(2000))
		requests = append(requests, key{sbn, esi})
	}

	oracle := make(map[key][]byte, len(requests))
	for _, k := range requests {
		buf := make([]byte, 256)
		if _, err := enc.Encode(k.sbn, k.esi, buf); err != nil {
			t.Fatalf("oracle Encode(%v): %v", k, err)
		}
		oracle[k] = buf
	}

	enc2, err := NewEncoder(source, 256, 256, 0, nil)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	mismatches := 0
	threads := 8
	chunk := (len(requests) + threads - 1) / threads
	for w := 0; w < threads; w++ {
		start := w * chunk
		end := start + chunk
		if end > len(requests) {
			end = len(requests)
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(reqs []key) {
			defer wg.Done()
			for _, k := range reqs {
				buf := make([]byte, 256)
				if _, err := enc2.Encode(k.sbn, k.esi, buf); err != nil {
					mu.Lock()
					mismatches++
					mu.Unlock()
					return
				}
				if !bytes.Equal(buf, oracle[k]) {
					mu.Lock()
					mismatches++
					mu.Unlock()
				}
			}
		}(requests[start:end])
	}
	wg.Wait()

	if mismatches != 0 {
		t.Fatalf("E5: %d concurrent encodes disagreed with the single-threaded oracle", mismatches)
	}
}

// E6: OTI round-trip with F=12345, T=64.
func TestE6OTIRoundTripReportsIdenticalPartition(t *testing.T) {
	source := make([]byte, 12345)
	enc, err := NewEncoder(source, 64, 8, 0, nil)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dec, err := NewDecoder(enc.OTICommon(), enc.OTISchemeSpecific(), nil)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	if enc.OTISchemeSpecific().Z() != dec.z {
		t.Errorf("Z mismatch: encoder says %d, decoder internal z=%d", enc.OTISchemeSpecific().Z(), dec.z)
	}
	blocks := enc.Blocks()
	for {
		bd, ok := blocks.Next()
		if !ok {
			break
		}
		decSize, err := dec.BlockSize(bd.SBN)
		if err != nil {
			t.Fatalf("dec.BlockSize(%d): %v", bd.SBN, err)
		}
		if decSize != bd.Size {
			t.Errorf("sbn=%d: encoder size=%d, decoder size=%d", bd.SBN, bd.Size, decSize)
		}
	}
}
