package raptorq

import "testing"

func TestParamTableMonotonicAndBounded(t *testing.T) {
	if len(paramTable) != numParamEntries {
		t.Fatalf("paramTable has %d entries, want %d", len(paramTable), numParamEntries)
	}
	for i := 1; i < len(paramTable); i++ {
		if paramTable[i].kPrime <= paramTable[i-1].kPrime {
			t.Fatalf("paramTable not strictly increasing at %d: %d <= %d",
				i, paramTable[i].kPrime, paramTable[i-1].kPrime)
		}
	}
	if paramTable[len(paramTable)-1].kPrime != maxKPrime {
		t.Errorf("last entry kPrime=%d, want %d", paramTable[len(paramTable)-1].kPrime, maxKPrime)
	}
	if paramTable[0].kPrime < minKPrime {
		t.Errorf("first entry kPrime=%d, want >= %d", paramTable[0].kPrime, minKPrime)
	}
}

func TestLookupParamsFindsSmallestAdmissible(t *testing.T) {
	p, err := lookupParams(1)
	if err != nil {
		t.Fatalf("lookupParams(1): %v", err)
	}
	if p.kPrime < 1 {
		t.Errorf("kPrime=%d, want >= 1", p.kPrime)
	}

	exact := paramTable[10].kPrime
	p2, err := lookupParams(exact)
	if err != nil {
		t.Fatalf("lookupParams(%d): %v", exact, err)
	}
	if p2.kPrime != exact {
		t.Errorf("lookupParams(%d).kPrime = %d, want exact match", exact, p2.kPrime)
	}
}

func TestLookupParamsRejectsTooLarge(t *testing.T) {
	_, err := lookupParams(maxKPrime + 1)
	if err != ErrInvalidParameters {
		t.Errorf("lookupParams(maxKPrime+1) = %v, want ErrInvalidParameters", err)
	}
}

func TestBlockParamsLIsSumOfParts(t *testing.T) {
	for _, p := range paramTable[:20] {
		if p.L() != p.kPrime+p.s+p.h {
			t.Errorf("kPrime=%d: L()=%d, want %d", p.kPrime, p.L(), p.kPrime+p.s+p.h)
		}
		if p.P() != p.L()-p.w {
			t.Errorf("kPrime=%d: P()=%d, want %d", p.kPrime, p.P(), p.L()-p.w)
		}
		if p.P1() < p.P() {
			t.Errorf("kPrime=%d: P1()=%d < P()=%d", p.kPrime, p.P1(), p.P())
		}
		if !isPrime(p.P1()) {
			t.Errorf("kPrime=%d: P1()=%d is not prime", p.kPrime, p.P1())
		}
		if !isPrime(p.w) {
			t.Errorf("kPrime=%d: w=%d is not prime", p.kPrime, p.w)
		}
	}
}

func TestCenterBinomialGrows(t *testing.T) {
	prev := 0
	for h := 1; h < 20; h++ {
		v := centerBinomial(h)
		if v < prev {
			t.Errorf("centerBinomial(%d)=%d < centerBinomial(%d)=%d", h, v, h-1, prev)
		}
		prev = v
	}
}

func TestSmallestPrimeAtLeast(t *testing.T) {
	cases := map[int]int{1: 2, 2: 2, 3: 3, 4: 5, 8: 11, 100: 101}
	for in, want := range cases {
		got := smallestPrimeAtLeast(in)
		if got != want {
			t.Errorf("smallestPrimeAtLeast(%d) = %d, want %d", in, got, want)
		}
	}
}
