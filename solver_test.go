package raptorq

import (
	"bytes"
	"testing"

	"github.com/rq6330/raptorq/gf256"
)

func TestGaussJordanSolvesIdentity(t *testing.T) {
	l := 4
	symbolSize := 2
	s := newGaussJordanSolver(l, symbolSize)
	want := [][]byte{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	for i := 0; i < l; i++ {
		row := make([]uint8, l)
		row[i] = 1
		s.AddRow(row, want[i])
	}
	got, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGaussJordanSolvesGF256System(t *testing.T) {
	// Two unknowns x0, x1 (each a single byte), two equations:
	//   x0 + x1       = 7  (GF(2) XOR)
	//   2*x0 + 3*x1   = 20 (GF(256) multiply-add)
	s := newGaussJordanSolver(2, 1)
	s.AddRow([]uint8{1, 1}, []byte{7})
	s.AddRow([]uint8{2, 3}, []byte{20})
	got, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	// Verify by substitution instead of hand-solving: reconstruct each
	// equation's left-hand side from the solver's reported unknowns.
	lhs1 := got[0][0] ^ got[1][0]
	if lhs1 != 7 {
		t.Errorf("equation 1: x0 xor x1 = %d, want 7", lhs1)
	}
	lhs2 := gf256.Mul(2, got[0][0]) ^ gf256.Mul(3, got[1][0])
	if lhs2 != 20 {
		t.Errorf("equation 2: 2*x0 + 3*x1 = %d, want 20", lhs2)
	}
}

func TestInactivationSolverMatchesGaussJordan(t *testing.T) {
	p, err := lookupParams(8)
	if err != nil {
		t.Fatalf("lookupParams: %v", err)
	}
	symbolSize := 3
	source := make([][]byte, p.kPrime)
	for i := range source {
		source[i] = make([]byte, symbolSize)
		if i < 8 {
			source[i][0] = byte(100 + i)
			source[i][1] = byte(i)
		}
	}
	m := buildPrecode(p, source, symbolSize)

	inact := newSolver(p.L(), symbolSize)
	gj := newGaussJordanSolver(p.L(), symbolSize)
	for i, row := range m.rows {
		inact.AddRow(row, m.d[i])
		gj.AddRow(row, m.d[i])
	}

	gotInact, err := inact.Solve()
	if err != nil {
		t.Fatalf("inactivation Solve: %v", err)
	}
	gotGJ, err := gj.Solve()
	if err != nil {
		t.Fatalf("gauss-jordan Solve: %v", err)
	}
	for i := range gotInact {
		if !bytes.Equal(gotInact[i], gotGJ[i]) {
			t.Errorf("column %d: inactivation=%v gauss-jordan=%v", i, gotInact[i], gotGJ[i])
		}
	}
}

func TestSolverReportsNeedMoreSymbols(t *testing.T) {
	s := newSolver(4, 1)
	s.AddRow([]uint8{1, 0, 0, 0}, []byte{1})
	_, err := s.Solve()
	if err != ErrNeedMoreSymbols {
		t.Errorf("Solve with too few rows = %v, want ErrNeedMoreSymbols", err)
	}
}
