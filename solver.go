package raptorq

import "github.com/rq6330/raptorq/gf256"

// linearSystem is a polymorphic linear-system solver: add_row / solve,
// with the concrete variant (inactivation decoding or its Gauss-Jordan
// fallback) chosen at construction rather than hard-wired into the
// precode or decode path.
type linearSystem interface {
	// AddRow appends one constraint: coeffs (length L, one GF(256)
	// coefficient per intermediate symbol column) times C equals rhs
	// (one symbol's worth of bytes).
	AddRow(coeffs []uint8, rhs []byte)

	// Solve returns the L intermediate symbols determined by the added
	// rows, or an error (ErrNeedMoreSymbols if fewer than L rows were
	// added, ErrPrecodeFailure if the rows do not determine every
	// column). Redundant rows are not checked for consistency.
	Solve() ([][]byte, error)
}

// newSolver constructs the default solver for an L-column, symbolSize
// system. The inactivation solver is the primary strategy;
// newGaussJordanSolver below is the permitted, simpler fallback used only
// by tests that want to cross-check a result.
func newSolver(l, symbolSize int) linearSystem {
	return newInactivationSolver(l, symbolSize)
}

// inactivationSolver implements inactivation decoding (RFC 6330 §5.4.2.1):
// rows are reduced greedily by ascending weight to expose
// a sparse, implicitly triangular region first; whatever columns cannot
// be resolved that way are "inactivated" and solved densely as a single
// residual system; back-substitution then recovers every column.
//
// Rows are kept as dense length-L coefficient vectors rather than RFC
// 6330's bit-packed sparse representation: this keeps the elimination
// logic readable and correct at the cost of the RFC's better asymptotic
// performance, a trade-off recorded in DESIGN.md.
type inactivationSolver struct {
	l          int
	symbolSize int
	rows       [][]uint8
	rhs        [][]byte
}

func newInactivationSolver(l, symbolSize int) *inactivationSolver {
	return &inactivationSolver{l: l, symbolSize: symbolSize}
}

func (s *inactivationSolver) AddRow(coeffs []uint8, rhs []byte) {
	row := make([]uint8, s.l)
	copy(row, coeffs)
	val := make([]byte, s.symbolSize)
	copy(val, rhs)
	s.rows = append(s.rows, row)
	s.rhs = append(s.rhs, val)
}

func rowWeight(row []uint8) int {
	w := 0
	for _, c := range row {
		if c != 0 {
			w++
		}
	}
	return w
}

func (s *inactivationSolver) Solve() ([][]byte, error) {
	if len(s.rows) < s.l {
		return nil, ErrNeedMoreSymbols
	}

	rows := make([][]uint8, len(s.rows))
	rhs := make([][]byte, len(s.rows))
	for i := range s.rows {
		rows[i] = append([]uint8(nil), s.rows[i]...)
		rhs[i] = append([]byte(nil), s.rhs[i]...)
	}

	// pivotForCol[c] = row index whose leading resolved column is c, or
	// -1 if column c is not yet resolved.
	pivotForCol := make([]int, s.l)
	for i := range pivotForCol {
		pivotForCol[i] = -1
	}
	used := make([]bool, len(rows))
	resolvedCount := 0

	// Phase 1: sparse elimination. Repeatedly find an unused row of
	// weight 1 (a column determined outright) or, failing that, the
	// unused row of minimum weight, and use its lowest-index nonzero
	// column as a pivot, eliminating that column from every other
	// unused row. This exposes the sparse upper-triangular region
	// RFC 6330's precode solve describes before anything is inactivated.
	for resolvedCount < s.l {
		best := -1
		bestWeight := -1
		for i, row := range rows {
			if used[i] {
				continue
			}
			w := rowWeight(row)
			if w == 0 {
				continue
			}
			if w == 1 {
				best = i
				bestWeight = w
				break
			}
			if bestWeight == -1 || w < bestWeight {
				best = i
				bestWeight = w
			}
		}
		if best == -1 || bestWeight > s.l-resolvedCount {
			// No more rows usefully reduce the system by elimination
			// alone; the remaining unresolved columns are inactivated
			// and handed to the dense phase below.
			break
		}
		pivot := -1
		for c, v := range rows[best] {
			if v != 0 && pivotForCol[c] == -1 {
				pivot = c
				break
			}
		}
		if pivot == -1 {
			// Every nonzero column in this row is already resolved; it
			// is redundant (its right-hand side is not checked) so drop
			// it from further consideration.
			used[best] = true
			continue
		}
		used[best] = true
		pivotForCol[pivot] = best
		resolvedCount++

		inv := gf256.Inv(rows[best][pivot])
		if inv != 1 {
			gf256.Vector(rows[best]).Scale(inv)
			gf256.Vector(rhs[best]).Scale(inv)
		}
		for i, row := range rows {
			if used[i] || i == best {
				continue
			}
			coeff := row[pivot]
			if coeff == 0 {
				continue
			}
			gf256.Vector(rows[best]).AXPYInto(gf256.Vector(row), coeff)
			gf256.Vector(rhs[best]).AXPYInto(gf256.Vector(rhs[i]), coeff)
			row[pivot] = 0
		}
	}

	// Phase 2: dense resolution of the inactivated columns. Gather the
	// still-unused rows restricted to the unresolved columns and run
	// ordinary Gauss-Jordan elimination with partial pivoting over that
	// residual (typically much smaller) system.
	var inactive []int
	for c, p := range pivotForCol {
		if p == -1 {
			inactive = append(inactive, c)
		}
	}
	var residualRows []int
	for i, u := range used {
		if !u {
			residualRows = append(residualRows, i)
		}
	}
	if len(inactive) > 0 {
		sub := make([][]uint8, len(residualRows))
		subRHS := make([][]byte, len(residualRows))
		for i, ri := range residualRows {
			row := make([]uint8, len(inactive))
			for j, c := range inactive {
				row[j] = rows[ri][c]
			}
			sub[i] = row
			subRHS[i] = rhs[ri]
		}

		solvedInactive, err := gaussJordan(sub, subRHS, len(inactive), s.symbolSize)
		if err != nil {
			return nil, err
		}

		c := make([][]byte, s.l)
		for j, col := range inactive {
			c[col] = solvedInactive[j]
		}

		// Back-substitute: every row resolved in phase 1 has exactly one
		// remaining unknown (its pivot column) once every other column
		// -- resolved or inactivated -- is known.
		for col, ri := range pivotForCol {
			if ri == -1 {
				continue
			}
			val := make([]byte, s.symbolSize)
			copy(val, rhs[ri])
			for cc, coeff := range rows[ri] {
				if cc == col || coeff == 0 {
					continue
				}
				if c[cc] == nil {
					return nil, ErrPrecodeFailure
				}
				gf256.Vector(c[cc]).AXPYInto(gf256.Vector(val), coeff)
			}
			c[col] = val
		}
		return c, nil
	}

	// No inactivated columns: every column was resolved by the sparse
	// phase alone. Back-substitute in repeated passes
	// (finishBackSubstitution) until every pivot row's other columns are
	// known, since earlier pivot rows may still reference later pivots.
	c := make([][]byte, s.l)
	for col, ri := range pivotForCol {
		if ri == -1 {
			return nil, ErrPrecodeFailure
		}
		c[col] = rhs[ri]
		_ = col
	}
	return finishBackSubstitution(rows, rhs, pivotForCol, s.l, s.symbolSize)
}

// finishBackSubstitution resolves every column when phase 1 alone
// determined all of them, iterating until no more columns can be
// isolated (handles pivot rows that still reference other pivot
// columns directly, not just inactivated ones).
func finishBackSubstitution(rows [][]uint8, rhs [][]byte, pivotForCol []int, l, symbolSize int) ([][]byte, error) {
	c := make([][]byte, l)
	resolved := make([]bool, l)

	progress := true
	for progress {
		progress = false
		for col, ri := range pivotForCol {
			if ri == -1 || resolved[col] {
				continue
			}
			val := make([]byte, symbolSize)
			copy(val, rhs[ri])
			ok := true
			for cc, coeff := range rows[ri] {
				if cc == col || coeff == 0 {
					continue
				}
				if !resolved[cc] {
					ok = false
					break
				}
				gf256.Vector(c[cc]).AXPYInto(gf256.Vector(val), coeff)
			}
			if !ok {
				continue
			}
			c[col] = val
			resolved[col] = true
			progress = true
		}
	}
	for col := range c {
		if c[col] == nil {
			return nil, ErrPrecodeFailure
		}
	}
	return c, nil
}

// gaussJordan solves a (possibly overdetermined) dense GF(256) linear
// system with partial pivoting, returning the n unknowns. Used both as
// the dense "inactivated column" solve inside inactivationSolver and,
// standalone, as the permitted simpler fallback strategy RFC 6330
// allows ("A Gauss-Jordan fallback is permitted but yields worse
// performance").
func gaussJordan(rows [][]uint8, rhs [][]byte, n, symbolSize int) ([][]byte, error) {
	m := len(rows)
	a := make([][]uint8, m)
	b := make([][]byte, m)
	for i := range rows {
		a[i] = append([]uint8(nil), rows[i]...)
		b[i] = append([]byte(nil), rhs[i]...)
	}

	row := 0
	colPivotRow := make([]int, n)
	for i := range colPivotRow {
		colPivotRow[i] = -1
	}

	for col := 0; col < n && row < m; col++ {
		pivot := -1
		for r := row; r < m; r++ {
			if a[r][col] != 0 {
				pivot = r
				break
			}
		}
		if pivot == -1 {
			continue
		}
		a[row], a[pivot] = a[pivot], a[row]
		b[row], b[pivot] = b[pivot], b[row]

		inv := gf256.Inv(a[row][col])
		if inv != 1 {
			gf256.Vector(a[row]).Scale(inv)
			gf256.Vector(b[row]).Scale(inv)
		}
		for r := 0; r < m; r++ {
			if r == row {
				continue
			}
			coeff := a[r][col]
			if coeff == 0 {
				continue
			}
			gf256.Vector(a[row]).AXPYInto(gf256.Vector(a[r]), coeff)
			gf256.Vector(b[row]).AXPYInto(gf256.Vector(b[r]), coeff)
			a[r][col] = 0
		}
		colPivotRow[col] = row
		row++
	}

	out := make([][]byte, n)
	for col := 0; col < n; col++ {
		if colPivotRow[col] == -1 {
			return nil, ErrPrecodeFailure
		}
		out[col] = b[colPivotRow[col]]
	}
	return out, nil
}

// newGaussJordanSolver builds a linearSystem backed directly by
// gaussJordan, with no inactivation/sparsity phase. Slower on large
// systems, but a useful correctness cross-check and a legitimate
// fallback.
func newGaussJordanSolver(l, symbolSize int) linearSystem {
	return &gaussJordanSolver{l: l, symbolSize: symbolSize}
}

type gaussJordanSolver struct {
	l, symbolSize int
	rows          [][]uint8
	rhs           [][]byte
}

func (s *gaussJordanSolver) AddRow(coeffs []uint8, rhs []byte) {
	row := make([]uint8, s.l)
	copy(row, coeffs)
	val := make([]byte, s.symbolSize)
	copy(val, rhs)
	s.rows = append(s.rows, row)
	s.rhs = append(s.rhs, val)
}

func (s *gaussJordanSolver) Solve() ([][]byte, error) {
	if len(s.rows) < s.l {
		return nil, ErrNeedMoreSymbols
	}
	return gaussJordan(s.rows, s.rhs, s.l, s.symbolSize)
}
