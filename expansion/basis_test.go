package expansion_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexfikl/sumpy/expansion"
	"github.com/alexfikl/sumpy/kernel"
	"github.com/alexfikl/sumpy/symbolic"
)

func TestTaylorBasis_IdentityTransform(t *testing.T) {
	b := expansion.NewTaylorBasis(2, 2)
	assert.Equal(t, len(b.FullIdentifiers()), len(b.StoredIdentifiers()))

	coeffs := symbolic.MakeVector("c", len(b.StoredIdentifiers()))
	round := b.FullToStored(b.StoredToFull(coeffs))
	for i := range coeffs {
		assert.Equal(t, coeffs[i].String(), round[i].String())
	}
}

func TestLaplaceBasis_2DOrder2_StoredSet(t *testing.T) {
	b := expansion.NewLaplaceBasis(2, 2)
	stored := b.StoredIdentifiers()
	require.Len(t, stored, 5)

	// (2,0) is rewritten through the Laplace equation; everything else
	// up to order 2 is stored.
	keys := make([]string, len(stored))
	for i, mi := range stored {
		keys[i] = mi.Key()
	}
	assert.Equal(t, []string{"0,0", "0,1", "1,0", "0,2", "1,1"}, keys)
}

func TestLaplaceBasis_2DOrder2_MatrixRow(t *testing.T) {
	b := expansion.NewLaplaceBasis(2, 2)
	m := b.ReductionMatrix()
	require.Equal(t, 6, m.Rows())
	require.Equal(t, 5, m.Cols())

	// The last full identifier is (2,0); its coefficient is minus the
	// one stored for (0,2), at column 3.
	for j := 0; j < 5; j++ {
		want := "0"
		if j == 3 {
			want = "-1"
		}
		assert.Equal(t, want, m.Get(5, j).String(), "column %d", j)
	}
}

func TestLaplaceBasis_StoredRowsAreUnitRows(t *testing.T) {
	for _, dim := range []int{2, 3} {
		b := expansion.NewLaplaceBasis(4, dim)
		m := b.ReductionMatrix()
		fullPos := map[string]int{}
		for i, mi := range b.FullIdentifiers() {
			fullPos[mi.Key()] = i
		}
		for j, mi := range b.StoredIdentifiers() {
			row := fullPos[mi.Key()]
			for col := 0; col < m.Cols(); col++ {
				want := "0"
				if col == j {
					want = "1"
				}
				assert.Equal(t, want, m.Get(row, col).String(),
					"dim %d stored %s column %d", dim, mi, col)
			}
		}
	}
}

// pdeResidualRows sums fact(mi+2e_j)*row(mi+2e_j) over all axes j. For
// a basis conforming to the Laplace equation the result must vanish
// columnwise, since fact(x)*row(x) maps stored coefficients to the raw
// derivative x.
func pdeResidualRows(b expansion.Basis, mi expansion.MultiIndex) []symbolic.Expr {
	m := b.ReductionMatrix()
	fullPos := map[string]int{}
	for i, id := range b.FullIdentifiers() {
		fullPos[id.Key()] = i
	}
	residual := make([]symbolic.Expr, m.Cols())
	for col := range residual {
		residual[col] = symbolic.N(0)
	}
	for axis := 0; axis < len(mi); axis++ {
		shifted := mi.Clone()
		shifted[axis] += 2
		row := fullPos[shifted.Key()]
		fact := symbolic.N(shifted.Factorial())
		for col := range residual {
			residual[col] = symbolic.AddOf(residual[col], symbolic.MulOf(fact, m.Get(row, col)))
		}
	}
	return residual
}

func TestLaplaceBasis_MatrixConformsToPDE(t *testing.T) {
	for _, tc := range []struct{ order, dim int }{{2, 2}, {4, 2}, {3, 3}} {
		b := expansion.NewLaplaceBasis(tc.order, tc.dim)
		for _, mi := range expansion.FullIdentifiers(tc.order-2, tc.dim) {
			residual := pdeResidualRows(b, mi)
			for col, entry := range residual {
				assert.Equal(t, "0", entry.String(),
					"order %d dim %d identifier %s column %d", tc.order, tc.dim, mi, col)
			}
		}
	}
}

func TestHelmholtzBasis_MatrixConformsToPDE(t *testing.T) {
	k2 := symbolic.PowOf(symbolic.S("k"), symbolic.N(2))
	for _, tc := range []struct{ order, dim int }{{2, 2}, {4, 2}, {3, 3}} {
		b := expansion.NewHelmholtzBasis(tc.order, tc.dim, "k")
		m := b.ReductionMatrix()
		fullPos := map[string]int{}
		for i, id := range b.FullIdentifiers() {
			fullPos[id.Key()] = i
		}
		for _, mi := range expansion.FullIdentifiers(tc.order-2, tc.dim) {
			residual := pdeResidualRows(b, mi)
			// (Delta + k^2) u = 0 adds the k^2 term of the identifier itself.
			row := fullPos[mi.Key()]
			fact := symbolic.N(mi.Factorial())
			for col, entry := range residual {
				total := symbolic.AddOf(entry, symbolic.MulOf(k2, fact, m.Get(row, col)))
				assert.Equal(t, "0", total.String(),
					"order %d dim %d identifier %s column %d", tc.order, tc.dim, mi, col)
			}
		}
	}
}

func TestHelmholtzBasis_2DOrder2_WavenumberEntry(t *testing.T) {
	b := expansion.NewHelmholtzBasis(2, 2, "k")
	m := b.ReductionMatrix()
	require.Len(t, b.StoredIdentifiers(), 5)

	// Row of (2,0): -1 against the (0,2) coefficient and -k^2/2 against
	// the (0,0) coefficient.
	assert.Equal(t, "-1/2*k^2", m.Get(5, 0).String())
	assert.Equal(t, "-1", m.Get(5, 3).String())
}

func TestBasisFor_PicksByBaseKernel(t *testing.T) {
	lap, err := kernel.NewLaplace(2)
	require.NoError(t, err)
	helm, err := kernel.NewHelmholtz(3, "k", false)
	require.NoError(t, err)

	assert.True(t, expansion.BasisFor(lap, 3).Reduced())
	assert.True(t, expansion.BasisFor(helm, 3).Reduced())

	// Derivative wrappers do not change the basis choice.
	wrapped := kernel.AxisTargetDerivative{Axis: 0, Inner: lap}
	bw := expansion.BasisFor(wrapped, 3)
	bl := expansion.BasisFor(lap, 3)
	assert.Equal(t, len(bl.StoredIdentifiers()), len(bw.StoredIdentifiers()))
}

func TestLaplaceBasis_ReductionShrinksWithOrder(t *testing.T) {
	for order := 2; order <= 6; order++ {
		b := expansion.NewLaplaceBasis(order, 2)
		full := len(b.FullIdentifiers())
		stored := len(b.StoredIdentifiers())
		assert.Less(t, stored, full, fmt.Sprintf("order %d", order))
		// In 2D every identifier with a first component >= 2 reduces.
		assert.Equal(t, 2*order+1, stored, "order %d", order)
	}
}
