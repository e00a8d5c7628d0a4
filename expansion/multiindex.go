// Package expansion builds local Taylor expansions of interaction
// kernels around a center point. A plain Taylor basis stores one
// coefficient per multi-index up to the order; PDE-aware bases shrink
// the stored set by rewriting derivatives through the kernel's PDE and
// expose the stored/full change of basis as a symbolic matrix.
package expansion

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alexfikl/sumpy/symbolic"
)

// MultiIndex records the per-axis derivative order of a mixed partial
// derivative. The component count is the spatial dimension.
type MultiIndex []int

// Total returns the total derivative order, the sum of components.
func (mi MultiIndex) Total() int {
	total := 0
	for _, v := range mi {
		total += v
	}
	return total
}

func (mi MultiIndex) Clone() MultiIndex {
	out := make(MultiIndex, len(mi))
	copy(out, mi)
	return out
}

// Add returns the componentwise sum.
func (mi MultiIndex) Add(other MultiIndex) MultiIndex {
	if len(mi) != len(other) {
		panic("expansion: multi-index length mismatch")
	}
	out := make(MultiIndex, len(mi))
	for i := range mi {
		out[i] = mi[i] + other[i]
	}
	return out
}

// Dominates reports whether mi >= other componentwise, i.e. whether the
// derivative other can be reached from mi by only removing derivatives.
func (mi MultiIndex) Dominates(other MultiIndex) bool {
	if len(mi) != len(other) {
		return false
	}
	for i := range mi {
		if mi[i] < other[i] {
			return false
		}
	}
	return true
}

// Factorial returns the product of the factorials of the components.
func (mi MultiIndex) Factorial() int64 {
	result := int64(1)
	for _, v := range mi {
		for f := int64(2); f <= int64(v); f++ {
			result *= f
		}
	}
	return result
}

// Power returns the monomial vec^mi.
func (mi MultiIndex) Power(vec []symbolic.Expr) symbolic.Expr {
	if len(mi) != len(vec) {
		panic("expansion: multi-index length mismatch")
	}
	factors := make([]symbolic.Expr, len(mi))
	for i := range mi {
		factors[i] = symbolic.PowOf(vec[i], symbolic.N(int64(mi[i])))
	}
	return symbolic.MulOf(factors...)
}

// Less is the lexicographic order on equal-length multi-indices.
func (mi MultiIndex) Less(other MultiIndex) bool {
	for i := range mi {
		if mi[i] != other[i] {
			return mi[i] < other[i]
		}
	}
	return false
}

func (mi MultiIndex) Equal(other MultiIndex) bool {
	if len(mi) != len(other) {
		return false
	}
	for i := range mi {
		if mi[i] != other[i] {
			return false
		}
	}
	return true
}

// Key is a canonical map key for a multi-index.
func (mi MultiIndex) Key() string {
	parts := make([]string, len(mi))
	for i, v := range mi {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (mi MultiIndex) String() string { return "(" + mi.Key() + ")" }

// FullIdentifiers enumerates all multi-indices of dimension dim with
// total order up to order, sorted by total order and lexicographically
// within each order.
func FullIdentifiers(order, dim int) []MultiIndex {
	var out []MultiIndex
	current := make(MultiIndex, dim)
	var walk func(axis, remaining int)
	walk = func(axis, remaining int) {
		if axis == dim-1 {
			current[axis] = remaining
			out = append(out, current.Clone())
			return
		}
		for v := 0; v <= remaining; v++ {
			current[axis] = v
			walk(axis+1, remaining-v)
		}
	}
	for total := 0; total <= order; total++ {
		walk(0, total)
	}
	// The per-order walk emits in lexicographic order already; the sort
	// pins the contract down regardless.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total() != out[j].Total() {
			return out[i].Total() < out[j].Total()
		}
		return out[i].Less(out[j])
	})
	return out
}
