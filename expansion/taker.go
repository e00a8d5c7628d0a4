package expansion

import (
	"fmt"

	"github.com/alexfikl/sumpy/symbolic"
)

// DerivativeTaker memoizes mixed partial derivatives of one base
// expression over a fixed variable vector. The cache is append-only and
// keyed by multi-index, so repeated requests for the same derivative
// return the identical expression.
//
// A new derivative is formed by walking axis by axis, in increasing
// axis order, from the closest already-cached derivative that the
// target dominates; every intermediate step is cached too. Takers built
// with a recurrence-capable basis first try to assemble each step as a
// linear combination of cached derivatives before differentiating.
type DerivativeTaker struct {
	vars  []string
	basis Basis
	cache map[string]symbolic.Expr
	mis   []MultiIndex
}

// NewDerivativeTaker seeds the cache with the zero multi-index mapped
// to expr.
func NewDerivativeTaker(expr symbolic.Expr, vars []string) *DerivativeTaker {
	return newTaker(expr, vars, nil)
}

// NewRecurrenceTaker is a DerivativeTaker that consults the basis for a
// recurrence before falling back to symbolic differentiation.
func NewRecurrenceTaker(expr symbolic.Expr, vars []string, basis Basis) *DerivativeTaker {
	return newTaker(expr, vars, basis)
}

func newTaker(expr symbolic.Expr, vars []string, basis Basis) *DerivativeTaker {
	zero := make(MultiIndex, len(vars))
	t := &DerivativeTaker{
		vars:  vars,
		basis: basis,
		cache: map[string]symbolic.Expr{},
	}
	t.put(zero, expr)
	return t
}

func (t *DerivativeTaker) put(mi MultiIndex, expr symbolic.Expr) {
	key := mi.Key()
	if _, ok := t.cache[key]; ok {
		return
	}
	t.cache[key] = expr
	t.mis = append(t.mis, mi.Clone())
}

func (t *DerivativeTaker) has(mi MultiIndex) bool {
	_, ok := t.cache[mi.Key()]
	return ok
}

// closestCached returns the cached multi-index dominated by mi with the
// smallest remaining derivative count, breaking ties lexicographically.
// The zero multi-index always qualifies.
func (t *DerivativeTaker) closestCached(mi MultiIndex) MultiIndex {
	var best MultiIndex
	bestDist := -1
	for _, cached := range t.mis {
		if !mi.Dominates(cached) {
			continue
		}
		dist := mi.Total() - cached.Total()
		if bestDist < 0 || dist < bestDist || (dist == bestDist && cached.Less(best)) {
			best = cached
			bestDist = dist
		}
	}
	return best
}

// Diff returns the mixed partial derivative identified by mi.
func (t *DerivativeTaker) Diff(mi MultiIndex) symbolic.Expr {
	if len(mi) != len(t.vars) {
		panic(fmt.Sprintf("expansion: multi-index %s does not match %d variables", mi, len(t.vars)))
	}
	if expr, ok := t.cache[mi.Key()]; ok {
		return expr
	}
	current := t.closestCached(mi).Clone()
	expr := t.cache[current.Key()]
	for axis := range mi {
		for current[axis] < mi[axis] {
			current[axis]++
			if cached, ok := t.cache[current.Key()]; ok {
				expr = cached
				continue
			}
			expr = t.step(expr, axis, current)
			t.put(current, expr)
		}
	}
	return expr
}

// step forms the derivative identified by target, one axis order above
// expr. With a recurrence available over the cached set, the derivative
// is a linear combination of cached derivatives; otherwise it is taken
// symbolically.
func (t *DerivativeTaker) step(expr symbolic.Expr, axis int, target MultiIndex) symbolic.Expr {
	if t.basis != nil {
		if terms := t.basis.Recurrence(target, t.has); terms != nil {
			sum := symbolic.Expr(symbolic.N(0))
			for _, term := range terms {
				dep, ok := t.cache[term.Ident.Key()]
				if !ok {
					// The recurrence promised only identifiers it was
					// told are cached; a miss is a defect.
					panic(fmt.Sprintf("expansion: missing recurrence dependency %s for %s", term.Ident, target))
				}
				sum = symbolic.AddOf(sum, symbolic.MulOf(term.Coeff, dep))
			}
			return sum
		}
	}
	return symbolic.Diff(expr, t.vars[axis])
}
