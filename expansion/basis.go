package expansion

import (
	"github.com/alexfikl/sumpy/kernel"
	"github.com/alexfikl/sumpy/symbolic"
)

// RecurrenceTerm is one summand of a derivative recurrence: the raw
// derivative identified by Ident, weighted by Coeff.
type RecurrenceTerm struct {
	Ident MultiIndex
	Coeff symbolic.Expr
}

// Basis fixes which expansion coefficients are stored and how stored
// coefficients relate to the full Taylor coefficient set.
//
// The reduction matrix M has one row per full identifier and one column
// per stored identifier, and maps stored coefficients (derivatives
// divided by the factorial of their identifier) to full ones:
// full = M * stored. Rows of stored identifiers are unit rows.
type Basis interface {
	FullIdentifiers() []MultiIndex
	StoredIdentifiers() []MultiIndex
	ReductionMatrix() *symbolic.Matrix
	StoredToFull(stored []symbolic.Expr) []symbolic.Expr
	FullToStored(full []symbolic.Expr) []symbolic.Expr

	// Recurrence rewrites the raw derivative mi as a linear combination
	// of other raw derivatives, consulting has for availability. A nil
	// result means no recurrence applies and mi must be formed directly.
	Recurrence(mi MultiIndex, has func(MultiIndex) bool) []RecurrenceTerm

	// Reduced reports whether the stored set is a strict subset of the
	// full set.
	Reduced() bool
}

// ============================================================
// Plain Taylor basis
// ============================================================

// TaylorBasis stores every coefficient up to the order; the reduction
// matrix is the identity.
type TaylorBasis struct {
	order, dim int
	full       []MultiIndex
}

func NewTaylorBasis(order, dim int) *TaylorBasis {
	return &TaylorBasis{order: order, dim: dim, full: FullIdentifiers(order, dim)}
}

func (b *TaylorBasis) FullIdentifiers() []MultiIndex   { return b.full }
func (b *TaylorBasis) StoredIdentifiers() []MultiIndex { return b.full }
func (b *TaylorBasis) ReductionMatrix() *symbolic.Matrix {
	return symbolic.Identity(len(b.full))
}
func (b *TaylorBasis) StoredToFull(stored []symbolic.Expr) []symbolic.Expr {
	return append([]symbolic.Expr(nil), stored...)
}
func (b *TaylorBasis) FullToStored(full []symbolic.Expr) []symbolic.Expr {
	return append([]symbolic.Expr(nil), full...)
}
func (b *TaylorBasis) Recurrence(MultiIndex, func(MultiIndex) bool) []RecurrenceTerm {
	return nil
}
func (b *TaylorBasis) Reduced() bool { return false }

// ============================================================
// PDE-reduced bases
// ============================================================

type recurrenceRule interface {
	recurrence(mi MultiIndex, has func(MultiIndex) bool) []RecurrenceTerm
}

// laplaceRule rewrites a derivative with some axis order >= 2 through
// the Laplace equation: the second derivative along that axis is minus
// the sum of the second derivatives along the other axes.
type laplaceRule struct{}

func (laplaceRule) recurrence(mi MultiIndex, has func(MultiIndex) bool) []RecurrenceTerm {
	for axis := range mi {
		if mi[axis] < 2 {
			continue
		}
		reduced := mi.Clone()
		reduced[axis] -= 2
		terms := make([]RecurrenceTerm, 0, len(mi)-1)
		ok := true
		for j := range mi {
			if j == axis {
				continue
			}
			needed := reduced.Clone()
			needed[j] += 2
			if !has(needed) {
				ok = false
				break
			}
			terms = append(terms, RecurrenceTerm{Ident: needed, Coeff: symbolic.N(-1)})
		}
		if ok {
			return terms
		}
	}
	return nil
}

// helmholtzRule rewrites through (Delta + k^2) u = 0, which adds a
// -k^2 times the twice-lowered derivative to the Laplace relation.
type helmholtzRule struct {
	wavenumber string
}

func (r helmholtzRule) recurrence(mi MultiIndex, has func(MultiIndex) bool) []RecurrenceTerm {
	for axis := range mi {
		if mi[axis] < 2 {
			continue
		}
		reduced := mi.Clone()
		reduced[axis] -= 2
		if !has(reduced) {
			continue
		}
		terms := make([]RecurrenceTerm, 0, len(mi))
		ok := true
		for j := range mi {
			if j == axis {
				continue
			}
			needed := reduced.Clone()
			needed[j] += 2
			if !has(needed) {
				ok = false
				break
			}
			terms = append(terms, RecurrenceTerm{Ident: needed, Coeff: symbolic.N(-1)})
		}
		if !ok {
			continue
		}
		terms = append(terms, RecurrenceTerm{
			Ident: reduced,
			Coeff: symbolic.MulOf(symbolic.N(-1), symbolic.PowOf(symbolic.S(r.wavenumber), symbolic.N(2))),
		})
		return terms
	}
	return nil
}

// pdeBasis is the shared shape of PDE-reduced bases: full identifiers,
// the stored subset, and the precomputed reduction matrix.
type pdeBasis struct {
	order, dim int
	rule       recurrenceRule
	full       []MultiIndex
	stored     []MultiIndex
	matrix     *symbolic.Matrix
}

// newPDEBasis walks the full identifiers in (total order, lexicographic)
// order. An identifier whose recurrence resolves against the already
// processed set gets a matrix row combined from the rows of its
// recurrence terms; everything else is stored with a unit row.
//
// The recurrence relates raw derivatives while the matrix maps
// factorial-normalized coefficients, so each borrowed row is scaled by
// ident!/mi!.
func newPDEBasis(order, dim int, rule recurrenceRule) *pdeBasis {
	full := FullIdentifiers(order, dim)
	position := map[string]int{}
	rows := make([][]symbolic.Expr, 0, len(full))
	var stored []MultiIndex

	has := func(mi MultiIndex) bool {
		_, ok := position[mi.Key()]
		return ok
	}
	for _, mi := range full {
		terms := rule.recurrence(mi, has)
		var row []symbolic.Expr
		if terms == nil {
			row = zeroRow(len(stored) + 1)
			row[len(stored)] = symbolic.N(1)
			stored = append(stored, mi)
		} else {
			row = zeroRow(len(stored))
			miFact := mi.Factorial()
			for _, t := range terms {
				prev := rows[position[t.Ident.Key()]]
				scale := symbolic.MulOf(t.Coeff, symbolic.F(t.Ident.Factorial(), miFact))
				for j, entry := range prev {
					row[j] = symbolic.AddOf(row[j], symbolic.MulOf(scale, entry))
				}
			}
		}
		position[mi.Key()] = len(rows)
		rows = append(rows, row)
	}

	matrix := symbolic.NewMatrix(len(full), len(stored))
	for i, row := range rows {
		for j, entry := range row {
			matrix.Set(i, j, entry)
		}
	}
	return &pdeBasis{order: order, dim: dim, rule: rule, full: full, stored: stored, matrix: matrix}
}

func zeroRow(n int) []symbolic.Expr {
	row := make([]symbolic.Expr, n)
	for i := range row {
		row[i] = symbolic.N(0)
	}
	return row
}

func (b *pdeBasis) FullIdentifiers() []MultiIndex     { return b.full }
func (b *pdeBasis) StoredIdentifiers() []MultiIndex   { return b.stored }
func (b *pdeBasis) ReductionMatrix() *symbolic.Matrix { return b.matrix }

func (b *pdeBasis) StoredToFull(stored []symbolic.Expr) []symbolic.Expr {
	return b.matrix.MulVec(stored)
}

// FullToStored projects a full coefficient vector down to the stored
// set with the transposed matrix. Unit rows make this an exact
// selection for vectors that already satisfy the PDE relations.
func (b *pdeBasis) FullToStored(full []symbolic.Expr) []symbolic.Expr {
	return b.matrix.Transpose().MulVec(full)
}

func (b *pdeBasis) Recurrence(mi MultiIndex, has func(MultiIndex) bool) []RecurrenceTerm {
	return b.rule.recurrence(mi, has)
}

func (b *pdeBasis) Reduced() bool { return true }

// NewLaplaceBasis returns the PDE-reduced basis for harmonic kernels.
func NewLaplaceBasis(order, dim int) Basis {
	return newPDEBasis(order, dim, laplaceRule{})
}

// NewHelmholtzBasis returns the PDE-reduced basis for kernels
// satisfying the Helmholtz equation with the named wavenumber symbol.
func NewHelmholtzBasis(order, dim int, wavenumber string) Basis {
	return newPDEBasis(order, dim, helmholtzRule{wavenumber: wavenumber})
}

// BasisFor picks the richest basis the kernel's base kernel admits.
func BasisFor(k kernel.Kernel, order int) Basis {
	switch base := k.BaseKernel().(type) {
	case kernel.Laplace:
		return NewLaplaceBasis(order, base.Dim())
	case kernel.Helmholtz:
		return NewHelmholtzBasis(order, base.Dim(), base.WavenumberName())
	}
	return NewTaylorBasis(order, k.Dim())
}
