package expansion

import (
	"fmt"
	"sync"

	"github.com/alexfikl/sumpy/kernel"
	"github.com/alexfikl/sumpy/symbolic"
)

// Expansion is a local Taylor expansion of a kernel around a center, to
// a fixed total order. The source side coordinate is a = center-source
// and the target side coordinate is b = target-center.
//
// The basis is built lazily on first use and then reused; an Expansion
// is safe for concurrent use once constructed.
type Expansion struct {
	knl   kernel.Kernel
	order int

	once    sync.Once
	basis   Basis
	storage map[string]int
}

func New(k kernel.Kernel, order int) (*Expansion, error) {
	if k == nil {
		return nil, fmt.Errorf("expansion: %w: nil kernel", kernel.ErrInvalidConfiguration)
	}
	if order < 0 {
		return nil, fmt.Errorf("expansion: %w: negative order %d", kernel.ErrInvalidConfiguration, order)
	}
	return &Expansion{knl: k, order: order}, nil
}

func (e *Expansion) Kernel() kernel.Kernel { return e.knl }
func (e *Expansion) Order() int            { return e.order }

// Basis returns the coefficient basis, building it once on first call.
func (e *Expansion) Basis() Basis {
	e.once.Do(func() {
		e.basis = BasisFor(e.knl, e.order)
		e.storage = map[string]int{}
		for i, mi := range e.basis.StoredIdentifiers() {
			e.storage[mi.Key()] = i
		}
	})
	return e.basis
}

// Len returns the number of stored coefficients.
func (e *Expansion) Len() int { return len(e.Basis().StoredIdentifiers()) }

// StorageIndex returns the position of mi in the stored coefficient
// vector, or false if mi is not stored.
func (e *Expansion) StorageIndex(mi MultiIndex) (int, bool) {
	e.Basis()
	i, ok := e.storage[mi.Key()]
	return i, ok
}

// CoefficientsFromSource returns the stored coefficient vector for a
// unit-strength source at displacement a from the center: the stored
// derivatives of the kernel expression at a, each divided by the
// factorial of its identifier. The bvec argument carries the
// target-side symbols for kernels whose source processing needs them;
// it may be nil.
func (e *Expansion) CoefficientsFromSource(avec, bvec []symbolic.Expr) ([]symbolic.Expr, error) {
	if len(avec) != e.knl.Dim() {
		return nil, fmt.Errorf("expansion: %w: got %d source components for dimension %d",
			kernel.ErrDimensionMismatch, len(avec), e.knl.Dim())
	}
	names, ok := symbolic.SymNames(avec)
	if !ok {
		return nil, fmt.Errorf("expansion: %w: source coordinates must be symbols", kernel.ErrInvalidConfiguration)
	}
	expr, err := e.knl.Expression(avec)
	if err != nil {
		return nil, err
	}
	expr, err = e.knl.PostprocessAtSource(expr, avec)
	if err != nil {
		return nil, err
	}

	basis := e.Basis()
	var taker *DerivativeTaker
	if basis.Reduced() {
		taker = NewRecurrenceTaker(expr, names, basis)
	} else {
		taker = NewDerivativeTaker(expr, names)
	}
	stored := basis.StoredIdentifiers()
	coeffs := make([]symbolic.Expr, len(stored))
	for i, mi := range stored {
		coeffs[i] = symbolic.MulOf(symbolic.F(1, mi.Factorial()), taker.Diff(mi))
	}
	return coeffs, nil
}

// Evaluate reconstructs the expansion at displacement b from the
// center: the full coefficients recovered through the basis, contracted
// against the monomials b^mi, with the kernel's target processing and
// global scaling applied on top.
func (e *Expansion) Evaluate(coeffs []symbolic.Expr, bvec []symbolic.Expr) (symbolic.Expr, error) {
	basis := e.Basis()
	if len(coeffs) != len(basis.StoredIdentifiers()) {
		return nil, fmt.Errorf("expansion: %w: got %d coefficients, expansion stores %d",
			kernel.ErrInvalidConfiguration, len(coeffs), len(basis.StoredIdentifiers()))
	}
	if len(bvec) != e.knl.Dim() {
		return nil, fmt.Errorf("expansion: %w: got %d target components for dimension %d",
			kernel.ErrDimensionMismatch, len(bvec), e.knl.Dim())
	}
	full := basis.StoredToFull(coeffs)
	terms := make([]symbolic.Expr, len(full))
	for i, mi := range basis.FullIdentifiers() {
		terms[i] = symbolic.MulOf(full[i], mi.Power(bvec))
	}
	result := symbolic.AddOf(terms...)
	result, err := e.knl.PostprocessAtTarget(result, bvec)
	if err != nil {
		return nil, err
	}
	return symbolic.MulOf(e.knl.Scaling(), result), nil
}

// CacheKey identifies the expansion for code caches.
func (e *Expansion) CacheKey() string {
	return fmt.Sprintf("taylor(%s,order=%d)", e.knl.CacheKey(), e.order)
}

// ============================================================
// Registry
// ============================================================

type registryKey struct {
	knl   kernel.Kernel
	order int
}

// Registry memoizes Expansion values per (kernel, order), so the basis
// construction cost is paid once per process for each configuration.
type Registry struct {
	mu sync.Mutex
	m  map[registryKey]*Expansion
}

func NewRegistry() *Registry {
	return &Registry{m: map[registryKey]*Expansion{}}
}

// Get returns the shared Expansion for (k, order), constructing it on
// first request.
func (r *Registry) Get(k kernel.Kernel, order int) (*Expansion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey{knl: k, order: order}
	if e, ok := r.m[key]; ok {
		return e, nil
	}
	e, err := New(k, order)
	if err != nil {
		return nil, err
	}
	r.m[key] = e
	return e, nil
}
