// Package kernel describes translation-invariant point-interaction
// kernels symbolically. A kernel owes its value only to the displacement
// d = target - source, so expressions are built over a displacement
// symbol vector and specialized to source or target coordinates by the
// callers.
//
// Kernels are small comparable values: two kernels constructed the same
// way compare equal with ==, which makes them usable as map keys for
// process-wide caches.
package kernel

import (
	"errors"
	"fmt"

	"github.com/alexfikl/sumpy/symbolic"
)

var (
	// ErrUnsupportedDimension reports a spatial dimension outside the
	// closed-form set for a kernel family.
	ErrUnsupportedDimension = errors.New("unsupported dimension")
	// ErrDimensionMismatch reports a coordinate vector whose length does
	// not match the kernel's fixed dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidConfiguration reports structurally invalid kernel
	// construction or arguments.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Kernel is a symbolic interaction kernel of fixed spatial dimension.
//
// Expression returns the unscaled kernel over a displacement symbol
// vector. Scaling returns the constant global prefactor; it is kept
// apart from Expression so that expansion machinery can differentiate
// the bare expression and apply the prefactor once at the end.
//
// PostprocessAtSource and PostprocessAtTarget apply any derivative
// wrappers to an expression phrased in source-side (a = center-source)
// or target-side (b = target-center) coordinates. Base kernels return
// the expression unchanged.
type Kernel interface {
	Dim() int
	IsComplex() bool
	Expression(dvec []symbolic.Expr) (symbolic.Expr, error)
	Scaling() symbolic.Expr
	PostprocessAtSource(expr symbolic.Expr, avec []symbolic.Expr) (symbolic.Expr, error)
	PostprocessAtTarget(expr symbolic.Expr, bvec []symbolic.Expr) (symbolic.Expr, error)
	BaseKernel() Kernel
	CacheKey() string
}

// ============================================================
// Laplace
// ============================================================

// Laplace is the free-space fundamental solution of the Laplace
// equation: ln r in 2D and 1/r in 3D.
type Laplace struct {
	dim int
}

func NewLaplace(dim int) (Laplace, error) {
	if dim != 2 && dim != 3 {
		return Laplace{}, fmt.Errorf("kernel: %w: laplace has no closed form in dimension %d", ErrUnsupportedDimension, dim)
	}
	return Laplace{dim: dim}, nil
}

func (k Laplace) Dim() int        { return k.dim }
func (k Laplace) IsComplex() bool { return false }

func (k Laplace) Expression(dvec []symbolic.Expr) (symbolic.Expr, error) {
	if len(dvec) != k.dim {
		return nil, fmt.Errorf("kernel: %w: got %d components for dimension %d", ErrDimensionMismatch, len(dvec), k.dim)
	}
	r := symbolic.Norm2(dvec)
	switch k.dim {
	case 2:
		return symbolic.LnOf(r), nil
	case 3:
		return symbolic.PowOf(r, symbolic.N(-1)), nil
	}
	return nil, fmt.Errorf("kernel: %w: dimension %d", ErrUnsupportedDimension, k.dim)
}

func (k Laplace) Scaling() symbolic.Expr {
	switch k.dim {
	case 2:
		// -1/(2 pi)
		return symbolic.MulOf(symbolic.N(-1), symbolic.PowOf(symbolic.MulOf(symbolic.N(2), symbolic.Pi), symbolic.N(-1)))
	case 3:
		// 1/(4 pi)
		return symbolic.PowOf(symbolic.MulOf(symbolic.N(4), symbolic.Pi), symbolic.N(-1))
	}
	return symbolic.N(1)
}

func (k Laplace) PostprocessAtSource(expr symbolic.Expr, avec []symbolic.Expr) (symbolic.Expr, error) {
	return expr, nil
}
func (k Laplace) PostprocessAtTarget(expr symbolic.Expr, bvec []symbolic.Expr) (symbolic.Expr, error) {
	return expr, nil
}
func (k Laplace) BaseKernel() Kernel { return k }
func (k Laplace) CacheKey() string   { return fmt.Sprintf("laplace(dim=%d)", k.dim) }
func (k Laplace) String() string     { return fmt.Sprintf("LapKnl%dD", k.dim) }

// ============================================================
// Helmholtz
// ============================================================

// Helmholtz is the free-space fundamental solution of the Helmholtz
// equation (Delta + k^2) u = 0: the Hankel function H^1_0(k r) in 2D
// and exp(i k r)/r in 3D. The wavenumber stays a named symbol so that
// one symbolic result serves all wavenumber values.
type Helmholtz struct {
	dim             int
	helmholtzK      string
	allowEvanescent bool
}

func NewHelmholtz(dim int, helmholtzK string, allowEvanescent bool) (Helmholtz, error) {
	if dim != 2 && dim != 3 {
		return Helmholtz{}, fmt.Errorf("kernel: %w: helmholtz has no closed form in dimension %d", ErrUnsupportedDimension, dim)
	}
	if helmholtzK == "" {
		helmholtzK = "k"
	}
	return Helmholtz{dim: dim, helmholtzK: helmholtzK, allowEvanescent: allowEvanescent}, nil
}

func (k Helmholtz) Dim() int               { return k.dim }
func (k Helmholtz) IsComplex() bool        { return true }
func (k Helmholtz) WavenumberName() string { return k.helmholtzK }
func (k Helmholtz) AllowEvanescent() bool  { return k.allowEvanescent }

func (k Helmholtz) Expression(dvec []symbolic.Expr) (symbolic.Expr, error) {
	if len(dvec) != k.dim {
		return nil, fmt.Errorf("kernel: %w: got %d components for dimension %d", ErrDimensionMismatch, len(dvec), k.dim)
	}
	r := symbolic.Norm2(dvec)
	wn := symbolic.S(k.helmholtzK)
	switch k.dim {
	case 2:
		return symbolic.HankelOf(0, symbolic.MulOf(wn, r)), nil
	case 3:
		return symbolic.MulOf(
			symbolic.ExpOf(symbolic.MulOf(symbolic.I, wn, r)),
			symbolic.PowOf(r, symbolic.N(-1)),
		), nil
	}
	return nil, fmt.Errorf("kernel: %w: dimension %d", ErrUnsupportedDimension, k.dim)
}

func (k Helmholtz) Scaling() symbolic.Expr {
	switch k.dim {
	case 2:
		// i/4
		return symbolic.MulOf(symbolic.F(1, 4), symbolic.I)
	case 3:
		// 1/(4 pi)
		return symbolic.PowOf(symbolic.MulOf(symbolic.N(4), symbolic.Pi), symbolic.N(-1))
	}
	return symbolic.N(1)
}

func (k Helmholtz) PostprocessAtSource(expr symbolic.Expr, avec []symbolic.Expr) (symbolic.Expr, error) {
	return expr, nil
}
func (k Helmholtz) PostprocessAtTarget(expr symbolic.Expr, bvec []symbolic.Expr) (symbolic.Expr, error) {
	return expr, nil
}
func (k Helmholtz) BaseKernel() Kernel { return k }
func (k Helmholtz) CacheKey() string {
	return fmt.Sprintf("helmholtz(dim=%d,k=%s,evanescent=%t)", k.dim, k.helmholtzK, k.allowEvanescent)
}
func (k Helmholtz) String() string { return fmt.Sprintf("HelmKnl%dD(%s)", k.dim, k.helmholtzK) }

// ============================================================
// Difference of two base kernels
// ============================================================

// Difference is the pointwise difference of two base kernels of the
// same dimension, with each side's prefactor folded into the combined
// expression. Its own Scaling is therefore one.
type Difference struct {
	Positive Kernel
	Negative Kernel
}

func NewDifference(positive, negative Kernel) (Difference, error) {
	if positive.BaseKernel() != positive || negative.BaseKernel() != negative {
		return Difference{}, fmt.Errorf("kernel: %w: difference operands must be base kernels", ErrInvalidConfiguration)
	}
	if positive.Dim() != negative.Dim() {
		return Difference{}, fmt.Errorf("kernel: %w: difference operands have dimensions %d and %d", ErrDimensionMismatch, positive.Dim(), negative.Dim())
	}
	return Difference{Positive: positive, Negative: negative}, nil
}

func (k Difference) Dim() int        { return k.Positive.Dim() }
func (k Difference) IsComplex() bool { return k.Positive.IsComplex() || k.Negative.IsComplex() }

func (k Difference) Expression(dvec []symbolic.Expr) (symbolic.Expr, error) {
	pos, err := k.Positive.Expression(dvec)
	if err != nil {
		return nil, err
	}
	neg, err := k.Negative.Expression(dvec)
	if err != nil {
		return nil, err
	}
	return symbolic.AddOf(
		symbolic.MulOf(k.Positive.Scaling(), pos),
		symbolic.MulOf(symbolic.N(-1), k.Negative.Scaling(), neg),
	), nil
}

func (k Difference) Scaling() symbolic.Expr { return symbolic.N(1) }

func (k Difference) PostprocessAtSource(expr symbolic.Expr, avec []symbolic.Expr) (symbolic.Expr, error) {
	return expr, nil
}
func (k Difference) PostprocessAtTarget(expr symbolic.Expr, bvec []symbolic.Expr) (symbolic.Expr, error) {
	return expr, nil
}
func (k Difference) BaseKernel() Kernel { return k }
func (k Difference) CacheKey() string {
	return fmt.Sprintf("difference(%s,%s)", k.Positive.CacheKey(), k.Negative.CacheKey())
}

// ============================================================
// Derivative wrappers
// ============================================================

// AxisTargetDerivative differentiates the wrapped kernel along one
// target coordinate axis.
type AxisTargetDerivative struct {
	Axis  int
	Inner Kernel
}

func (k AxisTargetDerivative) Dim() int        { return k.Inner.Dim() }
func (k AxisTargetDerivative) IsComplex() bool { return k.Inner.IsComplex() }
func (k AxisTargetDerivative) Expression(dvec []symbolic.Expr) (symbolic.Expr, error) {
	return k.Inner.Expression(dvec)
}
func (k AxisTargetDerivative) Scaling() symbolic.Expr { return k.Inner.Scaling() }

func (k AxisTargetDerivative) PostprocessAtSource(expr symbolic.Expr, avec []symbolic.Expr) (symbolic.Expr, error) {
	return k.Inner.PostprocessAtSource(expr, avec)
}

func (k AxisTargetDerivative) PostprocessAtTarget(expr symbolic.Expr, bvec []symbolic.Expr) (symbolic.Expr, error) {
	expr, err := k.Inner.PostprocessAtTarget(expr, bvec)
	if err != nil {
		return nil, err
	}
	if k.Axis < 0 || k.Axis >= len(bvec) {
		return nil, fmt.Errorf("kernel: %w: axis %d out of range for %d target coordinates", ErrInvalidConfiguration, k.Axis, len(bvec))
	}
	names, ok := symbolic.SymNames(bvec)
	if !ok {
		return nil, fmt.Errorf("kernel: %w: target derivative needs a symbol vector", ErrInvalidConfiguration)
	}
	return symbolic.Diff(expr, names[k.Axis]), nil
}

func (k AxisTargetDerivative) BaseKernel() Kernel { return k.Inner.BaseKernel() }
func (k AxisTargetDerivative) CacheKey() string {
	return fmt.Sprintf("axis_target_derivative(%d,%s)", k.Axis, k.Inner.CacheKey())
}

// DirectionalTargetDerivative differentiates the wrapped kernel along a
// per-target direction vector of symbols DirName0..DirName{dim-1}.
type DirectionalTargetDerivative struct {
	DirName string
	Inner   Kernel
}

func (k DirectionalTargetDerivative) Dim() int        { return k.Inner.Dim() }
func (k DirectionalTargetDerivative) IsComplex() bool { return k.Inner.IsComplex() }
func (k DirectionalTargetDerivative) Expression(dvec []symbolic.Expr) (symbolic.Expr, error) {
	return k.Inner.Expression(dvec)
}
func (k DirectionalTargetDerivative) Scaling() symbolic.Expr { return k.Inner.Scaling() }

func (k DirectionalTargetDerivative) PostprocessAtSource(expr symbolic.Expr, avec []symbolic.Expr) (symbolic.Expr, error) {
	return k.Inner.PostprocessAtSource(expr, avec)
}

func (k DirectionalTargetDerivative) PostprocessAtTarget(expr symbolic.Expr, bvec []symbolic.Expr) (symbolic.Expr, error) {
	expr, err := k.Inner.PostprocessAtTarget(expr, bvec)
	if err != nil {
		return nil, err
	}
	names, ok := symbolic.SymNames(bvec)
	if !ok {
		return nil, fmt.Errorf("kernel: %w: target derivative needs a symbol vector", ErrInvalidConfiguration)
	}
	dir := symbolic.MakeVector(k.DirName, len(bvec))
	terms := make([]symbolic.Expr, len(bvec))
	for j := range bvec {
		terms[j] = symbolic.MulOf(dir[j], symbolic.Diff(expr, names[j]))
	}
	return symbolic.AddOf(terms...), nil
}

func (k DirectionalTargetDerivative) BaseKernel() Kernel { return k.Inner.BaseKernel() }
func (k DirectionalTargetDerivative) CacheKey() string {
	return fmt.Sprintf("directional_target_derivative(%s,%s)", k.DirName, k.Inner.CacheKey())
}

// DirectionalSourceDerivative differentiates the wrapped kernel along a
// per-source direction vector. The source-side coordinate is
// a = center - source, so the derivative with respect to the source
// picks up a sign flip.
type DirectionalSourceDerivative struct {
	DirName string
	Inner   Kernel
}

func (k DirectionalSourceDerivative) Dim() int        { return k.Inner.Dim() }
func (k DirectionalSourceDerivative) IsComplex() bool { return k.Inner.IsComplex() }
func (k DirectionalSourceDerivative) Expression(dvec []symbolic.Expr) (symbolic.Expr, error) {
	return k.Inner.Expression(dvec)
}
func (k DirectionalSourceDerivative) Scaling() symbolic.Expr { return k.Inner.Scaling() }

func (k DirectionalSourceDerivative) PostprocessAtSource(expr symbolic.Expr, avec []symbolic.Expr) (symbolic.Expr, error) {
	expr, err := k.Inner.PostprocessAtSource(expr, avec)
	if err != nil {
		return nil, err
	}
	names, ok := symbolic.SymNames(avec)
	if !ok {
		return nil, fmt.Errorf("kernel: %w: source derivative needs a symbol vector", ErrInvalidConfiguration)
	}
	dir := symbolic.MakeVector(k.DirName, len(avec))
	terms := make([]symbolic.Expr, len(avec))
	for j := range avec {
		terms[j] = symbolic.MulOf(symbolic.N(-1), dir[j], symbolic.Diff(expr, names[j]))
	}
	return symbolic.AddOf(terms...), nil
}

func (k DirectionalSourceDerivative) PostprocessAtTarget(expr symbolic.Expr, bvec []symbolic.Expr) (symbolic.Expr, error) {
	return k.Inner.PostprocessAtTarget(expr, bvec)
}

func (k DirectionalSourceDerivative) BaseKernel() Kernel { return k.Inner.BaseKernel() }
func (k DirectionalSourceDerivative) CacheKey() string {
	return fmt.Sprintf("directional_source_derivative(%s,%s)", k.DirName, k.Inner.CacheKey())
}

// ============================================================
// Helpers
// ============================================================

// Normalize coerces shorthand kernel descriptions into Kernel values:
// a Kernel passes through, the integer 0 means a Laplace kernel, and a
// string names the wavenumber symbol of a Helmholtz kernel.
func Normalize(v any, dim int) (Kernel, error) {
	switch w := v.(type) {
	case Kernel:
		return w, nil
	case int:
		if w == 0 {
			return NewLaplace(dim)
		}
		return NewHelmholtz(dim, fmt.Sprintf("%d", w), false)
	case string:
		return NewHelmholtz(dim, w, false)
	}
	return nil, fmt.Errorf("kernel: %w: cannot interpret %T as a kernel", ErrInvalidConfiguration, v)
}

// CountDerivatives returns the number of derivative wrappers applied on
// top of the base kernel.
func CountDerivatives(k Kernel) int {
	switch w := k.(type) {
	case AxisTargetDerivative:
		return 1 + CountDerivatives(w.Inner)
	case DirectionalTargetDerivative:
		return 1 + CountDerivatives(w.Inner)
	case DirectionalSourceDerivative:
		return 1 + CountDerivatives(w.Inner)
	}
	return 0
}
