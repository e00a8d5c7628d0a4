// Package p2p assembles direct point-to-point evaluation of kernel
// sets. A computation evaluates several kernels over the same
// source/target geometry at once, sharing strength vectors between
// kernels through a strength-usage mapping, and renders deterministic
// evaluation source keyed for the code cache.
package p2p

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexfikl/sumpy/codecache"
	"github.com/alexfikl/sumpy/kernel"
	"github.com/alexfikl/sumpy/symbolic"
)

// KernelVersion stamps generated code; bump it when the rendering
// changes so stale cache entries are not replayed.
const KernelVersion = "2018.2"

// Dtype names the value type of one kernel's output.
type Dtype string

const (
	Float64    Dtype = "float64"
	Complex128 Dtype = "complex128"
)

// Computation is the shared shape of multi-kernel evaluations: the
// kernel list, which strength vector feeds each kernel, and each
// output's value type.
type Computation struct {
	Kernels       []kernel.Kernel
	StrengthUsage []int
	ValueDtypes   []Dtype
	Name          string

	dim           int
	strengthCount int
}

// NewComputation validates and defaults the computation description.
// A nil strength usage feeds every kernel from strength vector zero; a
// nil dtype list infers each output's type from the kernel.
func NewComputation(kernels []kernel.Kernel, strengthUsage []int, valueDtypes []Dtype, name string) (*Computation, error) {
	if len(kernels) == 0 {
		return nil, fmt.Errorf("p2p: %w: no kernels", kernel.ErrInvalidConfiguration)
	}
	dim := kernels[0].Dim()
	for _, k := range kernels[1:] {
		if k.Dim() != dim {
			return nil, fmt.Errorf("p2p: %w: kernels have dimensions %d and %d", kernel.ErrDimensionMismatch, dim, k.Dim())
		}
	}
	if strengthUsage == nil {
		strengthUsage = make([]int, len(kernels))
	}
	if len(strengthUsage) != len(kernels) {
		return nil, fmt.Errorf("p2p: %w: kernels and strength usage must have the same length", kernel.ErrInvalidConfiguration)
	}
	strengthCount := 0
	for _, u := range strengthUsage {
		if u < 0 {
			return nil, fmt.Errorf("p2p: %w: negative strength index %d", kernel.ErrInvalidConfiguration, u)
		}
		if u+1 > strengthCount {
			strengthCount = u + 1
		}
	}
	if valueDtypes == nil {
		valueDtypes = make([]Dtype, len(kernels))
		for i, k := range kernels {
			if k.IsComplex() {
				valueDtypes[i] = Complex128
			} else {
				valueDtypes[i] = Float64
			}
		}
	}
	if len(valueDtypes) != len(kernels) {
		return nil, fmt.Errorf("p2p: %w: kernels and value dtypes must have the same length", kernel.ErrInvalidConfiguration)
	}
	return &Computation{
		Kernels:       kernels,
		StrengthUsage: strengthUsage,
		ValueDtypes:   valueDtypes,
		Name:          name,
		dim:           dim,
		strengthCount: strengthCount,
	}, nil
}

func (c *Computation) Dim() int           { return c.dim }
func (c *Computation) StrengthCount() int { return c.strengthCount }

// ============================================================
// Direct evaluation
// ============================================================

// P2P renders direct evaluation of its kernels at displacement
// d = target - source. ExcludeSelf masks the diagonal source == target
// contribution, for geometries where sources and targets coincide.
type P2P struct {
	*Computation
	ExcludeSelf bool
}

func New(kernels []kernel.Kernel, excludeSelf bool, strengthUsage []int, valueDtypes []Dtype, name string) (*P2P, error) {
	if name == "" {
		name = "p2p"
	}
	c, err := NewComputation(kernels, strengthUsage, valueDtypes, name)
	if err != nil {
		return nil, err
	}
	return &P2P{Computation: c, ExcludeSelf: excludeSelf}, nil
}

// Output is one kernel's contribution: the scaled symbolic expression
// over the displacement symbols d0..d{dim-1}.
type Output struct {
	Name    string
	Expr    symbolic.Expr
	Scaling symbolic.Expr
	Dtype   Dtype
}

// Outputs builds the per-kernel expressions, with source and target
// processing applied over the displacement symbols.
func (p *P2P) Outputs() ([]Output, error) {
	dvec := symbolic.MakeVector("d", p.dim)
	outputs := make([]Output, len(p.Kernels))
	for i, k := range p.Kernels {
		expr, err := k.Expression(dvec)
		if err != nil {
			return nil, err
		}
		expr, err = k.PostprocessAtSource(expr, dvec)
		if err != nil {
			return nil, err
		}
		expr, err = k.PostprocessAtTarget(expr, dvec)
		if err != nil {
			return nil, err
		}
		outputs[i] = Output{
			Name:    fmt.Sprintf("knl%d", i),
			Expr:    expr,
			Scaling: k.Scaling(),
			Dtype:   p.ValueDtypes[i],
		}
	}
	return outputs, nil
}

// CacheKey identifies the rendered source: the computation type, every
// kernel, the strength wiring, the output types, the self-interaction
// flag, and the code version.
func (p *P2P) CacheKey() string {
	parts := []string{"P2P"}
	for _, k := range p.Kernels {
		parts = append(parts, k.CacheKey())
	}
	usage := make([]string, len(p.StrengthUsage))
	for i, u := range p.StrengthUsage {
		usage[i] = strconv.Itoa(u)
	}
	parts = append(parts, "usage="+strings.Join(usage, ","))
	dtypes := make([]string, len(p.ValueDtypes))
	for i, d := range p.ValueDtypes {
		dtypes[i] = string(d)
	}
	parts = append(parts, "dtypes="+strings.Join(dtypes, ","))
	parts = append(parts, fmt.Sprintf("exclude_self=%t", p.ExcludeSelf))
	parts = append(parts, "version="+KernelVersion)
	return strings.Join(parts, "|")
}

// Source renders the evaluation listing, through the code cache.
func (p *P2P) Source(store codecache.Store) (string, error) {
	src, err := codecache.Lookup(store, p.CacheKey(), p.render)
	if err != nil {
		return "", err
	}
	return string(src), nil
}

func (p *P2P) render() ([]byte, error) {
	outputs, err := p.Outputs()
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s: %d kernels, dim %d, exclude_self=%t\n", p.Name, len(p.Kernels), p.dim, p.ExcludeSelf)
	for i := 0; i < p.dim; i++ {
		fmt.Fprintf(&sb, "d%d = target[%d] - source[%d]\n", i, i, i)
	}
	if p.ExcludeSelf {
		sb.WriteString("if source == target: continue\n")
	}
	for i, out := range outputs {
		fmt.Fprintf(&sb, "%s_scale = %s\n", out.Name, out.Scaling.String())
		fmt.Fprintf(&sb, "%s = %s\n", out.Name, out.Expr.String())
		fmt.Fprintf(&sb, "result[%d] += %s_scale * %s * strength[%d]  // %s\n",
			i, out.Name, out.Name, p.StrengthUsage[i], out.Dtype)
	}
	return []byte(sb.String()), nil
}
