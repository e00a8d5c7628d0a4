package symbolic_test

import (
	"math"
	"testing"

	"github.com/alexfikl/sumpy/symbolic"
)

// ============================================================
// Num tests
// ============================================================

func TestNum_Integer(t *testing.T) {
	n := symbolic.N(42)
	if n.String() != "42" {
		t.Errorf("want 42, got %s", n.String())
	}
}

func TestNum_Rational(t *testing.T) {
	n := symbolic.F(1, 3)
	if n.String() != "1/3" {
		t.Errorf("want 1/3, got %s", n.String())
	}
}

func TestNum_Diff_IsZero(t *testing.T) {
	result := symbolic.N(5).Diff("x")
	if symbolic.String(result) != "0" {
		t.Errorf("d/dx(5) should be 0, got %s", symbolic.String(result))
	}
}

// ============================================================
// Sym tests
// ============================================================

func TestSym_Sub_Match(t *testing.T) {
	x := symbolic.S("x")
	result := x.Sub("x", symbolic.N(3))
	if symbolic.String(result) != "3" {
		t.Errorf("want 3, got %s", symbolic.String(result))
	}
}

func TestSym_Diff_Self(t *testing.T) {
	result := symbolic.S("x").Diff("x")
	if symbolic.String(result) != "1" {
		t.Errorf("d/dx(x) should be 1, got %s", symbolic.String(result))
	}
}

// ============================================================
// Add tests
// ============================================================

func TestAdd_Simple(t *testing.T) {
	expr := symbolic.AddOf(symbolic.S("x"), symbolic.N(3))
	if symbolic.String(expr) != "x + 3" {
		t.Errorf("want 'x + 3', got %s", symbolic.String(expr))
	}
}

func TestAdd_LikeTerms(t *testing.T) {
	expr := symbolic.AddOf(symbolic.S("x"), symbolic.S("x"))
	if symbolic.String(expr) != "2*x" {
		t.Errorf("want '2*x', got %s", symbolic.String(expr))
	}
}

func TestAdd_LikeTerms_Cancel(t *testing.T) {
	x, y := symbolic.S("x"), symbolic.S("y")
	expr := symbolic.AddOf(
		symbolic.MulOf(symbolic.N(2), x, y),
		symbolic.MulOf(symbolic.N(-2), y, x),
	)
	if symbolic.String(expr) != "0" {
		t.Errorf("2xy - 2yx should cancel to 0, got %s", symbolic.String(expr))
	}
}

func TestAdd_LikeTerms_KSquared(t *testing.T) {
	// -k^2*x + k^2*x = 0, the shape produced by PDE recurrences.
	k2 := symbolic.PowOf(symbolic.S("k"), symbolic.N(2))
	x := symbolic.S("x")
	expr := symbolic.AddOf(
		symbolic.MulOf(symbolic.N(-1), k2, x),
		symbolic.MulOf(k2, x),
	)
	if symbolic.String(expr) != "0" {
		t.Errorf("want 0, got %s", symbolic.String(expr))
	}
}

func TestAdd_Deterministic(t *testing.T) {
	x, y := symbolic.S("x"), symbolic.S("y")
	a := symbolic.AddOf(x, y, symbolic.N(1))
	b := symbolic.AddOf(symbolic.N(1), y, x)
	if a.String() != b.String() {
		t.Errorf("term order should not matter: %s vs %s", a.String(), b.String())
	}
}

// ============================================================
// Mul tests
// ============================================================

func TestMul_MergePowers(t *testing.T) {
	x := symbolic.S("x")
	expr := symbolic.MulOf(x, x)
	if symbolic.String(expr) != "x^2" {
		t.Errorf("want 'x^2', got %s", symbolic.String(expr))
	}
}

func TestMul_MergeRationalPowers(t *testing.T) {
	u := symbolic.S("u")
	expr := symbolic.MulOf(u, symbolic.PowOf(u, symbolic.F(-5, 2)))
	if symbolic.String(expr) != "u^-3/2" {
		t.Errorf("want 'u^-3/2', got %s", symbolic.String(expr))
	}
}

func TestMul_MergeToOne(t *testing.T) {
	u := symbolic.S("u")
	expr := symbolic.MulOf(u, symbolic.PowOf(u, symbolic.N(-1)))
	if symbolic.String(expr) != "1" {
		t.Errorf("u/u should be 1, got %s", symbolic.String(expr))
	}
}

func TestMul_ByZero(t *testing.T) {
	expr := symbolic.MulOf(symbolic.S("x"), symbolic.N(0))
	if symbolic.String(expr) != "0" {
		t.Errorf("want 0, got %s", symbolic.String(expr))
	}
}

// ============================================================
// Imaginary unit tests
// ============================================================

func TestImag_Squared(t *testing.T) {
	expr := symbolic.MulOf(symbolic.I, symbolic.I)
	if symbolic.String(expr) != "-1" {
		t.Errorf("i*i should be -1, got %s", symbolic.String(expr))
	}
}

func TestImag_Cubed(t *testing.T) {
	expr := symbolic.MulOf(symbolic.I, symbolic.I, symbolic.I)
	if symbolic.String(expr) != "-1*i" {
		t.Errorf("i^3 should be -i, got %s", symbolic.String(expr))
	}
}

func TestImag_FourthPower(t *testing.T) {
	expr := symbolic.MulOf(symbolic.I, symbolic.I, symbolic.I, symbolic.I)
	if symbolic.String(expr) != "1" {
		t.Errorf("i^4 should be 1, got %s", symbolic.String(expr))
	}
}

func TestImag_DiffIsZero(t *testing.T) {
	if symbolic.String(symbolic.I.Diff("x")) != "0" {
		t.Errorf("i is a constant")
	}
}

// ============================================================
// Pi tests
// ============================================================

func TestPi_Cancels(t *testing.T) {
	expr := symbolic.AddOf(symbolic.Pi, symbolic.MulOf(symbolic.N(-1), symbolic.Pi))
	if symbolic.String(expr) != "0" {
		t.Errorf("pi - pi should be 0, got %s", symbolic.String(expr))
	}
}

func TestPi_Eval(t *testing.T) {
	v, ok := symbolic.Pi.Eval()
	if !ok || math.Abs(v.Float64()-math.Pi) > 1e-12 {
		t.Errorf("pi should evaluate to %v", math.Pi)
	}
}

// ============================================================
// Pow tests
// ============================================================

func TestPow_NumericFold(t *testing.T) {
	expr := symbolic.PowOf(symbolic.N(2), symbolic.N(10))
	if symbolic.String(expr) != "1024" {
		t.Errorf("want 1024, got %s", symbolic.String(expr))
	}
}

func TestPow_NestedCollapse(t *testing.T) {
	u := symbolic.S("u")
	expr := symbolic.PowOf(symbolic.PowOf(u, symbolic.F(1, 2)), symbolic.N(2))
	if symbolic.String(expr) != "u" {
		t.Errorf("(u^1/2)^2 should be u, got %s", symbolic.String(expr))
	}
}

func TestPow_Diff(t *testing.T) {
	// d/dx x^3 = 3*x^2
	d := symbolic.Diff(symbolic.PowOf(symbolic.S("x"), symbolic.N(3)), "x")
	if symbolic.String(d) != "3*x^2" {
		t.Errorf("want '3*x^2', got %s", symbolic.String(d))
	}
}

// ============================================================
// Func tests
// ============================================================

func TestFunc_ExpLn_Inverse(t *testing.T) {
	x := symbolic.S("x")
	if symbolic.String(symbolic.ExpOf(symbolic.LnOf(x))) != "x" {
		t.Errorf("exp(ln(x)) should be x")
	}
}

func TestFunc_ExpDiff_ChainRule(t *testing.T) {
	expr := symbolic.ExpOf(symbolic.MulOf(symbolic.N(2), symbolic.S("x")))
	d := symbolic.Diff(expr, "x")
	if symbolic.String(d) != "2*exp(2*x)" {
		t.Errorf("want '2*exp(2*x)', got %s", symbolic.String(d))
	}
}

func TestFunc_LnDiff(t *testing.T) {
	d := symbolic.Diff(symbolic.LnOf(symbolic.S("x")), "x")
	if symbolic.String(d) != "x^-1" {
		t.Errorf("want 'x^-1', got %s", symbolic.String(d))
	}
}

// ============================================================
// Hankel tests
// ============================================================

func TestHankel_String(t *testing.T) {
	h := symbolic.HankelOf(0, symbolic.S("z"))
	if h.String() != "hankel1(0, z)" {
		t.Errorf("want 'hankel1(0, z)', got %s", h.String())
	}
}

func TestHankel_DiffOrderZero(t *testing.T) {
	d := symbolic.Diff(symbolic.HankelOf(0, symbolic.S("z")), "z")
	if symbolic.String(d) != "-1*hankel1(1, z)" {
		t.Errorf("want '-1*hankel1(1, z)', got %s", symbolic.String(d))
	}
}

func TestHankel_DiffHigherOrder(t *testing.T) {
	// d/dz H1_1(z) = H1_0(z) - H1_1(z)/z
	d := symbolic.Diff(symbolic.HankelOf(1, symbolic.S("z")), "z")
	want := symbolic.AddOf(
		symbolic.HankelOf(0, symbolic.S("z")),
		symbolic.MulOf(symbolic.N(-1), symbolic.PowOf(symbolic.S("z"), symbolic.N(-1)), symbolic.HankelOf(1, symbolic.S("z"))),
	)
	if symbolic.String(d) != want.String() {
		t.Errorf("want %s, got %s", want.String(), symbolic.String(d))
	}
}

func TestHankel_DiffOrderTwoCoefficient(t *testing.T) {
	// d/dz H1_2(z) = H1_1(z) - 2*H1_2(z)/z; the recurrence term
	// carries the order as its coefficient.
	d := symbolic.Diff(symbolic.HankelOf(2, symbolic.S("z")), "z")
	want := symbolic.AddOf(
		symbolic.HankelOf(1, symbolic.S("z")),
		symbolic.MulOf(symbolic.N(-2), symbolic.PowOf(symbolic.S("z"), symbolic.N(-1)), symbolic.HankelOf(2, symbolic.S("z"))),
	)
	if symbolic.String(d) != want.String() {
		t.Errorf("want %s, got %s", want.String(), symbolic.String(d))
	}
}

func TestHankel_ChainRule(t *testing.T) {
	// d/dx H1_0(k*x) = -k*H1_1(k*x)
	arg := symbolic.MulOf(symbolic.S("k"), symbolic.S("x"))
	d := symbolic.Diff(symbolic.HankelOf(0, arg), "x")
	want := symbolic.MulOf(symbolic.N(-1), symbolic.S("k"), symbolic.HankelOf(1, arg))
	if symbolic.String(d) != want.String() {
		t.Errorf("want %s, got %s", want.String(), symbolic.String(d))
	}
}

// ============================================================
// Vector calculus tests
// ============================================================

func evalAt(t *testing.T, expr symbolic.Expr, names []string, vals []float64) float64 {
	t.Helper()
	for i, name := range names {
		expr = symbolic.Sub(expr, name, symbolic.NFloat(vals[i]))
	}
	v, ok := expr.Eval()
	if !ok {
		t.Fatalf("expected numeric value for %s", expr.String())
	}
	return v.Float64()
}

func TestLaplacian_LogPotential2D(t *testing.T) {
	vec := symbolic.MakeVector("x", 2)
	names, _ := symbolic.SymNames(vec)
	expr := symbolic.LnOf(symbolic.Norm2(vec))
	lap := symbolic.Laplacian(expr, names)
	v := evalAt(t, lap, names, []float64{3, 4})
	if math.Abs(v) > 1e-9 {
		t.Errorf("ln r should be harmonic away from the origin, got %v", v)
	}
}

func TestLaplacian_CoulombPotential3D(t *testing.T) {
	vec := symbolic.MakeVector("x", 3)
	names, _ := symbolic.SymNames(vec)
	expr := symbolic.PowOf(symbolic.Norm2(vec), symbolic.N(-1))
	lap := symbolic.Laplacian(expr, names)
	v := evalAt(t, lap, names, []float64{1, 2, 3})
	if math.Abs(v) > 1e-9 {
		t.Errorf("1/r should be harmonic away from the origin, got %v", v)
	}
}

func TestGradient_Components(t *testing.T) {
	// grad(x0^2 + x1) = (2*x0, 1)
	vec := symbolic.MakeVector("x", 2)
	names, _ := symbolic.SymNames(vec)
	expr := symbolic.AddOf(symbolic.PowOf(vec[0], symbolic.N(2)), vec[1])
	grad := symbolic.Gradient(expr, names)
	if symbolic.String(grad[0]) != "2*x0" || symbolic.String(grad[1]) != "1" {
		t.Errorf("want (2*x0, 1), got (%s, %s)", grad[0].String(), grad[1].String())
	}
}

func TestNorm2_String(t *testing.T) {
	vec := symbolic.MakeVector("d", 2)
	if symbolic.Norm2(vec).String() != "(d0^2 + d1^2)^1/2" {
		t.Errorf("got %s", symbolic.Norm2(vec).String())
	}
}

// ============================================================
// Expand and FreeSymbols tests
// ============================================================

func TestExpand_Product(t *testing.T) {
	x := symbolic.S("x")
	expr := symbolic.MulOf(symbolic.AddOf(x, symbolic.N(1)), symbolic.AddOf(x, symbolic.N(-1)))
	if symbolic.String(symbolic.Expand(expr)) != "x^2 + -1" {
		t.Errorf("got %s", symbolic.String(symbolic.Expand(expr)))
	}
}

func TestFreeSymbols_Hankel(t *testing.T) {
	expr := symbolic.HankelOf(0, symbolic.MulOf(symbolic.S("k"), symbolic.S("r")))
	syms := symbolic.FreeSymbols(expr)
	if _, ok := syms["k"]; !ok {
		t.Errorf("k should be free in %s", expr.String())
	}
	if _, ok := syms["r"]; !ok {
		t.Errorf("r should be free in %s", expr.String())
	}
}

// ============================================================
// Matrix tests
// ============================================================

func TestMatrix_MulVec(t *testing.T) {
	m := symbolic.NewMatrix(2, 2)
	m.Set(0, 0, symbolic.N(1))
	m.Set(0, 1, symbolic.N(2))
	m.Set(1, 1, symbolic.N(-1))
	out := m.MulVec([]symbolic.Expr{symbolic.S("x"), symbolic.S("y")})
	if symbolic.String(out[0]) != "x + 2*y" {
		t.Errorf("want 'x + 2*y', got %s", symbolic.String(out[0]))
	}
	if symbolic.String(out[1]) != "-1*y" {
		t.Errorf("want '-1*y', got %s", symbolic.String(out[1]))
	}
}

func TestMatrix_Identity(t *testing.T) {
	vec := []symbolic.Expr{symbolic.S("a"), symbolic.S("b"), symbolic.S("c")}
	out := symbolic.Identity(3).MulVec(vec)
	for i := range vec {
		if out[i].String() != vec[i].String() {
			t.Errorf("identity should preserve component %d, got %s", i, out[i].String())
		}
	}
}
