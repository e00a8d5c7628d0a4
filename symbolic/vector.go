package symbolic

import "fmt"

// ============================================================
// Symbol vectors and vector calculus
// ============================================================

// MakeVector returns n fresh symbols name0, name1, ..., name{n-1}.
func MakeVector(name string, n int) []Expr {
	vec := make([]Expr, n)
	for i := range vec {
		vec[i] = S(fmt.Sprintf("%s%d", name, i))
	}
	return vec
}

// SymNames extracts the names of a symbol vector. The second return is
// false if any component is not a bare symbol.
func SymNames(vec []Expr) ([]string, bool) {
	names := make([]string, len(vec))
	for i, v := range vec {
		s, ok := v.(*Sym)
		if !ok {
			return nil, false
		}
		names[i] = s.Name()
	}
	return names, true
}

// Norm2 returns the Euclidean norm of a vector.
func Norm2(vec []Expr) Expr {
	terms := make([]Expr, len(vec))
	for i, v := range vec {
		terms[i] = PowOf(v, N(2))
	}
	return SqrtOf(AddOf(terms...))
}

// Gradient returns the gradient as a slice of partial derivatives.
func Gradient(expr Expr, varNames []string) []Expr {
	result := make([]Expr, len(varNames))
	for i, v := range varNames {
		result[i] = Diff(expr, v)
	}
	return result
}

// Laplacian returns the sum of second partial derivatives.
func Laplacian(expr Expr, varNames []string) Expr {
	terms := make([]Expr, len(varNames))
	for i, v := range varNames {
		terms[i] = Diff(Diff(expr, v), v)
	}
	return AddOf(terms...).Simplify()
}
