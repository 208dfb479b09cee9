package expr

import (
	"math"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// Context values reach the evaluator as int from YAML literals and as
// float64 after a JSON round trip, so arithmetic accepts any mix of the
// two and computes in float64. Only integer operands with an integral
// result give an int back.
const maxExactInt = 1 << 53

// arithmeticFuncs maps the built-in operators to their number-aware
// replacements.
var arithmeticFuncs = map[string]string{
	operators.Add:      "@num_add",
	operators.Subtract: "@num_sub",
	operators.Multiply: "@num_mul",
	operators.Divide:   "@num_div",
	operators.Modulo:   "@num_mod",
}

func arithmeticFunctions() []cel.EnvOption {
	opts := make([]cel.EnvOption, 0, len(arithmeticFuncs))
	for op, name := range arithmeticFuncs {
		op := op
		opts = append(opts, cel.Function(name,
			cel.Overload(name+"_dyn_dyn",
				[]*cel.Type{cel.DynType, cel.DynType}, cel.DynType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return arithmetic(op, lhs, rhs)
				}),
			),
		))
	}
	return opts
}

// rewriteArithmetic swaps operator calls in a parsed expression for the
// number-aware functions.
func rewriteArithmetic(a *ast.AST) {
	fac := ast.NewExprFactory()
	ast.PostOrderVisit(a.Expr(), ast.NewExprVisitor(func(e ast.Expr) {
		if e.Kind() != ast.CallKind {
			return
		}
		call := e.AsCall()
		name, ok := arithmeticFuncs[call.FunctionName()]
		if !ok || call.IsMemberFunction() || len(call.Args()) != 2 {
			return
		}
		e.SetKindCase(fac.NewCall(e.ID(), name, call.Args()...))
	}))
}

func arithmetic(op string, lhs, rhs ref.Val) ref.Val {
	l, lint, lok := number(lhs)
	r, rint, rok := number(rhs)
	if !lok || !rok {
		return traitArithmetic(op, lhs, rhs)
	}

	var out float64
	switch op {
	case operators.Add:
		out = l + r
	case operators.Subtract:
		out = l - r
	case operators.Multiply:
		out = l * r
	case operators.Divide:
		if r == 0 {
			return types.NewErr("division by zero")
		}
		out = l / r
	case operators.Modulo:
		if r == 0 {
			return types.NewErr("modulus by zero")
		}
		out = math.Mod(l, r)
	}
	if lint && rint && out == math.Trunc(out) && math.Abs(out) <= maxExactInt {
		return types.Int(int64(out))
	}
	return types.Double(out)
}

// traitArithmetic keeps the built-in behaviour for non-numeric operands
// such as string and list concatenation or timestamp math.
func traitArithmetic(op string, lhs, rhs ref.Val) ref.Val {
	switch op {
	case operators.Add:
		if v, ok := lhs.(traits.Adder); ok {
			return v.Add(rhs)
		}
	case operators.Subtract:
		if v, ok := lhs.(traits.Subtractor); ok {
			return v.Subtract(rhs)
		}
	case operators.Multiply:
		if v, ok := lhs.(traits.Multiplier); ok {
			return v.Multiply(rhs)
		}
	case operators.Divide:
		if v, ok := lhs.(traits.Divider); ok {
			return v.Divide(rhs)
		}
	case operators.Modulo:
		if v, ok := lhs.(traits.Modder); ok {
			return v.Modulo(rhs)
		}
	}
	return types.MaybeNoSuchOverloadErr(lhs)
}

// number returns v as float64 and whether it is an integer kind.
func number(v ref.Val) (float64, bool, bool) {
	switch n := v.(type) {
	case types.Int:
		return float64(n), true, true
	case types.Uint:
		return float64(n), true, true
	case types.Double:
		return float64(n), false, true
	}
	return 0, false, false
}
