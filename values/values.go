// Package values defines the dynamic value set shared by the
// optimizer's constant folder and the CPS interpreter: float64,
// string, and bool, plus the operator semantics that act on them.
// Kept dependency-free so both consumers can import it without
// pulling in AST or environment machinery.
package values

import (
	"fmt"
	"math"
)

// OperatorError reports a non-numeric operand, a division/modulo by
// zero, or an unrecognized operator.
type OperatorError struct {
	Msg string
}

func (e *OperatorError) Error() string { return e.Msg }

// IsFalse reports whether v is exactly the boolean false — the only
// falsy value in this language (0, "", etc. are all truthy).
func IsFalse(v interface{}) bool {
	b, ok := v.(bool)
	return ok && !b
}

// Equal implements "==": numeric by value, strings by content,
// booleans by value, cross-type always false.
func Equal(a, b interface{}) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

func requireNumeric(op string, l, r interface{}) (float64, float64, error) {
	lf, lok := l.(float64)
	rf, rok := r.(float64)
	if !lok || !rok {
		return 0, 0, &OperatorError{Msg: fmt.Sprintf("operator %q requires numeric operands", op)}
	}
	return lf, rf, nil
}

// ApplyBinary implements every binary operator, used identically by
// package optimize (constant folding) and package interp (runtime
// Binary evaluation) so the two never drift apart.
func ApplyBinary(op string, l, r interface{}) (interface{}, error) {
	switch op {
	case "+", "-", "*", "/", "%":
		lf, rf, err := requireNumeric(op, l, r)
		if err != nil {
			return nil, err
		}
		switch op {
		case "+":
			return lf + rf, nil
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, &OperatorError{Msg: "division by zero"}
			}
			return lf / rf, nil
		case "%":
			if rf == 0 {
				return nil, &OperatorError{Msg: "modulo by zero"}
			}
			return lf - math.Floor(lf/rf)*rf, nil
		}

	case "<", ">", "<=", ">=":
		lf, rf, err := requireNumeric(op, l, r)
		if err != nil {
			return nil, err
		}
		switch op {
		case "<":
			return lf < rf, nil
		case ">":
			return lf > rf, nil
		case "<=":
			return lf <= rf, nil
		case ">=":
			return lf >= rf, nil
		}

	case "==":
		return Equal(l, r), nil
	case "!=":
		return !Equal(l, r), nil

	case "&&":
		if IsFalse(l) {
			return false, nil
		}
		return r, nil
	case "||":
		if IsFalse(l) {
			return r, nil
		}
		return l, nil
	}
	return nil, &OperatorError{Msg: fmt.Sprintf("unknown operator %q", op)}
}
