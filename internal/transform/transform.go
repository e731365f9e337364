// Package transform is the C9 inline transform engine: a pure, total
// evaluator for the closed catalog of InlineTransform kinds (spec.md
// §4.9). Every function here assumes its inputs are already Computed;
// callers (internal/engine) are responsible for sequencing evaluation so
// that holds.
package transform

import (
	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// Evaluate computes a single InlineTransform's output from its already-
// resolved named inputs. outputType is the declared CType of the data
// node the transform feeds; Filter takes its result list's element type
// from it. The other kinds build their result from the inputs alone.
func Evaluate(t dagspec.InlineTransform, inputs map[string]cvalue.CValue, outputType ctype.CType) (cvalue.CValue, error) {
	switch t.Kind {
	case dagspec.TransformProject:
		return evalProject(t, inputs)
	case dagspec.TransformMerge:
		return evalMerge(inputs, outputType)
	case dagspec.TransformAnd:
		return evalBoolBinary(inputs, func(a, b bool) bool { return a && b })
	case dagspec.TransformOr:
		return evalBoolBinary(inputs, func(a, b bool) bool { return a || b })
	case dagspec.TransformNot:
		return evalNot(inputs)
	case dagspec.TransformConditional:
		return evalConditional(inputs)
	case dagspec.TransformCompareEq, dagspec.TransformCompareNeq, dagspec.TransformCompareLt,
		dagspec.TransformCompareLte, dagspec.TransformCompareGt, dagspec.TransformCompareGte:
		return evalCompare(t.Kind, inputs)
	case dagspec.TransformAdd, dagspec.TransformSubtract, dagspec.TransformMultiply, dagspec.TransformDivide:
		return evalArithmetic(t.Kind, inputs)
	case dagspec.TransformFilter:
		return evalFilter(t, inputs, outputType)
	case dagspec.TransformMap:
		return evalMap(t, inputs)
	case dagspec.TransformAll:
		return evalQuantifier(t, inputs, true)
	case dagspec.TransformAny:
		return evalQuantifier(t, inputs, false)
	default:
		return cvalue.CValue{}, xerrors.New(xerrors.CodeUnsupportedOp, "unknown inline transform kind").
			WithContext(map[string]interface{}{"kind": string(t.Kind)})
	}
}

func input(inputs map[string]cvalue.CValue, name string) (cvalue.CValue, error) {
	v, ok := inputs[name]
	if !ok {
		return cvalue.CValue{}, xerrors.New(xerrors.CodeInputValidation, "inline transform missing required input").
			WithContext(map[string]interface{}{"input": name})
	}
	return v, nil
}

func typeErr(op, expected string, actual ctype.CType) error {
	return xerrors.TypeMismatchError(expected, actual.String(), map[string]interface{}{"transform": op})
}

func evalProject(t dagspec.InlineTransform, inputs map[string]cvalue.CValue) (cvalue.CValue, error) {
	source, err := input(inputs, "source")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if source.Type.Kind != ctype.KindProduct {
		return cvalue.CValue{}, typeErr("project", "Product", source.Type)
	}
	field, ok := source.Field(t.FieldName)
	if !ok {
		return cvalue.CValue{}, xerrors.New(xerrors.CodeUndefinedVariable, "project: field not present on product").
			WithContext(map[string]interface{}{"field": t.FieldName})
	}
	return field, nil
}

func evalMerge(inputs map[string]cvalue.CValue, outputType ctype.CType) (cvalue.CValue, error) {
	left, err := input(inputs, "left")
	if err != nil {
		return cvalue.CValue{}, err
	}
	right, err := input(inputs, "right")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if left.Type.Kind != ctype.KindProduct {
		return cvalue.CValue{}, typeErr("merge", "Product", left.Type)
	}
	if right.Type.Kind != ctype.KindProduct {
		return cvalue.CValue{}, typeErr("merge", "Product", right.Type)
	}

	fieldTypes := make(map[string]ctype.CType, len(left.Type.Fields)+len(right.Type.Fields))
	fields := make(map[string]cvalue.CValue, len(left.ProductV)+len(right.ProductV))
	for name, v := range left.ProductV {
		fieldTypes[name] = left.Type.Fields[name]
		fields[name] = v
	}
	for name, v := range right.ProductV {
		if _, exists := fields[name]; exists {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeValidation, "merge: left and right product field sets are not disjoint").
				WithContext(map[string]interface{}{"field": name})
		}
		fieldTypes[name] = right.Type.Fields[name]
		fields[name] = v
	}
	return cvalue.NewProduct(fieldTypes, fields), nil
}

func evalBoolBinary(inputs map[string]cvalue.CValue, op func(a, b bool) bool) (cvalue.CValue, error) {
	left, err := input(inputs, "left")
	if err != nil {
		return cvalue.CValue{}, err
	}
	right, err := input(inputs, "right")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if left.Type.Kind != ctype.KindBool {
		return cvalue.CValue{}, typeErr("boolean", "Bool", left.Type)
	}
	if right.Type.Kind != ctype.KindBool {
		return cvalue.CValue{}, typeErr("boolean", "Bool", right.Type)
	}
	return cvalue.NewBool(op(left.BoolV, right.BoolV)), nil
}

func evalNot(inputs map[string]cvalue.CValue) (cvalue.CValue, error) {
	operand, err := input(inputs, "operand")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if operand.Type.Kind != ctype.KindBool {
		return cvalue.CValue{}, typeErr("not", "Bool", operand.Type)
	}
	return cvalue.NewBool(!operand.BoolV), nil
}

func evalConditional(inputs map[string]cvalue.CValue) (cvalue.CValue, error) {
	cond, err := input(inputs, "condition")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if cond.Type.Kind != ctype.KindBool {
		return cvalue.CValue{}, typeErr("conditional", "Bool", cond.Type)
	}
	whenTrue, err := input(inputs, "whenTrue")
	if err != nil {
		return cvalue.CValue{}, err
	}
	whenFalse, err := input(inputs, "whenFalse")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if !whenTrue.Type.Equal(whenFalse.Type) {
		return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeMismatch, "conditional: whenTrue and whenFalse must share a type").
			WithContext(map[string]interface{}{"whenTrue": whenTrue.Type.String(), "whenFalse": whenFalse.Type.String()})
	}
	if cond.BoolV {
		return whenTrue, nil
	}
	return whenFalse, nil
}

func evalCompare(kind dagspec.TransformKind, inputs map[string]cvalue.CValue) (cvalue.CValue, error) {
	left, err := input(inputs, "left")
	if err != nil {
		return cvalue.CValue{}, err
	}
	right, err := input(inputs, "right")
	if err != nil {
		return cvalue.CValue{}, err
	}
	result, err := compare(kind, left, right)
	if err != nil {
		return cvalue.CValue{}, err
	}
	return cvalue.NewBool(result), nil
}

// compare evaluates one of the six comparison operators between two
// CValues. Eq/Neq accept any pair of equal-typed comparables; ordering
// comparisons (Lt/Lte/Gt/Gte) are only defined for Int, Float, and String.
func compare(kind dagspec.TransformKind, left, right cvalue.CValue) (bool, error) {
	if !left.Type.Equal(right.Type) {
		return false, xerrors.New(xerrors.CodeTypeMismatch, "compare: left and right must share a type").
			WithContext(map[string]interface{}{"left": left.Type.String(), "right": right.Type.String()})
	}
	if kind == dagspec.TransformCompareEq {
		return cvalue.Equal(left, right), nil
	}
	if kind == dagspec.TransformCompareNeq {
		return !cvalue.Equal(left, right), nil
	}

	switch left.Type.Kind {
	case ctype.KindInt:
		return orderedCompare(kind, float64(left.IntV), float64(right.IntV)), nil
	case ctype.KindFloat:
		return orderedCompare(kind, left.FloatV, right.FloatV), nil
	case ctype.KindString:
		return orderedStringCompare(kind, left.StringV, right.StringV), nil
	default:
		return false, xerrors.New(xerrors.CodeUnsupportedOp, "ordering comparison is only defined for Int, Float, and String").
			WithContext(map[string]interface{}{"type": left.Type.String()})
	}
}

func orderedCompare(kind dagspec.TransformKind, a, b float64) bool {
	switch kind {
	case dagspec.TransformCompareLt:
		return a < b
	case dagspec.TransformCompareLte:
		return a <= b
	case dagspec.TransformCompareGt:
		return a > b
	case dagspec.TransformCompareGte:
		return a >= b
	default:
		return false
	}
}

func orderedStringCompare(kind dagspec.TransformKind, a, b string) bool {
	switch kind {
	case dagspec.TransformCompareLt:
		return a < b
	case dagspec.TransformCompareLte:
		return a <= b
	case dagspec.TransformCompareGt:
		return a > b
	case dagspec.TransformCompareGte:
		return a >= b
	default:
		return false
	}
}

func evalArithmetic(kind dagspec.TransformKind, inputs map[string]cvalue.CValue) (cvalue.CValue, error) {
	left, err := input(inputs, "left")
	if err != nil {
		return cvalue.CValue{}, err
	}
	right, err := input(inputs, "right")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if !left.Type.Equal(right.Type) {
		return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeMismatch, "arithmetic: left and right must share a type").
			WithContext(map[string]interface{}{"left": left.Type.String(), "right": right.Type.String()})
	}

	switch left.Type.Kind {
	case ctype.KindInt:
		if kind == dagspec.TransformDivide && right.IntV == 0 {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeModuleExecution, "integer division by zero")
		}
		return cvalue.NewInt(intArithmetic(kind, left.IntV, right.IntV)), nil
	case ctype.KindFloat:
		if kind == dagspec.TransformDivide && right.FloatV == 0 {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeModuleExecution, "floating point division by zero")
		}
		return cvalue.NewFloat(floatArithmetic(kind, left.FloatV, right.FloatV)), nil
	default:
		return cvalue.CValue{}, xerrors.New(xerrors.CodeUnsupportedOp, "arithmetic is only defined for Int and Float").
			WithContext(map[string]interface{}{"type": left.Type.String()})
	}
}

func intArithmetic(kind dagspec.TransformKind, a, b int64) int64 {
	switch kind {
	case dagspec.TransformAdd:
		return a + b
	case dagspec.TransformSubtract:
		return a - b
	case dagspec.TransformMultiply:
		return a * b
	case dagspec.TransformDivide:
		return a / b
	default:
		return 0
	}
}

func floatArithmetic(kind dagspec.TransformKind, a, b float64) float64 {
	switch kind {
	case dagspec.TransformAdd:
		return a + b
	case dagspec.TransformSubtract:
		return a - b
	case dagspec.TransformMultiply:
		return a * b
	case dagspec.TransformDivide:
		return a / b
	default:
		return 0
	}
}

func rawConstantToCValue(c dagspec.RawConstant) (cvalue.CValue, error) {
	switch c.Kind {
	case "bool":
		return cvalue.NewBool(c.Bool), nil
	case "int":
		return cvalue.NewInt(c.Int), nil
	case "float":
		return cvalue.NewFloat(c.Float), nil
	case "string":
		return cvalue.NewString(c.Str), nil
	default:
		return cvalue.CValue{}, xerrors.New(xerrors.CodeValidation, "unknown raw constant kind").
			WithContext(map[string]interface{}{"kind": c.Kind})
	}
}

func evalPredicate(pred *dagspec.Predicate, elem cvalue.CValue) (bool, error) {
	if pred == nil {
		return false, xerrors.New(xerrors.CodeValidation, "list HOF requires a predicate")
	}
	constant, err := rawConstantToCValue(pred.Constant)
	if err != nil {
		return false, err
	}
	kind := predicateOpToTransformKind(pred.Op)
	return compare(kind, elem, constant)
}

func predicateOpToTransformKind(op dagspec.PredicateOp) dagspec.TransformKind {
	switch op {
	case dagspec.PredicateEq:
		return dagspec.TransformCompareEq
	case dagspec.PredicateNeq:
		return dagspec.TransformCompareNeq
	case dagspec.PredicateLt:
		return dagspec.TransformCompareLt
	case dagspec.PredicateLte:
		return dagspec.TransformCompareLte
	case dagspec.PredicateGt:
		return dagspec.TransformCompareGt
	default:
		return dagspec.TransformCompareGte
	}
}

func evalFilter(t dagspec.InlineTransform, inputs map[string]cvalue.CValue, outputType ctype.CType) (cvalue.CValue, error) {
	list, err := input(inputs, "list")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if list.Type.Kind != ctype.KindList {
		return cvalue.CValue{}, typeErr("filter", "List", list.Type)
	}
	elem := ctype.Unit
	if outputType.Kind == ctype.KindList && outputType.Elem != nil {
		elem = *outputType.Elem
	} else if list.Type.Elem != nil {
		elem = *list.Type.Elem
	}

	kept := make([]cvalue.CValue, 0, len(list.ListV))
	for _, e := range list.ListV {
		ok, err := evalPredicate(t.Predicate, e)
		if err != nil {
			return cvalue.CValue{}, err
		}
		if ok {
			kept = append(kept, e)
		}
	}
	return cvalue.NewList(elem, kept), nil
}

// evalMap implements Map by applying the transform's Predicate to every list
// element and collecting the per-element Bool result, the same non-closure
// mechanism evalFilter and evalQuantifier already use (spec.md §4.9's
// non-goal on embedded closures rules out a user-supplied per-element
// function, not per-element use of the existing Predicate comparator).
// Filter keeps elements the predicate selects; Map keeps the predicate's
// verdict for every element instead of discarding any of them.
func evalMap(t dagspec.InlineTransform, inputs map[string]cvalue.CValue) (cvalue.CValue, error) {
	list, err := input(inputs, "list")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if list.Type.Kind != ctype.KindList {
		return cvalue.CValue{}, typeErr("map", "List", list.Type)
	}

	mapped := make([]cvalue.CValue, len(list.ListV))
	for i, e := range list.ListV {
		ok, err := evalPredicate(t.Predicate, e)
		if err != nil {
			return cvalue.CValue{}, err
		}
		mapped[i] = cvalue.NewBool(ok)
	}
	return cvalue.NewList(ctype.Bool, mapped), nil
}

func evalQuantifier(t dagspec.InlineTransform, inputs map[string]cvalue.CValue, isAll bool) (cvalue.CValue, error) {
	list, err := input(inputs, "list")
	if err != nil {
		return cvalue.CValue{}, err
	}
	if list.Type.Kind != ctype.KindList {
		return cvalue.CValue{}, typeErr("quantifier", "List", list.Type)
	}
	for _, e := range list.ListV {
		ok, err := evalPredicate(t.Predicate, e)
		if err != nil {
			return cvalue.CValue{}, err
		}
		if isAll && !ok {
			return cvalue.NewBool(false), nil
		}
		if !isAll && ok {
			return cvalue.NewBool(true), nil
		}
	}
	return cvalue.NewBool(isAll), nil
}
