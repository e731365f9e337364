package dagspec

// TransformKind enumerates the closed catalog of inline transforms (spec.md
// §4.9). This is a fixed set by design — it is never extended by a plugin,
// only by changing this file.
type TransformKind string

const (
	TransformProject     TransformKind = "project"
	TransformMerge       TransformKind = "merge"
	TransformAnd         TransformKind = "and"
	TransformOr          TransformKind = "or"
	TransformNot         TransformKind = "not"
	TransformConditional TransformKind = "conditional"

	TransformCompareEq  TransformKind = "compare_eq"
	TransformCompareNeq TransformKind = "compare_neq"
	TransformCompareLt  TransformKind = "compare_lt"
	TransformCompareLte TransformKind = "compare_lte"
	TransformCompareGt  TransformKind = "compare_gt"
	TransformCompareGte TransformKind = "compare_gte"

	TransformAdd      TransformKind = "add"
	TransformSubtract TransformKind = "subtract"
	TransformMultiply TransformKind = "multiply"
	TransformDivide   TransformKind = "divide"

	TransformFilter TransformKind = "filter"
	TransformMap    TransformKind = "map"
	TransformAll    TransformKind = "all"
	TransformAny    TransformKind = "any"
)

// requiredInputNames lists the transformInputs names a given Kind demands.
// List HOFs take a single "list" input; their predicate is closed over a
// constant rather than a second data-node input.
var requiredInputNames = map[TransformKind][]string{
	TransformProject:     {"source"},
	TransformMerge:       {"left", "right"},
	TransformAnd:         {"left", "right"},
	TransformOr:          {"left", "right"},
	TransformNot:         {"operand"},
	TransformConditional: {"condition", "whenTrue", "whenFalse"},
	TransformCompareEq:   {"left", "right"},
	TransformCompareNeq:  {"left", "right"},
	TransformCompareLt:   {"left", "right"},
	TransformCompareLte:  {"left", "right"},
	TransformCompareGt:   {"left", "right"},
	TransformCompareGte:  {"left", "right"},
	TransformAdd:         {"left", "right"},
	TransformSubtract:    {"left", "right"},
	TransformMultiply:    {"left", "right"},
	TransformDivide:      {"left", "right"},
	TransformFilter:      {"list"},
	TransformMap:         {"list"},
	TransformAll:         {"list"},
	TransformAny:         {"list"},
}

// RequiredInputNames returns the transformInputs keys a transform of this
// kind must supply.
func RequiredInputNames(kind TransformKind) []string {
	names, ok := requiredInputNames[kind]
	if !ok {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// IsKnownTransformKind reports whether kind is one of the closed catalog.
func IsKnownTransformKind(kind TransformKind) bool {
	_, ok := requiredInputNames[kind]
	return ok
}

// PredicateOp is the operator a list-HOF predicate applies to each element
// (or to the running accumulator, for Filter/All/Any).
type PredicateOp string

const (
	PredicateEq  PredicateOp = "eq"
	PredicateNeq PredicateOp = "neq"
	PredicateLt  PredicateOp = "lt"
	PredicateLte PredicateOp = "lte"
	PredicateGt  PredicateOp = "gt"
	PredicateGte PredicateOp = "gte"
)

// Predicate is the primitive, closed-form predicate the spec requires for
// list HOFs ("filter, map, all, any) with a primitive predicate"): compare
// each element against a constant.
type Predicate struct {
	Op       PredicateOp
	Constant RawConstant
}

// RawConstant is a constant literal embeddable in a DagSpec (definition-time
// data, not a data-node reference). Only primitive kinds are representable;
// constants never carry Option/List/Map/Product shapes.
type RawConstant struct {
	Kind  string // "bool" | "int" | "float" | "string"
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

// InlineTransform is a built-in pure operation attached to a DataNodeSpec,
// evaluated inline in the scheduler rather than dispatched as a module task.
type InlineTransform struct {
	Kind TransformKind

	// FieldName is used by Project: the product field to extract.
	FieldName string

	// Predicate is used by every list HOF (Filter, Map, All, Any); Map
	// applies it per element rather than using it to select elements.
	Predicate *Predicate
}
