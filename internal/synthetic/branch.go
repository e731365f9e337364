// Package synthetic is the C7 synthetic module factory: given a DagSpec,
// it reconstructs an executable image.ModuleImpl for every built-in
// module node it knows how to rebuild purely from declared metadata.
// Synthetic nodes it doesn't recognize (e.g. a user-supplied closure) are
// left alone — the caller's LoadedPipeline.SyntheticModules map must
// supply those separately.
package synthetic

import (
	"context"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// KindBranch is the DefinitionContext["kind"] value that marks a module
// node as a built-in branch selector.
const KindBranch = "branch"

// Branch-selector input/output names. A branch module reads a boolean
// condition plus two same-typed branch expressions and produces whichever
// branch the condition selects.
const (
	branchInputCondition = "condition"
	branchInputWhenTrue  = "whenTrue"
	branchInputWhenFalse = "whenFalse"
	branchOutputResult   = "result"
)

// branchModule implements image.ModuleImpl by selecting between two
// already-computed inputs based on a boolean condition.
type branchModule struct {
	name    string
	version string
}

func (b branchModule) Name() string    { return b.name }
func (b branchModule) Version() string { return b.version }

func (b branchModule) Invoke(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
	cond, ok := inputs[branchInputCondition]
	if !ok {
		return nil, xerrors.New(xerrors.CodeInputValidation, "branch module missing condition input")
	}
	if cond.Type.Kind != ctype.KindBool {
		return nil, xerrors.New(xerrors.CodeInputTypeMismatch, "branch module condition input must be Bool").
			WithContext(map[string]interface{}{"actual": cond.Type.String()})
	}
	whenTrue, hasTrue := inputs[branchInputWhenTrue]
	whenFalse, hasFalse := inputs[branchInputWhenFalse]
	if !hasTrue || !hasFalse {
		return nil, xerrors.New(xerrors.CodeInputValidation, "branch module missing whenTrue/whenFalse input")
	}

	if cond.BoolV {
		return map[string]cvalue.CValue{branchOutputResult: whenTrue}, nil
	}
	return map[string]cvalue.CValue{branchOutputResult: whenFalse}, nil
}

// IsBranchNode reports whether a module node's DefinitionContext marks it
// as a reconstructible branch selector.
func IsBranchNode(node dagspec.ModuleNodeSpec) bool {
	kind, ok := node.DefinitionContext["kind"]
	if !ok {
		return false
	}
	s, ok := kind.(string)
	return ok && s == KindBranch
}

// NewBranchModule validates a branch module node's declared shape and
// returns an executable implementation for it. The node must consume a
// Bool "condition" and two inputs ("whenTrue"/"whenFalse") of the same
// type, and produce a single "result" output of that same type.
func NewBranchModule(node dagspec.ModuleNodeSpec) (branchModule, error) {
	cond, ok := node.Consumes[branchInputCondition]
	if !ok {
		return branchModule{}, xerrors.New(xerrors.CodeValidation, "branch module must consume a condition input").
			WithContext(map[string]interface{}{"module": node.Name})
	}
	if cond.Kind != ctype.KindBool {
		return branchModule{}, xerrors.New(xerrors.CodeValidation, "branch module's condition input must be Bool").
			WithContext(map[string]interface{}{"module": node.Name})
	}

	whenTrue, hasTrue := node.Consumes[branchInputWhenTrue]
	whenFalse, hasFalse := node.Consumes[branchInputWhenFalse]
	if !hasTrue || !hasFalse {
		return branchModule{}, xerrors.New(xerrors.CodeValidation, "branch module must consume whenTrue and whenFalse inputs").
			WithContext(map[string]interface{}{"module": node.Name})
	}
	if !whenTrue.Equal(whenFalse) {
		return branchModule{}, xerrors.New(xerrors.CodeValidation, "branch module's whenTrue and whenFalse inputs must share a type").
			WithContext(map[string]interface{}{"module": node.Name})
	}

	result, ok := node.Produces[branchOutputResult]
	if !ok || !result.Equal(whenTrue) {
		return branchModule{}, xerrors.New(xerrors.CodeValidation, "branch module must produce a result output matching its branch type").
			WithContext(map[string]interface{}{"module": node.Name})
	}

	return branchModule{name: node.Name, version: node.Version}, nil
}
