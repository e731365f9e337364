// Package xerrors implements the error taxonomy of spec.md §7: a single
// DomainError struct carrying a stable classification code, a message, an
// optional cause, and a free-form context map. It is grounded on
// alexisbeaulieu97/streamy's internal/domain/pipeline.DomainError, widened
// to the full taxonomy the core needs (type, compilation, runtime,
// suspension, and lookup errors).
package xerrors

import (
	"errors"
	"fmt"
)

// Code identifies a well-known error category. Codes are stable wire
// identifiers (§7): never renumber or rename one that has shipped.
type Code string

const (
	// Type errors.
	CodeTypeMismatch      Code = "TYPE_MISMATCH"
	CodeInputTypeMismatch Code = "INPUT_TYPE_MISMATCH"
	CodeNodeTypeMismatch  Code = "NODE_TYPE_MISMATCH"
	CodeTypeConversion    Code = "TYPE_CONVERSION_ERROR"

	// Compilation / spec errors (the core only ever sees these on bad input).
	CodeCycleDetected       Code = "CYCLE_DETECTED"
	CodeNodeNotFound        Code = "NODE_NOT_FOUND"
	CodeUndefinedVariable   Code = "UNDEFINED_VARIABLE"
	CodeUnsupportedOp       Code = "UNSUPPORTED_OPERATION"

	// Runtime errors.
	CodeModuleNotFound      Code = "MODULE_NOT_FOUND"
	CodeModuleExecution     Code = "MODULE_EXECUTION_ERROR"
	CodeDataNotFound        Code = "DATA_NOT_FOUND"
	CodeRuntimeNotInit      Code = "RUNTIME_NOT_INITIALIZED"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeInputValidation     Code = "INPUT_VALIDATION_ERROR"

	// Suspension errors.
	CodePipelineChanged       Code = "PIPELINE_CHANGED"
	CodeResumeInProgress      Code = "RESUME_IN_PROGRESS"
	CodeInputAlreadyProvided  Code = "INPUT_ALREADY_PROVIDED"
	CodeNodeAlreadyResolved   Code = "NODE_ALREADY_RESOLVED"
	CodeUnknownNode           Code = "UNKNOWN_NODE"
	CodeCodec                 Code = "CODEC_ERROR"

	// Pipeline-lookup errors.
	CodePipelineNotFound Code = "PIPELINE_NOT_FOUND"

	// Engine-internal.
	CodeCancelled Code = "CANCELLED"
	CodeTimeout   Code = "TIMEOUT"
	CodeInternal  Code = "INTERNAL_ERROR"
)

// Category buckets a Code into one of the five taxonomy families named in
// spec.md §7. Categories are used for coarse-grained handling (e.g. deciding
// whether an error aborts a run or is recoverable) without switching on every
// individual Code.
type Category string

const (
	CategoryType        Category = "type"
	CategoryCompilation Category = "compilation"
	CategoryRuntime     Category = "runtime"
	CategorySuspension  Category = "suspension"
	CategoryLookup      Category = "lookup"
)

var categoryByCode = map[Code]Category{
	CodeTypeMismatch:      CategoryType,
	CodeInputTypeMismatch: CategoryType,
	CodeNodeTypeMismatch:  CategoryType,
	CodeTypeConversion:    CategoryType,

	CodeCycleDetected:     CategoryCompilation,
	CodeNodeNotFound:      CategoryCompilation,
	CodeUndefinedVariable: CategoryCompilation,
	CodeUnsupportedOp:     CategoryCompilation,

	CodeModuleNotFound:  CategoryRuntime,
	CodeModuleExecution: CategoryRuntime,
	CodeDataNotFound:    CategoryRuntime,
	CodeRuntimeNotInit:  CategoryRuntime,
	CodeValidation:      CategoryRuntime,
	CodeInputValidation: CategoryRuntime,
	CodeCancelled:       CategoryRuntime,
	CodeTimeout:         CategoryRuntime,
	CodeInternal:        CategoryRuntime,

	CodePipelineChanged:      CategorySuspension,
	CodeResumeInProgress:     CategorySuspension,
	CodeInputAlreadyProvided: CategorySuspension,
	CodeNodeAlreadyResolved:  CategorySuspension,
	CodeUnknownNode:          CategorySuspension,
	CodeCodec:                CategorySuspension,

	CodePipelineNotFound: CategoryLookup,
}

// CategoryOf returns the taxonomy family for a code, or "" if unknown.
func CategoryOf(code Code) Category {
	return categoryByCode[code]
}

// DomainError is Constellation's single error representation. Every
// classified failure path in the engine returns one of these (or wraps one),
// so callers can branch on Code/Category instead of string-matching.
type DomainError struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]interface{}
}

// New constructs a DomainError.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Wrap constructs a DomainError carrying cause as its Unwrap target.
func Wrap(code Code, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is allows errors.Is comparisons against other DomainErrors by code.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return e.Code == de.Code
}

// Category returns the taxonomy family this error belongs to.
func (e *DomainError) Category() Category {
	if e == nil {
		return ""
	}
	return CategoryOf(e.Code)
}

// WithContext returns a copy of e with additional context merged in.
func (e *DomainError) WithContext(ctx map[string]interface{}) *DomainError {
	if e == nil {
		return nil
	}
	merged := make(map[string]interface{}, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	return &DomainError{Code: e.Code, Message: e.Message, Cause: e.Cause, Context: merged}
}

// As attempts to extract a *DomainError from err.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// TypeMismatchError builds the type-error context spec.md §4.1 requires
// (expected, actual, context).
func TypeMismatchError(expected, actual string, context map[string]interface{}) *DomainError {
	ctx := map[string]interface{}{"expected": expected, "actual": actual}
	for k, v := range context {
		ctx[k] = v
	}
	return &DomainError{Code: CodeTypeMismatch, Message: "type mismatch", Context: ctx}
}

// NodeTypeMismatchError reports a resumed node's supplied value not matching
// the data node's declared type (spec.md §4.10 step 3).
func NodeTypeMismatchError(name, expected, actual string) *DomainError {
	return &DomainError{
		Code:    CodeNodeTypeMismatch,
		Message: "resolved node type mismatch",
		Context: map[string]interface{}{"name": name, "expected": expected, "actual": actual},
	}
}

// PipelineChangedError reports that the pipeline resolved from the store no
// longer matches the structural hash a snapshot was taken against (spec.md
// §4.10 step 1).
func PipelineChangedError(expected, actual string) *DomainError {
	return &DomainError{
		Code:    CodePipelineChanged,
		Message: "pipeline structural hash changed since suspension",
		Context: map[string]interface{}{"expected": expected, "actual": actual},
	}
}

// ResumeInProgressError reports that another resume is already in flight
// for executionID (spec.md §4.10: "only one resume may be in flight per
// execution").
func ResumeInProgressError(executionID string) *DomainError {
	return &DomainError{
		Code:    CodeResumeInProgress,
		Message: "a resume is already in progress for this execution",
		Context: map[string]interface{}{"executionId": executionID},
	}
}

// InputAlreadyProvidedError reports that a resume's additionalInputs named
// an input the original run already supplied (spec.md §4.10 step 2).
func InputAlreadyProvidedError(name string) *DomainError {
	return &DomainError{
		Code:    CodeInputAlreadyProvided,
		Message: "input already provided",
		Context: map[string]interface{}{"name": name},
	}
}

// NodeAlreadyResolvedError reports that a resume's resolvedNodes named a
// data node that already carries a value (spec.md §4.10 step 3).
func NodeAlreadyResolvedError(name string) *DomainError {
	return &DomainError{
		Code:    CodeNodeAlreadyResolved,
		Message: "node already resolved",
		Context: map[string]interface{}{"name": name},
	}
}

// UnknownNodeError reports that a resume's resolvedNodes named a data node
// that does not exist in the pipeline (spec.md §4.10 step 3).
func UnknownNodeError(name string) *DomainError {
	return &DomainError{
		Code:    CodeUnknownNode,
		Message: "unknown data node",
		Context: map[string]interface{}{"name": name},
	}
}

// CodecError wraps a JSON (or other wire-format) encode/decode failure.
func CodecError(message string, cause error) *DomainError {
	return Wrap(CodeCodec, message, cause)
}
