package suspendstore

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/suspension"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// wireSnapshot mirrors SuspendedExecution field-for-field. A distinct wire
// type (rather than json tags on SuspendedExecution itself) keeps the
// domain type free of an encoding/json dependency, matching how ctype and
// cvalue each keep their own wire shape private to a json.go file. UUIDs
// satisfy encoding.TextMarshaler/TextUnmarshaler already (canonical 8-4-4-4-12
// form per spec.md §4.10), so uuid.UUID map keys and values need no further
// handling here; CType and CValue are self-describing via their own
// MarshalJSON/UnmarshalJSON.
type wireSnapshot struct {
	ExecutionID     uuid.UUID `json:"executionId"`
	StructuralHash  string    `json:"structuralHash"`
	ResumptionCount int       `json:"resumptionCount"`

	Spec          dagspec.DagSpec                          `json:"spec"`
	ModuleOptions map[uuid.UUID]dagspec.ModuleCallOptions   `json:"moduleOptions"`

	ProvidedInputs map[string]cvalue.CValue           `json:"providedInputs"`
	ComputedValues map[uuid.UUID]cvalue.CValue        `json:"computedValues"`
	ModuleStatuses map[uuid.UUID]suspension.ModuleStatus `json:"moduleStatuses"`

	MissingInputs []string `json:"missingInputs"`
}

func toWireSnapshot(s suspension.SuspendedExecution) wireSnapshot {
	return wireSnapshot{
		ExecutionID:     s.ExecutionID,
		StructuralHash:  s.StructuralHash,
		ResumptionCount: s.ResumptionCount,
		Spec:            s.Spec,
		ModuleOptions:   s.ModuleOptions,
		ProvidedInputs:  s.ProvidedInputs,
		ComputedValues:  s.ComputedValues,
		ModuleStatuses:  s.ModuleStatuses,
		MissingInputs:   s.MissingInputs,
	}
}

func fromWireSnapshot(w wireSnapshot) suspension.SuspendedExecution {
	return suspension.SuspendedExecution{
		ExecutionID:     w.ExecutionID,
		StructuralHash:  w.StructuralHash,
		ResumptionCount: w.ResumptionCount,
		Spec:            w.Spec,
		ModuleOptions:   w.ModuleOptions,
		ProvidedInputs:  w.ProvidedInputs,
		ComputedValues:  w.ComputedValues,
		ModuleStatuses:  w.ModuleStatuses,
		MissingInputs:   w.MissingInputs,
	}
}

// Encode renders a snapshot as the canonical JSON form spec.md §4.10
// requires. Every encoder/decoder pair must satisfy decode(encode(s)) == s.
func Encode(s suspension.SuspendedExecution) ([]byte, error) {
	data, err := json.Marshal(toWireSnapshot(s))
	if err != nil {
		return nil, xerrors.CodecError("failed to encode suspension snapshot", err)
	}
	return data, nil
}

// Decode parses a snapshot previously produced by Encode.
func Decode(data []byte) (suspension.SuspendedExecution, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return suspension.SuspendedExecution{}, xerrors.CodecError("failed to decode suspension snapshot", err)
	}
	return fromWireSnapshot(w), nil
}
