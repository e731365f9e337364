// Package errors exposes the stable wire encoding of Constellation's error
// taxonomy. Every classified error serializes to
// {errorCode, category, message, context} (spec.md §7); this package is the
// only place that shape is defined so the wire contract stays in one spot.
package errors

import (
	"encoding/json"

	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// Envelope is the stable JSON shape for any classified Constellation error.
type Envelope struct {
	ErrorCode string                 `json:"errorCode"`
	Category  string                 `json:"category"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// FromError converts any error into an Envelope. Errors that are not (or do
// not wrap) an *xerrors.DomainError are classified as INTERNAL_ERROR.
func FromError(err error) Envelope {
	if err == nil {
		return Envelope{}
	}
	de, ok := xerrors.As(err)
	if !ok {
		return Envelope{
			ErrorCode: string(xerrors.CodeInternal),
			Category:  string(xerrors.CategoryRuntime),
			Message:   err.Error(),
		}
	}
	return Envelope{
		ErrorCode: string(de.Code),
		Category:  string(de.Category()),
		Message:   de.Message,
		Context:   de.Context,
	}
}

// Marshal encodes err as its canonical wire JSON.
func Marshal(err error) ([]byte, error) {
	return json.Marshal(FromError(err))
}
