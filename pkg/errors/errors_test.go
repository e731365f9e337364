package errors

import (
	"encoding/json"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

func TestFromErrorClassifiesDomainError(t *testing.T) {
	t.Parallel()

	de := xerrors.New(xerrors.CodeModuleNotFound, "no implementation bound for module node").
		WithContext(map[string]interface{}{"module": "double"})

	env := FromError(de)

	require.Equal(t, string(xerrors.CodeModuleNotFound), env.ErrorCode)
	require.Equal(t, string(xerrors.CategoryRuntime), env.Category)
	require.Equal(t, "no implementation bound for module node", env.Message)
	require.Equal(t, "double", env.Context["module"])
}

func TestFromErrorFallsBackToInternalForUnclassifiedError(t *testing.T) {
	t.Parallel()

	env := FromError(stdErrors.New("boom"))

	require.Equal(t, string(xerrors.CodeInternal), env.ErrorCode)
	require.Equal(t, string(xerrors.CategoryRuntime), env.Category)
	require.Equal(t, "boom", env.Message)
	require.Nil(t, env.Context)
}

func TestFromErrorNilReturnsZeroEnvelope(t *testing.T) {
	t.Parallel()

	require.Equal(t, Envelope{}, FromError(nil))
}

func TestMarshalProducesStableFieldNames(t *testing.T) {
	t.Parallel()

	de := xerrors.New(xerrors.CodeInputValidation, "missing required input")
	raw, err := Marshal(de)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, string(xerrors.CodeInputValidation), decoded["errorCode"])
	require.Equal(t, string(xerrors.CategoryRuntime), decoded["category"])
	require.Equal(t, "missing required input", decoded["message"])
	require.NotContains(t, decoded, "context")
}

func TestFromErrorUnwrapsWrappedDomainError(t *testing.T) {
	t.Parallel()

	wrapped := xerrors.Wrap(xerrors.CodeModuleExecution, "module failed after exhausting retries", stdErrors.New("timeout"))
	env := FromError(wrapped)

	require.Equal(t, string(xerrors.CodeModuleExecution), env.ErrorCode)
	require.Contains(t, env.Message, "module failed after exhausting retries")
}
