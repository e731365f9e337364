package engine

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
)

// cacheKey derives a deterministic memoization key from a module identity
// and its bound inputs, the same sha256-of-canonical-JSON approach
// internal/canon uses for structural hashing (internal/canon/canon.go's
// StructuralHash), scoped to one module call instead of a whole DagSpec.
func cacheKey(node dagspec.ModuleNodeSpec, inputs map[string]cvalue.CValue) (string, error) {
	encoded, err := json.Marshal(inputs)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(node.Name+"@"+node.Version+":"), encoded...))
	return fmt.Sprintf("%x", sum), nil
}

func encodeOutputs(outputs map[string]cvalue.CValue) ([]byte, error) {
	return json.Marshal(outputs)
}

func decodeOutputs(data []byte) (map[string]cvalue.CValue, error) {
	var outputs map[string]cvalue.CValue
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, err
	}
	return outputs, nil
}
