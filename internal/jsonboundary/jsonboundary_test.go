package jsonboundary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
)

func TestSelectStrategyThresholds(t *testing.T) {
	assert.Equal(t, StrategyEager, SelectStrategy(100))
	assert.Equal(t, StrategyLazy, SelectStrategy(20*1024))
	assert.Equal(t, StrategyStreaming, SelectStrategy(200*1024))
}

func TestDecodeEagerPrimitives(t *testing.T) {
	v, err := Decode([]byte(`42`), ctype.Int, DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.IntV)

	v, err = Decode([]byte(`"hi"`), ctype.String, DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, "hi", v.StringV)
}

func TestDecodeRejectsNonIntegralInt(t *testing.T) {
	_, err := Decode([]byte(`3.5`), ctype.Int, DefaultLimits)
	assert.Error(t, err)
}

func TestDecodeOptionMissingBecomesNone(t *testing.T) {
	productType := ctype.ProductOf(map[string]ctype.CType{
		"name":     ctype.String,
		"nickname": ctype.OptionOf(ctype.String),
	})
	v, err := Decode([]byte(`{"name":"bob"}`), productType, DefaultLimits)
	require.NoError(t, err)
	nickname, ok := v.Field("nickname")
	require.True(t, ok)
	assert.True(t, nickname.IsNone())
}

func TestDecodeMissingRequiredFieldFails(t *testing.T) {
	productType := ctype.ProductOf(map[string]ctype.CType{"name": ctype.String})
	_, err := Decode([]byte(`{}`), productType, DefaultLimits)
	assert.Error(t, err)
}

func TestDecodeEnforcesMaxBytes(t *testing.T) {
	limits := DefaultLimits
	limits.MaxBytes = 4
	_, err := Decode([]byte(`12345`), ctype.Int, limits)
	assert.Error(t, err)
}

func TestDecodeEnforcesMaxArrayElements(t *testing.T) {
	limits := DefaultLimits
	limits.MaxArrayElements = 2
	_, err := Decode([]byte(`[1,2,3]`), ctype.ListOf(ctype.Int), limits)
	assert.Error(t, err)
}

// buildPaddedArray returns a JSON array of n integers, long enough to force
// a particular strategy via SelectStrategy's byte-size thresholds.
func buildPaddedArray(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "1"
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestDecodeLazyStrategyMatchesEager(t *testing.T) {
	// 15KiB of "1," elements lands in the lazy band (10-100KiB).
	payload := buildPaddedArray(8000)
	require.True(t, len(payload) >= eagerThreshold && len(payload) < lazyThreshold)

	listType := ctype.ListOf(ctype.Int)
	v, err := Decode([]byte(payload), listType, DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, 8000, len(v.ListV))
	for _, e := range v.ListV {
		assert.Equal(t, int64(1), e.IntV)
	}
}

func TestDecodeStreamingStrategyMatchesEager(t *testing.T) {
	payload := buildPaddedArray(60000)
	require.True(t, len(payload) >= lazyThreshold)

	listType := ctype.ListOf(ctype.Int)
	v, err := Decode([]byte(payload), listType, DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, 60000, len(v.ListV))
}

func TestLazyValueFieldAccessCaches(t *testing.T) {
	productType := ctype.ProductOf(map[string]ctype.CType{
		"a": ctype.Int,
		"b": ctype.String,
	})
	payload := []byte(strings.Repeat(" ", 0) + `{"a":1,"b":"x"}`)
	lv, err := DecodeLazy(payload, productType, DefaultLimits)
	require.NoError(t, err)

	a, err := lv.Field("a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.IntV)

	full, err := lv.Materialize()
	require.NoError(t, err)
	bField, ok := full.Field("b")
	require.True(t, ok)
	assert.Equal(t, "x", bField.StringV)
}

func TestEncodeRoundTrip(t *testing.T) {
	productType := ctype.ProductOf(map[string]ctype.CType{
		"name": ctype.String,
		"age":  ctype.Int,
	})
	v := cvalue.NewProduct(map[string]ctype.CType{"name": ctype.String, "age": ctype.Int}, map[string]cvalue.CValue{
		"name": cvalue.NewString("alice"),
		"age":  cvalue.NewInt(30),
	})
	data, err := Encode(v)
	require.NoError(t, err)

	back, err := Decode(data, productType, DefaultLimits)
	require.NoError(t, err)
	assert.True(t, cvalue.Equal(v, back))
}

func TestEncodeOptionNone(t *testing.T) {
	data, err := Encode(cvalue.NewNone(ctype.Int))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
