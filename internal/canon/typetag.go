package canon

import (
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
)

// EncodeType renders a CType using the fixed tag-byte discipline spec.md
// §4.4 requires ("P for product, L for list ...") so that a CType's
// canonical encoding depends only on its shape, never on map iteration
// order or Go struct layout.
func EncodeType(t ctype.CType) string {
	switch t.Kind {
	case ctype.KindUnit:
		return "U"
	case ctype.KindBool:
		return "B"
	case ctype.KindInt:
		return "I"
	case ctype.KindFloat:
		return "F"
	case ctype.KindString:
		return "S"
	case ctype.KindOption:
		return "O(" + encodeTypePtr(t.Elem) + ")"
	case ctype.KindList:
		return "L(" + encodeTypePtr(t.Elem) + ")"
	case ctype.KindMap:
		return "M(" + encodeTypePtr(t.Key) + "," + encodeTypePtr(t.Value) + ")"
	case ctype.KindProduct:
		names := make([]string, 0, len(t.Fields))
		for name := range t.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = name + ":" + EncodeType(t.Fields[name])
		}
		return "P{" + strings.Join(parts, ",") + "}"
	default:
		return "?"
	}
}

func encodeTypePtr(t *ctype.CType) string {
	if t == nil {
		return "?"
	}
	return EncodeType(*t)
}
